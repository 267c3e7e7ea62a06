package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hashed, err := HashPassword("secret1")
	require.NoError(t, err)
	require.NoError(t, ComparePassword(string(hashed), "secret1"))
	require.Error(t, ComparePassword(string(hashed), "secret2"))
}
