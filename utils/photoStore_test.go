package utils

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 120, B: 80, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestLocalPhotoStoreSavesPhotoAndThumbnail(t *testing.T) {
	root := t.TempDir()
	store := NewLocalPhotoStore(root, "/uploads/")

	photo, err := store.Save(context.Background(), "cakes", pngBytes(t, 600, 400))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(photo.ObjectKey, "cakes/"))
	assert.True(t, strings.HasSuffix(photo.ObjectKey, ".png"))
	assert.Equal(t, "/uploads/"+photo.ObjectKey, photo.URL)

	thumbPath := filepath.Join(root, filepath.FromSlash(ThumbnailObjectKey(photo.ObjectKey)))
	thumb, err := imaging.Open(thumbPath)
	require.NoError(t, err)
	assert.Equal(t, 300, thumb.Bounds().Dx())
	assert.Equal(t, 200, thumb.Bounds().Dy())

	require.NoError(t, store.Delete(context.Background(), photo.ObjectKey))
	_, err = os.Stat(thumbPath)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalPhotoStoreRejectsNonImages(t *testing.T) {
	store := NewLocalPhotoStore(t.TempDir(), "/uploads")

	_, err := store.Save(context.Background(), "cakes", []byte("%PDF-1.4 not a photo"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Save(context.Background(), "cakes", nil)
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, store.Delete(context.Background(), "../etc/passwd"), ErrValidation)
}

func TestThumbnailObjectKey(t *testing.T) {
	assert.Equal(t, "cakes/thumbnails/abc.jpg", ThumbnailObjectKey("cakes/abc.png"))
}
