package config

const (
	StorageProviderLocal = "local"
	StorageProviderGCS   = "gcs"
)
