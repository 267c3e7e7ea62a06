package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const (
	MaxPhotoSizeBytes int64 = 5 * 1024 * 1024
	thumbnailWidth          = 300
)

var photoMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// StoredPhoto is where a saved photo and its thumbnail can be fetched from.
type StoredPhoto struct {
	ObjectKey    string `json:"object_key"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// PhotoStore persists uploaded cake photos.
type PhotoStore interface {
	Save(ctx context.Context, folder string, data []byte) (*StoredPhoto, error)
	Delete(ctx context.Context, objectKey string) error
}

// PreparePhoto checks size and type and builds the object keys and thumbnail bytes for data.
func PreparePhoto(folder string, data []byte) (objectKey string, mimeType string, thumbnail []byte, err error) {
	if len(data) == 0 {
		return "", "", nil, Validation("photo is empty")
	}
	if int64(len(data)) > MaxPhotoSizeBytes {
		return "", "", nil, Validation("photo exceeds 5MB limit")
	}
	mimeType = http.DetectContentType(data)
	ext, ok := photoMimeTypes[mimeType]
	if !ok {
		return "", "", nil, Validation("unsupported photo type: %s", mimeType)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", "", nil, Validation("photo could not be decoded")
	}
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return "", "", nil, err
	}

	objectKey = path.Join(folder, uuid.New().String()+ext)
	return objectKey, mimeType, buf.Bytes(), nil
}

func ThumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	filename := strings.TrimSuffix(path.Base(objectKey), path.Ext(objectKey)) + ".jpg"
	return path.Join(dir, "thumbnails", filename)
}

func safeObjectKey(objectKey string) (string, error) {
	cleaned := path.Clean("/" + objectKey)
	if cleaned == "/" || strings.Contains(objectKey, "..") {
		return "", Validation("invalid object key")
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

/* local disk */

type LocalPhotoStore struct {
	root      string
	urlPrefix string
}

// NewLocalPhotoStore writes under root; files are served from urlPrefix.
func NewLocalPhotoStore(root, urlPrefix string) *LocalPhotoStore {
	return &LocalPhotoStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *LocalPhotoStore) Root() string { return s.root }

func (s *LocalPhotoStore) Save(ctx context.Context, folder string, data []byte) (*StoredPhoto, error) {
	objectKey, _, thumbnail, err := PreparePhoto(folder, data)
	if err != nil {
		return nil, err
	}
	thumbKey := ThumbnailObjectKey(objectKey)
	if err := s.write(objectKey, data); err != nil {
		return nil, err
	}
	if err := s.write(thumbKey, thumbnail); err != nil {
		return nil, err
	}
	return &StoredPhoto{
		ObjectKey:    objectKey,
		URL:          s.urlPrefix + "/" + objectKey,
		ThumbnailURL: s.urlPrefix + "/" + thumbKey,
	}, nil
}

func (s *LocalPhotoStore) write(objectKey string, data []byte) error {
	fullPath := filepath.Join(s.root, filepath.FromSlash(objectKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0o644)
}

func (s *LocalPhotoStore) Delete(ctx context.Context, objectKey string) error {
	key, err := safeObjectKey(objectKey)
	if err != nil {
		return err
	}
	for _, k := range []string{key, ThumbnailObjectKey(key)} {
		err := os.Remove(filepath.Join(s.root, filepath.FromSlash(k)))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

/* google cloud storage */

type GCSPhotoStore struct {
	client *storage.Client
	bucket string
}

func NewGCSClient(ctx context.Context, credentialsJSON string) (*storage.Client, error) {
	// Prefer ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS).
	if strings.TrimSpace(credentialsJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	return storage.NewClient(ctx)
}

func NewGCSPhotoStore(client *storage.Client, bucket string) (*GCSPhotoStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}
	return &GCSPhotoStore{client: client, bucket: bucket}, nil
}

func (s *GCSPhotoStore) Save(ctx context.Context, folder string, data []byte) (*StoredPhoto, error) {
	objectKey, mimeType, thumbnail, err := PreparePhoto(folder, data)
	if err != nil {
		return nil, err
	}
	thumbKey := ThumbnailObjectKey(objectKey)
	if err := s.upload(ctx, objectKey, data, mimeType); err != nil {
		return nil, err
	}
	if err := s.upload(ctx, thumbKey, thumbnail, "image/jpeg"); err != nil {
		return nil, err
	}
	return &StoredPhoto{
		ObjectKey:    objectKey,
		URL:          s.accessURL(objectKey),
		ThumbnailURL: s.accessURL(thumbKey),
	}, nil
}

func (s *GCSPhotoStore) upload(ctx context.Context, objectKey string, data []byte, contentType string) error {
	wc := s.client.Bucket(s.bucket).Object(objectKey).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to upload %s to Google Cloud Storage: %w", objectKey, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

func (s *GCSPhotoStore) Delete(ctx context.Context, objectKey string) error {
	key, err := safeObjectKey(objectKey)
	if err != nil {
		return err
	}
	for _, k := range []string{key, ThumbnailObjectKey(key)} {
		err := s.client.Bucket(s.bucket).Object(k).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return err
		}
	}
	return nil
}

func (s *GCSPhotoStore) accessURL(objectKey string) string {
	return "https://storage.googleapis.com/" + s.bucket + "/" + objectKey
}
