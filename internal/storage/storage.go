package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/snapcal/apiserver/config"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// PhotoStore stores food photos in an object-storage backend and hands out
// the public URLs that end up in food log entries.
type PhotoStore struct {
	backend ObjectStorage
	baseURL string
}

// NewPhotoStore constructs a PhotoStore over the provided backend. baseURL
// is the public prefix under which stored objects are reachable, e.g. a
// CDN or bucket endpoint.
func NewPhotoStore(backend ObjectStorage, baseURL string) *PhotoStore {
	return &PhotoStore{
		backend: backend,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// EnsureBucket ensures the configured bucket exists.
func (s *PhotoStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// SavePhoto decodes a base64-encoded image, stores it under a fresh key,
// and returns the public URL of the stored object.
func (s *PhotoStore) SavePhoto(ctx context.Context, imageBase64, mimeType string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("empty image")
	}

	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	key := photoKey(mimeType)
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	return s.URL(key), nil
}

// Delete removes a stored photo.
func (s *PhotoStore) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// URL builds the public URL for an object key.
func (s *PhotoStore) URL(key string) string {
	if s.baseURL == "" {
		return fmt.Sprintf("/%s/%s", s.backend.Bucket(), key)
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}

func photoKey(mimeType string) string {
	ext := "bin"
	switch mimeType {
	case "image/jpeg":
		ext = "jpg"
	case "image/png":
		ext = "png"
	case "image/gif":
		ext = "gif"
	case "image/webp":
		ext = "webp"
	}
	return fmt.Sprintf("photos/%s.%s", uuid.NewString(), ext)
}

// NewBackend constructs the object-storage backend selected by config.
// An empty backend name means the server runs without photo storage.
func NewBackend(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "minio":
		return NewMinioClient(cfg.Minio)
	case "gcs":
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
