package storage

import (
	"context"
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=mock_storage.go -package=storage

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for object storage operations.
// Program and profile images live here; the rest of the system only stores
// the public URL as an opaque string.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// ObjectURL returns the public URL an uploaded object is served from.
	ObjectURL(objectKey string) string

	// KeyFromURL extracts the object key from a URL produced by ObjectURL.
	// It reports false for URLs that point elsewhere.
	KeyFromURL(url string) (string, bool)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}
