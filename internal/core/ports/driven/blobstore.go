package driven

import (
	"context"
	"io"
)

// BlobStore persists uploaded files.
type BlobStore interface {
	// Upload writes the content under key and returns the stored path.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)

	// Download opens the content stored under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a location for key that a client can open.
	URL(ctx context.Context, key string) (string, error)
}

// LocalBlobStore is implemented by blob stores that keep files on the local
// filesystem, so extractors can read them without a temporary copy.
type LocalBlobStore interface {
	// LocalPath returns the filesystem path for key.
	LocalPath(key string) string
}
