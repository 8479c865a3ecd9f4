package storage

import "context"

//go:generate moq -out blobstore_mock.go . BlobStore

// BlobStore is a durable keyed byte store. Writes to a key replace its value atomically.
type BlobStore interface {
	// Load returns the blob stored under key
	// Returns ErrBlobNotFound if nothing was saved under key
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores blob under key, replacing any previous value
	Save(ctx context.Context, key string, blob []byte) error
}
