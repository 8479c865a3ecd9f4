// Package memory provides an in-process BlobStore, used by tests and ephemeral clients.
package memory

import (
	"context"
	"sync"

	"github.com/iudanet/notesync/internal/client/storage"
)

// BlobStore keeps blobs in a map guarded by a mutex
type BlobStore struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

var _ storage.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates an empty BlobStore
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

// Load returns a copy of the blob stored under key
func (s *BlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[key]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return append([]byte(nil), blob...), nil
}

// Save stores a copy of blob under key
func (s *BlobStore) Save(ctx context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = append([]byte(nil), blob...)
	return nil
}
