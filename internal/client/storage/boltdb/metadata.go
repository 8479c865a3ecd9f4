package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/notesync/internal/client/storage"
)

const (
	keyLastSyncToken = "last_sync_token"
)

// SaveLastSyncToken saves the change token reached by the last successful pull
func (s *Storage) SaveLastSyncToken(ctx context.Context, userID string, token int64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketMetadata, userID)
		if err != nil {
			return err
		}

		// Конвертируем int64 в bytes
		tokenBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(tokenBytes, uint64(token))

		if err := bucket.Put([]byte(keyLastSyncToken), tokenBytes); err != nil {
			return fmt.Errorf("failed to save last sync token: %w", err)
		}

		return nil
	})
}

// GetLastSyncToken retrieves the change token reached by the last successful pull
// Returns 0 if no sync has been performed yet
func (s *Storage) GetLastSyncToken(ctx context.Context, userID string) (int64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var token int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketMetadata, userID)
		if err != nil || bucket == nil {
			return err
		}

		tokenBytes := bucket.Get([]byte(keyLastSyncToken))
		if tokenBytes == nil {
			// Первая синхронизация
			return nil
		}

		// Конвертируем bytes в int64
		token = int64(binary.BigEndian.Uint64(tokenBytes))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get last sync token: %w", err)
	}

	return token, nil
}
