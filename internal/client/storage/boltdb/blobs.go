package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/notesync/internal/client/storage"
)

// Load returns the blob stored under key
func (s *Storage) Load(ctx context.Context, key string) ([]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var blob []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketBlobs).Get([]byte(key))
		if data == nil {
			return storage.ErrBlobNotFound
		}
		// Значение валидно только внутри транзакции
		blob = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return blob, nil
}

// Save stores blob under key in a single transaction
func (s *Storage) Save(ctx context.Context, key string, blob []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(key), blob)
	})
	if err != nil {
		return fmt.Errorf("failed to save blob %s: %w", key, err)
	}

	return nil
}
