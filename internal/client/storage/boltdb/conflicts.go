package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/notesync/internal/client/storage"
)

// SaveConflict stores or updates a conflict copy keyed by its record ID
func (s *Storage) SaveConflict(ctx context.Context, userID string, conflict storage.ConflictCopy) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(conflict)
	if err != nil {
		return fmt.Errorf("failed to marshal conflict copy: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketConflicts, userID)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(conflict.Record.ID), data)
	})
}

// GetConflict retrieves a conflict copy by its record ID
func (s *Storage) GetConflict(ctx context.Context, userID, copyID string) (*storage.ConflictCopy, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var conflict *storage.ConflictCopy

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketConflicts, userID)
		if err != nil {
			return err
		}
		if bucket == nil {
			return storage.ErrConflictNotFound
		}

		data := bucket.Get([]byte(copyID))
		if data == nil {
			return storage.ErrConflictNotFound
		}

		conflict = &storage.ConflictCopy{}
		if err := json.Unmarshal(data, conflict); err != nil {
			return fmt.Errorf("failed to unmarshal conflict copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conflict, nil
}

// ListConflicts returns all conflict copies of the user ordered by copy ID
func (s *Storage) ListConflicts(ctx context.Context, userID string) ([]storage.ConflictCopy, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	conflicts := []storage.ConflictCopy{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketConflicts, userID)
		if err != nil || bucket == nil {
			return err
		}

		// bbolt обходит ключи в отсортированном порядке
		return bucket.ForEach(func(k, v []byte) error {
			var conflict storage.ConflictCopy
			if err := json.Unmarshal(v, &conflict); err != nil {
				return fmt.Errorf("failed to unmarshal conflict copy %s: %w", k, err)
			}
			conflicts = append(conflicts, conflict)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return conflicts, nil
}

// DeleteConflict removes a conflict copy
func (s *Storage) DeleteConflict(ctx context.Context, userID, copyID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketConflicts, userID)
		if err != nil {
			return err
		}
		if bucket.Get([]byte(copyID)) == nil {
			return storage.ErrConflictNotFound
		}
		return bucket.Delete([]byte(copyID))
	})
}
