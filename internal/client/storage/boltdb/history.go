package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/notesync/internal/client/storage"
	"github.com/iudanet/notesync/internal/models"
)

// AppendHistory adds entry to the end of its record's history
func (s *Storage) AppendHistory(ctx context.Context, userID string, entry models.HistoryEntry) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketHistory, userID)
		if err != nil {
			return err
		}

		entries, err := readHistory(bucket, entry.RecordID)
		if err != nil {
			return err
		}

		return writeHistory(bucket, entry.RecordID, append(entries, entry))
	})
}

// GetHistory returns the history of a record, oldest first
func (s *Storage) GetHistory(ctx context.Context, userID, recordID string) ([]models.HistoryEntry, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	entries := []models.HistoryEntry{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketHistory, userID)
		if err != nil || bucket == nil {
			return err
		}

		entries, err = readHistory(bucket, recordID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func readHistory(bucket *bbolt.Bucket, recordID string) ([]models.HistoryEntry, error) {
	entries := []models.HistoryEntry{}

	data := bucket.Get([]byte(recordID))
	if data == nil {
		return entries, nil
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history of %s: %w", recordID, err)
	}

	return entries, nil
}

func writeHistory(bucket *bbolt.Bucket, recordID string, entries []models.HistoryEntry) error {
	if len(entries) == 0 {
		return bucket.Delete([]byte(recordID))
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history of %s: %w", recordID, err)
	}

	return bucket.Put([]byte(recordID), data)
}
