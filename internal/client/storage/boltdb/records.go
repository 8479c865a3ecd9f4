package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/notesync/internal/client/storage"
	"github.com/iudanet/notesync/internal/models"
)

// SaveRecord stores or updates a record in BoltDB
func (s *Storage) SaveRecord(ctx context.Context, userID string, record models.SyncRecord) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	// Сериализуем запись в JSON
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketRecords, userID)
		if err != nil {
			return err
		}

		// Сохраняем по ключу ID
		if err := bucket.Put([]byte(record.ID), data); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetRecord retrieves a record by ID
func (s *Storage) GetRecord(ctx context.Context, userID, id string) (*models.SyncRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var record *models.SyncRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketRecords, userID)
		if err != nil {
			return err
		}
		if bucket == nil {
			return storage.ErrRecordNotFound
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrRecordNotFound
		}

		// Десериализуем
		record = &models.SyncRecord{}
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetRecords returns all local records of the user keyed by ID
func (s *Storage) GetRecords(ctx context.Context, userID string) (map[string]models.SyncRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	records := make(map[string]models.SyncRecord)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketRecords, userID)
		if err != nil {
			return err
		}
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var record models.SyncRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal record %s: %w", k, err)
			}
			records[string(k)] = record
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// ReplaceRecords drops the user's record bucket and writes records in one transaction
func (s *Storage) ReplaceRecords(ctx context.Context, userID string, records map[string]models.SyncRecord) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		parent := tx.Bucket(bucketRecords)
		if parent.Bucket([]byte(userID)) != nil {
			if err := parent.DeleteBucket([]byte(userID)); err != nil {
				return fmt.Errorf("failed to clear records: %w", err)
			}
		}

		bucket, err := userBucket(tx, bucketRecords, userID)
		if err != nil {
			return err
		}

		for id, record := range records {
			data, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("failed to marshal record %s: %w", id, err)
			}
			if err := bucket.Put([]byte(id), data); err != nil {
				return fmt.Errorf("failed to save record %s: %w", id, err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// DeleteRecord removes a record; deleting a missing record is not an error
func (s *Storage) DeleteRecord(ctx context.Context, userID, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, bucketRecords, userID)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(id))
	})
}
