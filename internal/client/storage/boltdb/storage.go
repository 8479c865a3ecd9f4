package boltdb

import (
	"context"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/notesync/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketBlobs     = []byte("blobs")
	bucketRecords   = []byte("records")
	bucketHistory   = []byte("history")
	bucketConflicts = []byte("conflicts")
	bucketMetadata  = []byte("metadata")
)

var errBucketNotFound = errors.New("bucket not found")

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
}

var _ storage.LocalStore = (*Storage)(nil)

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBlobs, bucketRecords, bucketHistory, bucketConflicts, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// userBucket возвращает вложенный bucket пользователя, создавая его в write-транзакции.
// В read-транзакции отсутствующий bucket возвращается как nil без ошибки.
func userBucket(tx *bbolt.Tx, root []byte, userID string) (*bbolt.Bucket, error) {
	parent := tx.Bucket(root)
	if parent == nil {
		return nil, fmt.Errorf("%s: %w", root, errBucketNotFound)
	}
	if !tx.Writable() {
		return parent.Bucket([]byte(userID)), nil
	}
	b, err := parent.CreateBucketIfNotExists([]byte(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to create user bucket: %w", err)
	}
	return b, nil
}
