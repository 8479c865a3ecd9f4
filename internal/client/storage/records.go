package storage

import (
	"context"

	"github.com/iudanet/notesync/internal/models"
)

// RecordStorage defines interface for the local replica of a user's records
type RecordStorage interface {
	// SaveRecord stores or updates a record
	SaveRecord(ctx context.Context, userID string, record models.SyncRecord) error

	// GetRecord retrieves a record by ID
	// Returns ErrRecordNotFound if record doesn't exist
	GetRecord(ctx context.Context, userID, id string) (*models.SyncRecord, error)

	// GetRecords returns all local records keyed by ID
	GetRecords(ctx context.Context, userID string) (map[string]models.SyncRecord, error)

	// ReplaceRecords installs records as the complete local record set
	// Used after a sync pass
	ReplaceRecords(ctx context.Context, userID string, records map[string]models.SyncRecord) error

	// DeleteRecord removes a record from the local set
	DeleteRecord(ctx context.Context, userID, id string) error
}

// HistoryStorage keeps the superseded values of local records, oldest first
type HistoryStorage interface {
	// AppendHistory adds entry to the end of its record's history
	AppendHistory(ctx context.Context, userID string, entry models.HistoryEntry) error

	// GetHistory returns the history of a record, oldest first
	// Returns an empty slice if the record has no history
	GetHistory(ctx context.Context, userID, recordID string) ([]models.HistoryEntry, error)
}

// LocalStore combines everything the client keeps on disk
type LocalStore interface {
	BlobStore
	RecordStorage
	HistoryStorage
	ConflictStorage
	MetadataStorage
}
