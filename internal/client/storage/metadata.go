package storage

import "context"

// MetadataStorage defines interface for storing client sync metadata
type MetadataStorage interface {
	// SaveLastSyncToken saves the change token reached by the last successful pull
	SaveLastSyncToken(ctx context.Context, userID string, token int64) error

	// GetLastSyncToken retrieves the change token reached by the last successful pull
	// Returns 0 if no sync has been performed yet
	GetLastSyncToken(ctx context.Context, userID string) (int64, error)
}
