package storage

import (
	"context"

	"github.com/iudanet/notesync/internal/models"
)

//go:generate moq -out store_mock.go . Store

// Store is the authoritative per-user record store with an append-only change log
type Store interface {
	// Apply validates op against the current server state and, if accepted,
	// returns the new revision of the record. A duplicate create or a stale
	// base version fails with models.ErrOccConflict.
	Apply(ctx context.Context, userID string, op models.OutboxOperation) (*models.SyncRecord, error)

	// Pull returns changes with token greater than sinceToken in ascending order
	Pull(ctx context.Context, userID string, sinceToken int64) (*PullResult, error)

	// Record returns the live record
	// Returns ErrRecordNotFound if the record does not exist or is deleted
	Record(ctx context.Context, userID, id string) (*models.SyncRecord, error)
}

// PullResult changes since a token and the user's highest assigned token
type PullResult struct {
	Changes  []models.ServerChange `json:"changes"`
	NewToken int64                 `json:"new_token"`
}
