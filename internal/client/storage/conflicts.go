package storage

import (
	"context"
	"time"

	"github.com/iudanet/notesync/internal/models"
)

// ConflictCopy is a preserved local value that lost against the server
type ConflictCopy struct {
	DetectedAt  time.Time                `json:"detected_at"`
	OriginalID  string                   `json:"original_id"`
	Suggestions []models.MergeSuggestion `json:"suggestions"`
	Record      models.SyncRecord        `json:"record"`
}

// ConflictStorage defines interface for storing conflict copies until the user resolves them
type ConflictStorage interface {
	// SaveConflict stores or updates a conflict copy, keyed by its record ID
	SaveConflict(ctx context.Context, userID string, conflict ConflictCopy) error

	// GetConflict retrieves a conflict copy by its record ID
	// Returns ErrConflictNotFound if it doesn't exist
	GetConflict(ctx context.Context, userID, copyID string) (*ConflictCopy, error)

	// ListConflicts returns all conflict copies ordered by copy ID
	ListConflicts(ctx context.Context, userID string) ([]ConflictCopy, error)

	// DeleteConflict removes a conflict copy
	// Returns ErrConflictNotFound if it doesn't exist
	DeleteConflict(ctx context.Context, userID, copyID string) error
}
