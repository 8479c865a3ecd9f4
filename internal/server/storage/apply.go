package storage

import (
	"fmt"
	"time"

	"github.com/iudanet/notesync/internal/models"
)

// Decide computes the record an accepted op produces.
//
// current is the live record (nil if absent), lastVersion the highest version
// ever assigned to the id including tombstones. A re-create after delete
// continues from lastVersion so versions are never reused.
func Decide(op models.OutboxOperation, current *models.SyncRecord, lastVersion int64, now time.Time) (models.SyncRecord, error) {
	if err := op.Kind.Validate(); err != nil {
		return models.SyncRecord{}, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	if op.RecordID == "" {
		return models.SyncRecord{}, fmt.Errorf("%w: empty record id", ErrInvalidOperation)
	}

	if op.Kind == models.OperationCreate {
		if current != nil {
			return models.SyncRecord{}, &models.ConflictError{
				RecordID:       op.RecordID,
				CurrentVersion: current.Revision.Version,
			}
		}
		return models.SyncRecord{
			ID:      op.RecordID,
			Payload: op.Payload,
			Revision: models.Revision{
				Version:   lastVersion + 1,
				Author:    models.ServerAuthor,
				Timestamp: now,
			},
		}, nil
	}

	var currentVersion int64
	if current != nil {
		currentVersion = current.Revision.Version
	}
	if current == nil || op.BaseRevisionVersion == nil || *op.BaseRevisionVersion != currentVersion {
		return models.SyncRecord{}, &models.ConflictError{
			RecordID:        op.RecordID,
			ExpectedVersion: op.BaseRevisionVersion,
			CurrentVersion:  currentVersion,
		}
	}

	if op.Kind == models.OperationDelete {
		return current.Tombstone(models.ServerAuthor, now), nil
	}

	return models.SyncRecord{
		ID:      current.ID,
		Payload: op.Payload,
		Revision: models.Revision{
			Version:   currentVersion + 1,
			Author:    models.ServerAuthor,
			Timestamp: now,
		},
	}, nil
}
