package models

import (
	"errors"
	"fmt"
)

// ErrOccConflict indicates that the basis revision is stale: re-fetch and retry.
// It is the only error kind used to fence stale or duplicate writes.
var ErrOccConflict = errors.New("occ conflict: basis revision is stale")

// ConflictError carries the details of an OCC rejection.
// errors.Is(err, ErrOccConflict) is true for any *ConflictError.
type ConflictError struct {
	ExpectedVersion *int64
	RecordID        string
	CurrentVersion  int64
}

func (e *ConflictError) Error() string {
	if e.ExpectedVersion == nil && e.CurrentVersion == 0 {
		return fmt.Sprintf("occ conflict on %q: no basis version", e.RecordID)
	}
	if e.ExpectedVersion == nil {
		return fmt.Sprintf("occ conflict on %q: record already exists at version %d", e.RecordID, e.CurrentVersion)
	}
	return fmt.Sprintf("occ conflict on %q: expected version %d, current %d", e.RecordID, *e.ExpectedVersion, e.CurrentVersion)
}

// Is matches ErrOccConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrOccConflict
}
