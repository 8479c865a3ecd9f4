package storage

import "errors"

// Common storage errors
var (
	// ErrRecordNotFound indicates that record is not in the user's live set
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidOperation indicates that operation is malformed (unknown kind, empty record id)
	ErrInvalidOperation = errors.New("invalid operation")
)
