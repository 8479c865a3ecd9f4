package storage

import "errors"

// Common client storage errors
var (
	// ErrBlobNotFound indicates that no blob is stored under the key
	ErrBlobNotFound = errors.New("blob not found")

	// ErrRecordNotFound indicates that local record was not found
	ErrRecordNotFound = errors.New("record not found")

	// ErrConflictNotFound indicates that conflict copy was not found
	ErrConflictNotFound = errors.New("conflict copy not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
