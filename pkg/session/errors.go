package session

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned by Load when no document exists for the
	// identifier. Any other I/O or decode failure is a distinct error.
	ErrNotFound = errors.New("session not found")

	// ErrExists is returned by Create when a document already exists.
	ErrExists = errors.New("session already exists")

	// ErrInvalidID is returned when a session identifier could escape the
	// store directory or is otherwise unusable as a file name.
	ErrInvalidID = errors.New("invalid session id")
)
