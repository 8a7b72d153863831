package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist in the
	// requested scope.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("record already exists")
)
