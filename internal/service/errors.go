package service

import (
	"errors"
	"sort"
	"strings"

	"tweeter/internal/repository"
)

var (
	// ErrNotFound indicates the entity is absent or outside the caller's scope.
	ErrNotFound = repository.ErrNotFound
	// ErrForbidden indicates the actor may not touch the target entity.
	ErrForbidden = errors.New("this action is not allowed")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError carries per-field messages for input that failed
// validation. Nothing is persisted when it is returned.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Err returns nil when no field failed.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		for _, msg := range e.Fields[field] {
			parts = append(parts, field+" "+msg)
		}
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// AsValidation unwraps a ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
