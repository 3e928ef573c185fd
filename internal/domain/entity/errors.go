package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the repository and usecase layers.
var (
	// ErrNotFound reports that the requested article or group does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput reports a value that fails domain validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateLink reports an insert of an article link already stored.
	// Ingest treats it as a skip, not a failure.
	ErrDuplicateLink = errors.New("duplicate article link")
)

// ValidationError carries the failing field alongside the message so
// callers can log which part of an article or group was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
