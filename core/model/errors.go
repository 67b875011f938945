package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown vehicle, job or alert.
	ErrNotFound = errors.New("not found")
	// ErrStateConflict marks an operation that is not allowed in the
	// current state of the entity.
	ErrStateConflict = errors.New("state conflict")
)

// ValidationError describes malformed input.
type ValidationError struct {
	Reason string
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StateConflictError reports an entity that is in the wrong state for the
// requested operation.
type StateConflictError struct {
	Entity string
	ID     string
	State  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %q is %s", e.Entity, e.ID, e.State)
}

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }
