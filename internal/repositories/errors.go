package repositories

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)

// ConflictError names the unique field a write collided on.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s: %s already exists", ErrConflict.Error(), e.Field)
}

// Unwrap lets errors.Is match ErrConflict.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ConflictField returns the field a conflict error refers to, if any.
func ConflictField(err error) string {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.Field
	}
	return ""
}

// ValidationError lists the fields a record failed validation on.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %v", e.Fields)
}
