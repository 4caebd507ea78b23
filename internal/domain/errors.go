package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the parent of every "entity does not exist (for this
// owner)" error. Callers match it with errors.Is.
var ErrNotFound = errors.New("not found")

var (
	ErrEstimateNotFound = fmt.Errorf("estimate %w", ErrNotFound)
	ErrItemNotFound     = fmt.Errorf("item %w", ErrNotFound)
	ErrTemplateNotFound = fmt.Errorf("template %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
)

// ErrInvalidValue reports a value that would break a data-model invariant,
// such as a negative cost reaching the persistence layer.
var ErrInvalidValue = errors.New("invalid value")

// StorageError wraps a failure of the underlying store (connectivity,
// constraint violation, commit failure). The mutation it describes did not
// apply.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// AsStorageError wraps err unless it is nil, already a StorageError, a
// not-found error or an invalid value error.
func AsStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidValue) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
