package audit

import (
	"errors"
	"fmt"
)

// Client input errors. Requests failing with one of these are never persisted.
var (
	ErrInvalidEventType = errors.New("invalid event type")
	ErrMissingField     = errors.New("missing required field")
	ErrFieldTooLong     = errors.New("field exceeds maximum length")
)

// Store level conditions, usually wrapped in a StorageError
var (
	ErrDuplicateEventID = errors.New("duplicate event id")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrEventNotFound    = errors.New("event not found")
)

// StorageError reports that the event store could not complete an operation
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err carries a StorageError
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsValidationError reports whether err is a rejected-input error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidEventType) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrFieldTooLong)
}
