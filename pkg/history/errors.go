package history

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("history entry not found")

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "memory", "sqlite" or "postgres"
	Operation string // "save", "query", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("history storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
