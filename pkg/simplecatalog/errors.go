package simplecatalog

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotFound indicates a record or blob is absent
	ErrNotFound = errors.New("not found")

	// ErrCorruptedIndex indicates an index payload is not a JSON array of records
	ErrCorruptedIndex = errors.New("corrupted index")

	// ErrTransientIO indicates the storage backend failed or timed out.
	// Callers may retry; the engine never does.
	ErrTransientIO = errors.New("transient storage error")

	// ErrValidation indicates a request was rejected before touching storage
	ErrValidation = errors.New("validation failed")

	// ErrObjectNotFound is returned by BlobStore backends for a missing key.
	// The Gateway translates it into ErrNotFound.
	ErrObjectNotFound = errors.New("object not found")

	// ErrPoolClosed indicates the IO pool has been drained and closed
	ErrPoolClosed = errors.New("io pool closed")
)

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IndexError represents an error reading or writing a type's index file
type IndexError struct {
	Type TypeTag
	Op   string
	Err  error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index operation %s failed for type %s: %v", e.Op, e.Type, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// RecordError represents an error related to a single record
type RecordError struct {
	Type TypeTag
	ID   string
	Op   string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record operation %s failed for %s %s: %v", e.Op, e.Type, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
