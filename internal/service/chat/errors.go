package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrConversationNotFound covers both missing conversations and ones owned
	// by another user.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage unavailable")
)

// ValidationError rejects malformed input before any processing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StorageError wraps a persistence failure. It is the only failure class a
// turn propagates after validation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) hold for every StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageFailure(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
