package store

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound reports an operation that targeted a session id that
// is not (or no longer) in the collection.
var ErrSessionNotFound = errors.New("session not found")

// PersistenceError wraps a failed write to the durable backing store. The
// attempted mutation is abandoned; in-memory state is left untouched.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
