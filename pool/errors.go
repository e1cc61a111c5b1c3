package pool

import "fmt"

// CreationError wraps a Factory failure for one key. Nothing is cached on
// failure; a later Get for the same key retries construction.
type CreationError struct {
	Key string
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create client %q: %v", e.Key, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }
