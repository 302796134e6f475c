package memutils

import "github.com/pkg/errors"

var (
	// ErrOutOfMemory is the error returned when an allocation cannot be satisfied even after a
	// full collection. Callers are expected to treat it as fatal.
	ErrOutOfMemory error = errors.New("out of memory")
	// ErrInvalidReference is the error returned when a value does not refer to a live block in
	// the heap being queried
	ErrInvalidReference error = errors.New("value does not refer to a live block")
	// ErrRootStackOverflow is the error returned when a value is pushed onto a full root stack
	ErrRootStackOverflow error = errors.New("root stack overflow")
)
