package rt

import "github.com/cockroachdb/errors"

var (
	// ErrNotCallable is the error returned when a value that is not a closure is applied
	ErrNotCallable error = errors.New("value is not callable")
	// ErrArity is the error returned when a closure receives more arguments than it can
	// consume and its result cannot take the rest, or when a bound argument is pushed onto
	// a closure that is already full
	ErrArity error = errors.New("arity mismatch")
	// ErrTypeMismatch is the error returned when a primitive receives a value of the wrong kind
	ErrTypeMismatch error = errors.New("type mismatch")
)
