package rt

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/heap"
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
	"golang.org/x/exp/slog"
)

// Identifiers of the predefined exceptions
const (
	ExceptionOutOfMemory     int = -1
	ExceptionSysError        int = -2
	ExceptionFailure         int = -3
	ExceptionInvalidArgument int = -4
	ExceptionEndOfFile       int = -5
	ExceptionDivisionByZero  int = -6
	ExceptionNotFound        int = -7
)

// UncaughtExitCode is the process exit status after an uncaught exception
const UncaughtExitCode int = 2

const (
	exceptionNameField = 0
	exceptionIDField   = 1
)

// Exception is the error through which a raised exception unwinds Go code. The exception
// value itself stays rooted as the runtime's pending exception until ClearException is
// called or another exception is raised.
type Exception struct {
	Value value.Value
	Name  string
	ID    int
}

func (e *Exception) Error() string {
	return "exception " + e.Name
}

// NewException allocates an exception value: an object block holding the exception's
// printed name and its numeric id
func (r *Runtime) NewException(name string, id int) (value.Value, error) {
	message, err := r.CopyString(name)
	if err != nil {
		return value.Unit, err
	}

	return r.Alloc(heap.TagObject, message, value.FromInt(int64(id)))
}

// Raise makes exc the pending exception and returns the error that carries it
func (r *Runtime) Raise(exc value.Value) error {
	block, err := r.block(exc)
	if err != nil {
		return err
	}

	if block.Tag() != heap.TagObject || block.Size() < 2 {
		return errors.Wrapf(ErrTypeMismatch, "only exceptions can be raised, but %s is a %s block of size %d", exc, block.Tag(), block.Size())
	}

	name, err := r.GoString(block.Data()[exceptionNameField])
	if err != nil {
		return err
	}

	id, err := intArg(block.Data()[exceptionIDField], "exception id")
	if err != nil {
		return err
	}

	r.pending = exc
	return &Exception{
		Value: exc,
		Name:  name,
		ID:    id,
	}
}

// PendingException returns the most recently raised exception, if it has not been cleared
func (r *Runtime) PendingException() (value.Value, bool) {
	return r.pending, r.pending != pendingNone
}

// ClearException drops the pending exception, so that it may be collected
func (r *Runtime) ClearException() {
	r.pending = pendingNone
}

func (r *Runtime) raiseNew(name string, id int) error {
	exc, err := r.NewException(name, id)
	if err != nil {
		return err
	}

	return r.Raise(exc)
}

// RaiseFailure raises Failure with the provided message
func (r *Runtime) RaiseFailure(message string) error {
	return r.raiseNew(fmt.Sprintf("Failure(%q)", message), ExceptionFailure)
}

// RaiseInvalidArgument raises Invalid_argument with the provided message
func (r *Runtime) RaiseInvalidArgument(message string) error {
	return r.raiseNew(fmt.Sprintf("Invalid_argument(%q)", message), ExceptionInvalidArgument)
}

// RaiseSysError raises Sys_error with the provided message
func (r *Runtime) RaiseSysError(message string) error {
	return r.raiseNew(fmt.Sprintf("Sys_error(%q)", message), ExceptionSysError)
}

// RaiseEndOfFile raises End_of_file
func (r *Runtime) RaiseEndOfFile() error {
	return r.raiseNew("End_of_file", ExceptionEndOfFile)
}

// RaiseDivisionByZero raises Division_by_zero
func (r *Runtime) RaiseDivisionByZero() error {
	return r.raiseNew("Division_by_zero", ExceptionDivisionByZero)
}

// RaiseNotFound raises Not_found
func (r *Runtime) RaiseNotFound() error {
	return r.raiseNew("Not_found", ExceptionNotFound)
}

// HandleUncaught reports err as a fatal error on the runtime's stderr and exits the
// process, returning the exit status for the benefit of configurations whose exit
// function returns. A nil error is not reported and yields status 0.
func (r *Runtime) HandleUncaught(err error) int {
	if err == nil {
		return 0
	}

	flushErr := r.console.Flush()
	if flushErr != nil {
		r.logger.Warn("failed to flush the console", slog.Any("error", flushErr))
	}

	var exc *Exception
	var description string
	switch {
	case errors.As(err, &exc):
		description = exc.Error()
	case errors.Is(err, memutils.ErrOutOfMemory):
		description = "exception Out_of_memory"
	default:
		description = err.Error()
	}

	r.logger.LogAttrs(context.Background(), slog.LevelError, "uncaught exception",
		slog.String("Description", description),
		slog.Any("error", err),
	)

	_, _ = fmt.Fprintf(r.stderr, "Fatal error: %s\n", description)
	r.exit(UncaughtExitCode)
	return UncaughtExitCode
}
