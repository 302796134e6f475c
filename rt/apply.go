package rt

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/heap"
	"github.com/vkngwrapper/mlrt/value"
)

// Apply calls closure with argv.
//
// If the closure's bound arguments plus argv fall short of its arity, the result is a new
// closure with argv bound after the existing arguments, and the function does not run.
// If they match exactly, the function runs on the bound arguments followed by argv. If
// there are more, the function runs on as many as it takes and its result is applied to
// the rest, which fails with ErrArity if that result is not a closure.
//
// The closure, argv and every intermediate value are rooted for the whole call, so
// allocations made by the function cannot reclaim them.
func (r *Runtime) Apply(closure value.Value, argv ...value.Value) (value.Value, error) {
	frame := r.heap.Roots().Enter()
	defer frame.Leave()

	err := frame.PushAll(closure)
	if err != nil {
		return value.Unit, err
	}
	err = frame.PushAll(argv...)
	if err != nil {
		return value.Unit, err
	}

	// Frame layout: [callee, pending args..., scratch...]
	callee := 0
	first, count := 1, len(argv)

	for hop := 0; ; hop++ {
		c, err := r.closure(frame.Get(callee))
		if err != nil {
			if hop > 0 {
				return value.Unit, errors.Wrapf(ErrArity, "%d arguments remain after a call returned a value that is not a closure: %v", count, err)
			}
			return value.Unit, err
		}

		have := c.bound + count
		if have < c.total {
			return r.partialApply(&frame, callee, first, count)
		}

		entry, err := r.funcEntry(c.id)
		if err != nil {
			return value.Unit, err
		}
		fn := entry.fn

		// Build the full argument vector on the root stack so that it stays rooted
		// for as long as the function runs
		take := c.total - c.bound
		start := frame.Len()
		err = frame.PushAll(c.boundArgs()...)
		if err != nil {
			return value.Unit, err
		}
		for i := 0; i < take; i++ {
			_, err = frame.Push(frame.Get(first + i))
			if err != nil {
				return value.Unit, err
			}
		}

		result, err := fn(r, frame.Values()[start:])
		if err != nil {
			return value.Unit, err
		}

		if have == c.total {
			return result, nil
		}

		// Over-application: the result becomes the callee for the excess arguments
		callee, err = frame.Push(result)
		if err != nil {
			return value.Unit, err
		}
		first += take
		count -= take
	}
}

// partialApply builds a closure that shares the callee's function and arity, binding the
// callee's arguments followed by count pending arguments
func (r *Runtime) partialApply(frame *heap.Frame, callee, first, count int) (value.Value, error) {
	c, err := r.closure(frame.Get(callee))
	if err != nil {
		return value.Unit, err
	}

	have := c.bound + count
	partial, err := r.MakeClosure(c.id, c.total-have, have)
	if err != nil {
		return value.Unit, err
	}

	// MakeClosure may have collected, so the callee has to be resolved again
	c, err = r.closure(frame.Get(callee))
	if err != nil {
		return value.Unit, err
	}

	block, err := r.heap.Block(partial)
	if err != nil {
		return value.Unit, err
	}

	data := block.Data()
	args := data[heap.ClosureHeaderWords:]
	copy(args, c.boundArgs())
	for i := 0; i < count; i++ {
		args[c.bound+i] = frame.Get(first + i)
	}
	data[heap.ClosureBoundWord] = value.FromInt(int64(have))

	return partial, nil
}
