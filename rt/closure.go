package rt

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/heap"
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
)

// MakeClosure allocates a closure over the function id with room for params call
// parameters and env captured values. The closure starts with no bound arguments;
// captured values are bound with PushBoundArg.
func (r *Runtime) MakeClosure(id FuncID, params, env int) (value.Value, error) {
	_, err := r.funcEntry(id)
	if err != nil {
		return value.Unit, err
	}

	err = memutils.CheckNonNegative(params, "closure parameter count")
	if err != nil {
		return value.Unit, err
	}
	err = memutils.CheckNonNegative(env, "closure environment size")
	if err != nil {
		return value.Unit, err
	}

	total := params + env
	block, err := r.heap.AllocateBlock(total+heap.ClosureHeaderWords, heap.TagClosure)
	if err != nil {
		return value.Unit, err
	}

	data := block.Data()
	data[heap.ClosureFuncWord] = value.FromInt(int64(id))
	data[heap.ClosureBoundWord] = value.FromInt(0)
	data[heap.ClosureArityWord] = value.FromInt(int64(total))

	return block.Handle(), nil
}

// PushBoundArg binds the next argument of closure to v
func (r *Runtime) PushBoundArg(closure value.Value, v value.Value) error {
	c, err := r.closure(closure)
	if err != nil {
		return err
	}

	if c.bound >= c.total {
		return errors.Wrapf(ErrArity, "closure %s already has all %d of its arguments bound", closure, c.total)
	}

	data := c.block.Data()
	data[heap.ClosureHeaderWords+c.bound] = v
	data[heap.ClosureBoundWord] = value.FromInt(int64(c.bound + 1))
	return nil
}

// ClosureArity returns the number of arguments bound to closure and the total number of
// arguments it takes before its function runs
func (r *Runtime) ClosureArity(closure value.Value) (bound int, total int, err error) {
	c, err := r.closure(closure)
	if err != nil {
		return 0, 0, err
	}

	return c.bound, c.total, nil
}

// IsClosure reports whether v refers to a live closure
func (r *Runtime) IsClosure(v value.Value) bool {
	block := r.lookupLive(v)
	return block != nil && block.Tag() == heap.TagClosure
}

func (r *Runtime) lookupLive(v value.Value) *heap.Block {
	if !value.IsReference(v) {
		return nil
	}

	block, err := r.heap.Block(v)
	if err != nil {
		return nil
	}
	return block
}

type closureView struct {
	block *heap.Block
	id    FuncID
	bound int
	total int
}

func (c closureView) boundArgs() []value.Value {
	return c.block.Data()[heap.ClosureHeaderWords : heap.ClosureHeaderWords+c.bound]
}

func (r *Runtime) closure(v value.Value) (closureView, error) {
	block, err := r.heap.Block(v)
	if err != nil {
		return closureView{}, errors.Mark(err, ErrNotCallable)
	}

	if block.Tag() != heap.TagClosure {
		return closureView{}, errors.Wrapf(ErrNotCallable, "%s is a %s block", v, block.Tag())
	}

	data := block.Data()
	if block.Size() < heap.ClosureHeaderWords {
		return closureView{}, errors.Wrapf(ErrNotCallable, "closure %s is missing its header", v)
	}

	id := data[heap.ClosureFuncWord]
	bound := data[heap.ClosureBoundWord]
	total := data[heap.ClosureArityWord]
	if !value.IsImmediate(id) || !value.IsImmediate(bound) || !value.IsImmediate(total) {
		return closureView{}, errors.Wrapf(ErrNotCallable, "closure %s has a malformed header", v)
	}

	view := closureView{
		block: block,
		id:    FuncID(value.ToInt(id)),
		bound: int(value.ToInt(bound)),
		total: int(value.ToInt(total)),
	}

	if view.total < 0 || view.total > block.Size()-heap.ClosureHeaderWords || view.bound < 0 || view.bound > view.total {
		return closureView{}, errors.Wrapf(ErrNotCallable, "closure %s has %d of %d arguments bound in a block of size %d",
			v, view.bound, view.total, block.Size())
	}

	return view, nil
}
