package rt

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/mlrt/heap"
	"github.com/vkngwrapper/mlrt/value"
	"golang.org/x/exp/slog"
)

// pendingNone marks the absence of a pending exception. It is an immediate, so it never
// roots anything.
const pendingNone = value.Unit

// Runtime is the execution environment that compiled code calls into: a garbage-collected
// heap, the registry of native functions closures can refer to, the table of module
// globals, and the primitive library.
//
// Like the heap it owns, a Runtime serves a single mutator goroutine.
type Runtime struct {
	logger *slog.Logger
	heap   *heap.Heap

	funcs       []funcEntry
	funcsByName *swiss.Map[string, FuncID]

	globals     *swiss.Map[int, globalEntry]
	globalNames *swiss.Map[string, int]

	pending value.Value

	console Console
	stderr  io.Writer
	exit    func(code int)
}

// Heap returns the heap backing the runtime
func (r *Runtime) Heap() *heap.Heap {
	return r.heap
}

// VisitRoots reports the runtime's globals and pending exception to the collector
func (r *Runtime) VisitRoots(visit func(v value.Value)) {
	r.globals.Iter(func(slot int, entry globalEntry) bool {
		visit(entry.value)
		return false
	})

	visit(r.pending)
}

// Alloc allocates a block with the provided tag holding fields. The fields are rooted
// while the block is allocated, so they may refer to blocks that nothing else keeps alive.
func (r *Runtime) Alloc(tag heap.Tag, fields ...value.Value) (value.Value, error) {
	frame := r.heap.Roots().Enter()
	defer frame.Leave()

	err := frame.PushAll(fields...)
	if err != nil {
		return value.Unit, err
	}

	block, err := r.heap.AllocateBlock(len(fields), tag)
	if err != nil {
		return value.Unit, err
	}

	copy(block.Data(), frame.Values())
	return block.Handle(), nil
}

// Field returns field i of the block v refers to
func (r *Runtime) Field(v value.Value, i int) (value.Value, error) {
	block, err := r.block(v)
	if err != nil {
		return value.Unit, err
	}

	return block.Field(i)
}

// SetField overwrites field i of the block v refers to
func (r *Runtime) SetField(v value.Value, i int, field value.Value) error {
	block, err := r.block(v)
	if err != nil {
		return err
	}

	return block.SetField(i, field)
}

func (r *Runtime) block(v value.Value) (*heap.Block, error) {
	block, err := r.heap.Block(v)
	if err != nil {
		return nil, errors.Mark(err, ErrTypeMismatch)
	}

	return block, nil
}

func intArg(v value.Value, name string) (int, error) {
	if !value.IsImmediate(v) {
		return 0, errors.Wrapf(ErrTypeMismatch, "%s must be an integer, but is %s", name, v)
	}

	return int(value.ToInt(v)), nil
}
