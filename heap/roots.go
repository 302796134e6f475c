package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
)

// RootSet is a source of roots other than the root stack, such as a table of module
// globals. VisitRoots must call visit once for every value it keeps alive.
type RootSet interface {
	VisitRoots(visit func(v value.Value))
}

// RootStack is a bounded stack of values that the collector treats as live. Values are
// only ever pushed through a Frame, and a Frame's values are popped all at once when it
// is left, so the stack always nests exactly like the calls that pushed it.
type RootStack struct {
	stack []value.Value
	bp    int
	sp    int
	depth int
}

// Frame is a region of the root stack owned by one call. A Frame must be left in the reverse
// order that it was entered, which is easiest to guarantee with defer:
//
//	frame := heap.Roots().Enter()
//	defer frame.Leave()
type Frame struct {
	stack   *RootStack
	base    int
	savedBP int
	depth   int
	left    bool
}

// Enter begins a new frame at the current top of the stack
func (s *RootStack) Enter() Frame {
	frame := Frame{
		stack:   s,
		base:    s.sp,
		savedBP: s.bp,
		depth:   s.depth + 1,
	}
	s.bp = s.sp
	s.depth++
	return frame
}

// Len returns the number of values currently on the stack
func (s *RootStack) Len() int {
	return s.sp
}

// Capacity returns the maximum number of values the stack can hold
func (s *RootStack) Capacity() int {
	return len(s.stack)
}

// Depth returns the number of frames that have been entered and not yet left
func (s *RootStack) Depth() int {
	return s.depth
}

// BasePointer returns the index at which the innermost frame begins
func (s *RootStack) BasePointer() int {
	return s.bp
}

// VisitRoots calls visit for every value on the stack, bottom first
func (s *RootStack) VisitRoots(visit func(v value.Value)) {
	for i := 0; i < s.sp; i++ {
		visit(s.stack[i])
	}
}

func (s *RootStack) Validate() error {
	if s.bp < 0 || s.bp > s.sp {
		return errors.Errorf("root stack base pointer %d is outside of [0, %d]", s.bp, s.sp)
	}
	if s.sp > len(s.stack) {
		return errors.Errorf("root stack pointer %d is past the stack capacity %d", s.sp, len(s.stack))
	}
	return nil
}

func (f *Frame) checkInnermost() {
	if f.left {
		panic("attempted to use a root frame that has already been left")
	}
	if f.stack.depth != f.depth {
		panic("attempted to use a root frame that is not the innermost frame")
	}
}

// Push roots v for the lifetime of the frame and returns its index within the frame
func (f *Frame) Push(v value.Value) (int, error) {
	f.checkInnermost()

	s := f.stack
	if s.sp >= len(s.stack) {
		return -1, errors.Wrapf(memutils.ErrRootStackOverflow, "cannot push past %d values", len(s.stack))
	}

	s.stack[s.sp] = v
	s.sp++
	return s.sp - 1 - f.base, nil
}

// PushAll roots every value in values, in order
func (f *Frame) PushAll(values ...value.Value) error {
	f.checkInnermost()

	s := f.stack
	if s.sp+len(values) > len(s.stack) {
		return errors.Wrapf(memutils.ErrRootStackOverflow, "cannot push %d values onto a stack holding %d of %d", len(values), s.sp, len(s.stack))
	}

	copy(s.stack[s.sp:], values)
	s.sp += len(values)
	return nil
}

// Get returns the value at index i of the frame
func (f *Frame) Get(i int) value.Value {
	return f.stack.stack[f.index(i)]
}

// Set replaces the value at index i of the frame, so that an updated value stays rooted
func (f *Frame) Set(i int, v value.Value) {
	f.stack.stack[f.index(i)] = v
}

// Values returns the values in the frame. The returned slice aliases the root stack and
// is only valid until the frame is left or pushed to.
func (f *Frame) Values() []value.Value {
	f.checkInnermost()
	return f.stack.stack[f.base:f.stack.sp]
}

// Len returns the number of values pushed into the frame
func (f *Frame) Len() int {
	f.checkInnermost()
	return f.stack.sp - f.base
}

func (f *Frame) index(i int) int {
	if f.left {
		panic("attempted to use a root frame that has already been left")
	}

	index := f.base + i
	if i < 0 || index >= f.stack.sp {
		panic(errors.Newf("root frame index %d is out of range", i))
	}
	return index
}

// Leave pops every value pushed into the frame and restores the caller's frame. Leaving
// a frame more than once is a no-op.
func (f *Frame) Leave() {
	if f.left {
		return
	}

	if f.stack.depth != f.depth {
		panic("root frames must be left in the reverse order that they were entered")
	}

	f.stack.sp = f.base
	f.stack.bp = f.savedBP
	f.stack.depth--
	f.left = true
}
