package heap_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/mlrt/heap"
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
)

func TestFrameRestoresCursors(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})
	roots := h.Roots()

	outer := roots.Enter()
	require.NoError(t, outer.PushAll(value.FromInt(1), value.FromInt(2)))
	require.Equal(t, 2, roots.Len())
	require.Equal(t, 0, roots.BasePointer())

	inner := roots.Enter()
	require.Equal(t, 2, roots.BasePointer())
	require.Equal(t, 2, roots.Depth())

	index, err := inner.Push(value.FromInt(3))
	require.NoError(t, err)
	require.Equal(t, 0, index)
	require.Equal(t, []value.Value{value.FromInt(3)}, inner.Values())

	inner.Leave()
	require.Equal(t, 2, roots.Len())
	require.Equal(t, 0, roots.BasePointer())
	require.Equal(t, 1, roots.Depth())

	// Leaving twice is harmless
	inner.Leave()
	require.Equal(t, 1, roots.Depth())

	outer.Set(1, value.FromInt(20))
	require.Equal(t, value.FromInt(20), outer.Get(1))
	require.Equal(t, 2, outer.Len())

	outer.Leave()
	require.Equal(t, 0, roots.Len())
	require.Equal(t, 0, roots.Depth())
	require.NoError(t, h.Validate())
}

func TestFrameOutOfOrderLeavePanics(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	outer := h.Roots().Enter()
	inner := h.Roots().Enter()

	require.Panics(t, func() {
		outer.Leave()
	})
	require.Panics(t, func() {
		_, _ = outer.Push(value.Unit)
	})

	inner.Leave()
	outer.Leave()
	require.Equal(t, 0, h.Roots().Depth())
}

func TestFrameUseAfterLeavePanics(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	frame := h.Roots().Enter()
	_, err := frame.Push(value.Unit)
	require.NoError(t, err)
	frame.Leave()

	require.Panics(t, func() {
		frame.Get(0)
	})
	require.Panics(t, func() {
		_, _ = frame.Push(value.Unit)
	})
}

func TestFrameIndexOutOfRangePanics(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	frame := h.Roots().Enter()
	defer frame.Leave()

	require.Panics(t, func() {
		frame.Get(0)
	})
	require.Panics(t, func() {
		frame.Set(-1, value.Unit)
	})
}

func TestRootStackOverflow(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{RootStackSize: 2})
	require.Equal(t, 2, h.Roots().Capacity())

	frame := h.Roots().Enter()
	defer frame.Leave()

	require.NoError(t, frame.PushAll(value.Unit, value.Unit))
	_, err := frame.Push(value.Unit)
	require.True(t, errors.Is(err, memutils.ErrRootStackOverflow))

	err = frame.PushAll(value.Unit)
	require.True(t, errors.Is(err, memutils.ErrRootStackOverflow))
	require.Equal(t, 2, frame.Len())
}

func TestWithFrameLeavesOnError(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	expected := errors.New("stop")
	err := h.WithFrame(func(frame *heap.Frame) error {
		_, err := frame.Push(value.FromInt(1))
		require.NoError(t, err)
		return expected
	})
	require.ErrorIs(t, err, expected)
	require.Equal(t, 0, h.Roots().Len())
	require.Equal(t, 0, h.Roots().Depth())
}
