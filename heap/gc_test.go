package heap_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/mlrt/heap"
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
)

func TestBudgetTriggeredCollectionKeepsRootedBlock(t *testing.T) {
	h, recorder := readyHeap(t, heap.CreateOptions{})

	frame := h.Roots().Enter()
	defer frame.Leave()

	x := allocTuple(t, h, value.FromInt(7), value.FromInt(9))
	xHandle := x.Handle()
	_, err := frame.Push(xHandle)
	require.NoError(t, err)

	y := allocTuple(t, h, value.FromInt(1), value.FromInt(2))
	yHandle := y.Handle()

	for len(recorder.collections) == 0 {
		allocTuple(t, h, value.Unit, value.Unit)
	}

	require.True(t, h.IsLive(xHandle))
	require.False(t, h.IsLive(yHandle))
	require.Equal(t, heap.TagTuple, recorder.freed[yHandle])
	_, xFreed := recorder.freed[xHandle]
	require.False(t, xFreed)

	resolved, err := h.Block(xHandle)
	require.NoError(t, err)
	require.Equal(t, heap.TagTuple, resolved.Tag())
	require.Equal(t, []value.Value{value.FromInt(7), value.FromInt(9)}, resolved.Data())

	_, err = h.Block(yHandle)
	require.True(t, errors.Is(err, memutils.ErrInvalidReference))

	result := recorder.collections[0]
	require.Equal(t, heap.BlockBytes(2), result.BytesAfter)
	require.Equal(t, 1, result.BlocksAfter)
	require.Equal(t, result.BlocksBefore-1, result.ReclaimedBlocks)
	require.Equal(t, 2*heap.BlockBytes(2), result.Threshold)
	require.NoError(t, h.Validate())
}

func TestCollectTracesTuples(t *testing.T) {
	h, recorder := readyHeap(t, heap.CreateOptions{})

	leaf := allocTuple(t, h, value.FromInt(1))
	middle := allocTuple(t, h, leaf.Handle(), value.FromInt(2))
	top := allocTuple(t, h, value.FromInt(3), middle.Handle())
	garbage := allocTuple(t, h, leaf.Handle())

	err := h.WithFrame(func(frame *heap.Frame) error {
		_, err := frame.Push(top.Handle())
		if err != nil {
			return err
		}

		result := h.Collect()
		require.Equal(t, 1, result.ReclaimedBlocks)
		require.Equal(t, heap.BlockBytes(1), result.ReclaimedBytes)
		return nil
	})
	require.NoError(t, err)

	require.True(t, h.IsLive(leaf.Handle()))
	require.True(t, h.IsLive(middle.Handle()))
	require.True(t, h.IsLive(top.Handle()))
	require.False(t, h.IsLive(garbage.Handle()))
	require.Len(t, recorder.freed, 1)

	// Live bytes are exactly the reachable blocks
	require.Equal(t, heap.BlockBytes(1)+2*heap.BlockBytes(2), h.AllocatedBytes())
}

func TestCollectObjectTagIsTraced(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	message := allocTuple(t, h, value.FromInt(0))
	exception, err := h.AllocateBlock(2, heap.TagObject)
	require.NoError(t, err)
	exception.Data()[0] = message.Handle()
	exception.Data()[1] = value.FromInt(-4)

	frame := h.Roots().Enter()
	defer frame.Leave()
	_, err = frame.Push(exception.Handle())
	require.NoError(t, err)

	h.Collect()
	require.True(t, h.IsLive(message.Handle()))
}

func TestCollectNeverTracesNoScanPayload(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	victim := allocTuple(t, h, value.Unit)

	// A string whose bytes happen to spell out a valid reference
	str, err := h.AllocateBlock(2, heap.TagString)
	require.NoError(t, err)
	str.Data()[0] = value.FromInt(8)
	str.Data()[1] = victim.Handle()

	opaque, err := h.AllocateBlock(1, heap.TagNoScan)
	require.NoError(t, err)
	opaque.Data()[0] = victim.Handle()

	frame := h.Roots().Enter()
	defer frame.Leave()
	require.NoError(t, frame.PushAll(str.Handle(), opaque.Handle()))

	h.Collect()
	require.True(t, h.IsLive(str.Handle()))
	require.True(t, h.IsLive(opaque.Handle()))
	require.False(t, h.IsLive(victim.Handle()))
}

func TestCollectClosureScansOnlyBoundArguments(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	bound := allocTuple(t, h, value.FromInt(1))
	unbound := allocTuple(t, h, value.FromInt(2))

	closure, err := h.AllocateBlock(heap.ClosureHeaderWords+2, heap.TagClosure)
	require.NoError(t, err)
	data := closure.Data()
	data[heap.ClosureFuncWord] = value.FromInt(0)
	data[heap.ClosureBoundWord] = value.FromInt(1)
	data[heap.ClosureArityWord] = value.FromInt(2)
	data[heap.ClosureHeaderWords] = bound.Handle()
	// A stale word in a slot that has not been bound yet
	data[heap.ClosureHeaderWords+1] = unbound.Handle()

	frame := h.Roots().Enter()
	defer frame.Leave()
	_, err = frame.Push(closure.Handle())
	require.NoError(t, err)

	h.Collect()
	require.True(t, h.IsLive(closure.Handle()))
	require.True(t, h.IsLive(bound.Handle()))
	require.False(t, h.IsLive(unbound.Handle()))
	require.NoError(t, h.Validate())
}

func TestCollectCycles(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	first := allocTuple(t, h, value.Unit)
	second := allocTuple(t, h, first.Handle())
	first.Data()[0] = second.Handle()

	// Unrooted cycle is reclaimed
	result := h.Collect()
	require.Equal(t, 2, result.ReclaimedBlocks)
	require.False(t, h.IsLive(first.Handle()))
	require.False(t, h.IsLive(second.Handle()))

	// Rooted cycle survives
	third := allocTuple(t, h, value.Unit)
	fourth := allocTuple(t, h, third.Handle())
	third.Data()[0] = fourth.Handle()

	frame := h.Roots().Enter()
	defer frame.Leave()
	_, err := frame.Push(fourth.Handle())
	require.NoError(t, err)

	result = h.Collect()
	require.Equal(t, 0, result.ReclaimedBlocks)
	require.True(t, h.IsLive(third.Handle()))
	require.True(t, h.IsLive(fourth.Handle()))
}

func TestCollectIgnoresConservativeRoots(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	frame := h.Roots().Enter()
	defer frame.Leave()
	require.NoError(t, frame.PushAll(value.FromInt(12), value.FromRef(0xdead0001), value.Value(0)))

	block := allocTuple(t, h, value.Unit)
	result := h.Collect()
	require.Equal(t, 1, result.ReclaimedBlocks)
	require.False(t, h.IsLive(block.Handle()))
}

func TestMarksAreClearedAfterCollection(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	frame := h.Roots().Enter()
	defer frame.Leave()
	for i := 0; i < 5; i++ {
		_, err := frame.Push(allocTuple(t, h, value.FromInt(int64(i))).Handle())
		require.NoError(t, err)
	}

	h.Collect()
	// Validate fails if any survivor is still marked
	require.NoError(t, h.Validate())

	h.Collect()
	require.Equal(t, 5, h.BlockCount())
	require.NoError(t, h.Validate())
}

func TestThresholdDoubling(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{InitialCollectThreshold: 10000})
	require.Equal(t, 10000, h.CollectThreshold())

	frame := h.Roots().Enter()
	defer frame.Leave()
	_, err := frame.Push(allocTuple(t, h, value.Unit, value.Unit, value.Unit).Handle())
	require.NoError(t, err)
	allocTuple(t, h, value.Unit)

	result := h.Collect()
	require.Equal(t, 2*heap.BlockBytes(3), result.Threshold)
	require.Equal(t, 2*heap.BlockBytes(3), h.CollectThreshold())

	frame.Leave()
	result = h.Collect()
	require.Equal(t, 0, result.Threshold)
	require.Equal(t, 0, h.AllocatedBytes())
}

func TestMinCollectThreshold(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{MinCollectThreshold: 4096})

	result := h.Collect()
	require.Equal(t, 4096, result.Threshold)
}

func TestStaleHandleAfterSlotReuse(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	old := allocTuple(t, h, value.FromInt(1))
	oldHandle := old.Handle()
	h.Collect()

	replacement := allocTuple(t, h, value.FromInt(2))
	require.NotEqual(t, oldHandle, replacement.Handle())
	require.False(t, h.IsLive(oldHandle))
	require.True(t, h.IsLive(replacement.Handle()))

	_, err := h.Block(oldHandle)
	require.True(t, errors.Is(err, memutils.ErrInvalidReference))
}

func TestNestedCollectIsNoop(t *testing.T) {
	var nested []heap.CollectionResult

	options := heap.CreateOptions{
		Flags: heap.HeapCreateExternallySynchronized,
		CallbackOptions: &heap.CallbackOptions{
			Free: func(h *heap.Heap, handle value.Value, tag heap.Tag, size int, userData interface{}) {
				nested = append(nested, h.Collect())
			},
		},
	}
	h, err := heap.New(nil, options)
	require.NoError(t, err)

	_, err = h.AllocateBlock(1, heap.TagTuple)
	require.NoError(t, err)

	result := h.Collect()
	require.Equal(t, 1, result.ReclaimedBlocks)
	require.Len(t, nested, 1)
	require.Equal(t, 0, nested[0].ReclaimedBlocks)
	require.NoError(t, h.Validate())
}

func TestRootSetKeepsBlocksAlive(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	kept := allocTuple(t, h, value.FromInt(1))
	dropped := allocTuple(t, h, value.FromInt(2))

	h.RegisterRootSet(staticRoots{kept.Handle()})
	h.Collect()

	require.True(t, h.IsLive(kept.Handle()))
	require.False(t, h.IsLive(dropped.Handle()))
}

type staticRoots []value.Value

func (r staticRoots) VisitRoots(visit func(v value.Value)) {
	for _, v := range r {
		visit(v)
	}
}

func TestHeapSizeLimit(t *testing.T) {
	limit := 4 * heap.BlockBytes(2)
	h, _ := readyHeap(t, heap.CreateOptions{HeapSizeLimit: limit})

	frame := h.Roots().Enter()
	defer frame.Leave()

	for i := 0; i < 4; i++ {
		_, err := frame.Push(allocTuple(t, h, value.Unit, value.Unit).Handle())
		require.NoError(t, err)
	}

	_, err := h.AllocateBlock(2, heap.TagTuple)
	require.True(t, errors.Is(err, memutils.ErrOutOfMemory))
	require.Equal(t, 4, h.BlockCount())

	// Dropping a root lets the next allocation succeed after collecting
	frame.Set(0, value.Unit)
	_, err = h.AllocateBlock(2, heap.TagTuple)
	require.NoError(t, err)
}

func TestSweepReleasesEveryUnreachableBlockOnce(t *testing.T) {
	h, recorder := readyHeap(t, heap.CreateOptions{InitialCollectThreshold: 1 << 20})

	frame := h.Roots().Enter()
	defer frame.Leave()

	var live []value.Value
	var dead []value.Value
	liveBytes := 0
	for i := 0; i < 100; i++ {
		block := allocTuple(t, h, value.FromInt(int64(i)))
		if i%3 == 0 {
			_, err := frame.Push(block.Handle())
			require.NoError(t, err)
			live = append(live, block.Handle())
			liveBytes += heap.BlockBytes(1)
		} else {
			dead = append(dead, block.Handle())
		}
	}

	h.Collect()
	h.Collect()

	require.Len(t, recorder.freed, len(dead))
	for _, handle := range dead {
		_, freed := recorder.freed[handle]
		require.True(t, freed)
	}
	for _, handle := range live {
		require.True(t, h.IsLive(handle))
	}
	require.Equal(t, liveBytes, h.AllocatedBytes())
	require.Equal(t, len(live), h.BlockCount())
	require.NoError(t, h.Validate())
}
