package heap

import "github.com/vkngwrapper/mlrt/value"

// AllocateBlockCallback is called after a block has been allocated and threaded into the heap
type AllocateBlockCallback func(
	heap *Heap,
	block *Block,
	userData interface{},
)

// FreeBlockCallback is called while sweeping, once for each block that is reclaimed. The
// handle is no longer valid by the time the callback runs.
type FreeBlockCallback func(
	heap *Heap,
	handle value.Value,
	tag Tag,
	size int,
	userData interface{},
)

// CollectCallback is called at the end of every collection cycle
type CollectCallback func(
	heap *Heap,
	result CollectionResult,
	userData interface{},
)

// CallbackOptions is an optional set of callbacks that will be executed as the heap allocates
// and reclaims blocks. Callbacks run while the heap is locked and must not call back into it.
type CallbackOptions struct {
	Allocate AllocateBlockCallback
	Free     FreeBlockCallback
	Collect  CollectCallback
	UserData interface{}
}

type heapCallbacks struct {
	Callbacks *CallbackOptions
	Heap      *Heap
}

func (c *heapCallbacks) Allocate(block *Block) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.Heap, block, c.Callbacks.UserData)
	}
}

func (c *heapCallbacks) Free(handle value.Value, tag Tag, size int) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.Heap, handle, tag, size, c.Callbacks.UserData)
	}
}

func (c *heapCallbacks) Collect(result CollectionResult) {
	if c.Callbacks != nil && c.Callbacks.Collect != nil {
		c.Callbacks.Collect(c.Heap, result, c.Callbacks.UserData)
	}
}
