package heap

import (
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/internal/utils"
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
	"golang.org/x/exp/slog"
)

const (
	generationMask uint32 = math.MaxInt32
	maxSlots       int    = math.MaxInt32
)

var blockAllocator = sync.Pool{
	New: func() any {
		return &Block{}
	},
}

// packRef builds the reference stored in a Value from a slot index and generation. Slot 0
// is stored as 1 so that no live reference is ever the zero word.
func packRef(slot uint32, generation uint32) uint64 {
	return uint64(generation&generationMask)<<32 | (uint64(slot) + 1)
}

func unpackRef(ref uint64) (slot uint32, generation uint32, ok bool) {
	low := ref & math.MaxUint32
	if low == 0 {
		return 0, 0, false
	}

	return uint32(low - 1), uint32(ref >> 32), true
}

type heapSlot struct {
	block      *Block
	generation uint32
}

// Heap is an arena of garbage-collected blocks. Blocks are addressed by generation-checked
// handles packed into Values, so a reference to a block that has been reclaimed is detected
// rather than silently aliasing whatever reused the slot.
//
// A Heap serves a single mutator. Allocation, collection and the root stack must be driven
// from one goroutine; the internal mutex only allows statistics to be read from elsewhere.
type Heap struct {
	mutex       utils.OptionalRWMutex
	logger      *slog.Logger
	callbacks   heapCallbacks
	createFlags CreateFlags

	slots     []heapSlot
	freeSlots []uint32

	// root is the head of the intrusive list threading every live block
	root       *Block
	blockCount int

	allocatedBytes      int
	collectThreshold    int
	minCollectThreshold int
	heapSizeLimit       int

	collecting bool
	gray       []*Block

	roots    RootStack
	rootSets []RootSet

	collectionStats memutils.DetailedStatistics
}

// AllocateBlock carves a new block with a payload of words values and the provided tag.
// If the allocation would push the allocated byte count past the collection threshold,
// a full collection runs first, so any Value not reachable from the root stack or a
// registered RootSet may be reclaimed by this call.
//
// The payload is filled with memutils.PoisonWord. Callers must initialize every field
// they intend to read.
func (h *Heap) AllocateBlock(words int, tag Tag) (*Block, error) {
	err := memutils.CheckNonNegative(words, "block size")
	if err != nil {
		return nil, err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	requested := BlockBytes(words)
	collected := false
	if h.allocatedBytes+requested > h.collectThreshold {
		h.collect()
		collected = true
	}

	if h.heapSizeLimit > 0 && h.allocatedBytes+requested > h.heapSizeLimit && !collected {
		h.collect()
	}

	if h.heapSizeLimit > 0 && h.allocatedBytes+requested > h.heapSizeLimit {
		return nil, errors.Wrapf(memutils.ErrOutOfMemory, "a %s block of %d words needs %d bytes, but %d of %d bytes are live",
			tag, words, requested, h.allocatedBytes, h.heapSizeLimit)
	}

	slot, generation, err := h.takeSlot()
	if err != nil {
		return nil, err
	}

	block := blockAllocator.Get().(*Block)
	block.reset(words, tag)
	block.slot = slot
	block.generation = generation
	h.slots[slot].block = block

	h.pushBlock(block)
	h.allocatedBytes += requested

	h.callbacks.Allocate(block)
	return block, nil
}

// Block resolves a reference into the block it refers to. It returns an error wrapping
// memutils.ErrInvalidReference if v is an immediate, refers to a block that has been
// reclaimed, or was never produced by this heap.
func (h *Heap) Block(v value.Value) (*Block, error) {
	block := h.lookup(v)
	if block == nil {
		return nil, errors.Wrapf(memutils.ErrInvalidReference, "%s", v)
	}

	return block, nil
}

// BlockOfTag resolves a reference like Block, and additionally verifies the block's tag
func (h *Heap) BlockOfTag(v value.Value, tag Tag) (*Block, error) {
	block, err := h.Block(v)
	if err != nil {
		return nil, err
	}

	if block.tag != tag {
		return nil, errors.Newf("expected a %s block, but %s is a %s block", tag, v, block.tag)
	}

	return block, nil
}

// IsLive reports whether v refers to a live block in this heap
func (h *Heap) IsLive(v value.Value) bool {
	return h.lookup(v) != nil
}

func (h *Heap) lookup(v value.Value) *Block {
	if !value.IsReference(v) {
		return nil
	}

	slot, generation, ok := unpackRef(v.Ref())
	if !ok || int(slot) >= len(h.slots) {
		return nil
	}

	entry := h.slots[slot]
	if entry.block == nil || entry.generation != generation {
		return nil
	}

	return entry.block
}

func (h *Heap) takeSlot() (uint32, uint32, error) {
	if count := len(h.freeSlots); count > 0 {
		slot := h.freeSlots[count-1]
		h.freeSlots = h.freeSlots[:count-1]
		return slot, h.slots[slot].generation, nil
	}

	if len(h.slots) >= maxSlots {
		return 0, 0, errors.Wrapf(memutils.ErrOutOfMemory, "all %d block handles are in use", maxSlots)
	}

	h.slots = append(h.slots, heapSlot{})
	return uint32(len(h.slots) - 1), 0, nil
}

func (h *Heap) releaseBlock(block *Block) {
	handle := block.Handle()
	tag := block.tag
	size := block.size

	entry := &h.slots[block.slot]
	entry.block = nil
	entry.generation = (entry.generation + 1) & generationMask
	h.freeSlots = append(h.freeSlots, block.slot)

	memutils.FillDead(block.data)
	block.next = nil
	blockAllocator.Put(block)

	h.callbacks.Free(handle, tag, size)
}

// Roots returns the heap's root stack
func (h *Heap) Roots() *RootStack {
	return &h.roots
}

// RegisterRootSet adds a source of roots that is enumerated at the start of every collection
func (h *Heap) RegisterRootSet(rootSet RootSet) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.rootSets = append(h.rootSets, rootSet)
}

// WithFrame enters a new root frame, calls fn with it, and leaves the frame when fn returns
func (h *Heap) WithFrame(fn func(frame *Frame) error) error {
	frame := h.roots.Enter()
	defer frame.Leave()

	return fn(&frame)
}

// AllocatedBytes returns the number of bytes currently charged against the collection budget
func (h *Heap) AllocatedBytes() int {
	return utils.ReadLocked(&h.mutex, func() int { return h.allocatedBytes })
}

// CollectThreshold returns the allocated byte count past which the next collection will run
func (h *Heap) CollectThreshold() int {
	return utils.ReadLocked(&h.mutex, func() int { return h.collectThreshold })
}

// BlockCount returns the number of live blocks
func (h *Heap) BlockCount() int {
	return utils.ReadLocked(&h.mutex, func() int { return h.blockCount })
}

// Validate performs internal consistency checks on the heap. It must be called from the
// mutator, and never during a collection.
func (h *Heap) Validate() error {
	if h.collecting {
		return errors.New("the heap cannot be validated during a collection")
	}

	err := h.validateBlockList()
	if err != nil {
		return err
	}

	liveSlots := 0
	for slotIndex, entry := range h.slots {
		if entry.block == nil {
			continue
		}

		liveSlots++
		if entry.block.slot != uint32(slotIndex) || entry.block.generation != entry.generation {
			return errors.Errorf("slot %d holds a block that believes it lives in slot %d generation %d", slotIndex, entry.block.slot, entry.block.generation)
		}
	}

	if liveSlots != h.blockCount {
		return errors.Errorf("the heap lists %d blocks, but %d slots are occupied", h.blockCount, liveSlots)
	}

	if liveSlots+len(h.freeSlots) != len(h.slots) {
		return errors.Errorf("%d live slots and %d free slots do not account for all %d slots", liveSlots, len(h.freeSlots), len(h.slots))
	}

	return h.roots.Validate()
}
