package heap

import (
	"context"

	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
	"golang.org/x/exp/slog"
)

// CollectionResult describes a single mark and sweep cycle
type CollectionResult struct {
	BlocksBefore int
	BytesBefore  int

	ReclaimedBlocks int
	ReclaimedBytes  int

	BlocksAfter int
	BytesAfter  int

	// Threshold is the allocated byte count that will trigger the next collection
	Threshold int
}

// Collect runs a full mark and sweep cycle. Every block reachable from the root stack or a
// registered RootSet survives; every other block is reclaimed and its handle invalidated.
// Calling Collect while a collection is already running is a no-op.
func (h *Heap) Collect() CollectionResult {
	h.logger.Debug("Heap::Collect")

	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.collect()
}

func (h *Heap) collect() CollectionResult {
	if h.collecting {
		return CollectionResult{
			BlocksBefore: h.blockCount,
			BytesBefore:  h.allocatedBytes,
			BlocksAfter:  h.blockCount,
			BytesAfter:   h.allocatedBytes,
			Threshold:    h.collectThreshold,
		}
	}

	h.collecting = true
	result := CollectionResult{
		BlocksBefore: h.blockCount,
		BytesBefore:  h.allocatedBytes,
	}

	h.mark()
	result.ReclaimedBlocks = h.sweep()

	h.collectThreshold = h.allocatedBytes * 2
	if h.collectThreshold < h.minCollectThreshold {
		h.collectThreshold = h.minCollectThreshold
	}
	h.collecting = false

	result.BlocksAfter = h.blockCount
	result.BytesAfter = h.allocatedBytes
	result.ReclaimedBytes = result.BytesBefore - result.BytesAfter
	result.Threshold = h.collectThreshold
	h.collectionStats.AddCollection(result.ReclaimedBlocks, result.ReclaimedBytes)

	h.logger.LogAttrs(context.Background(), slog.LevelDebug, "collection complete",
		slog.Int("ReclaimedBlocks", result.ReclaimedBlocks),
		slog.Int("ReclaimedBytes", result.ReclaimedBytes),
		slog.Int("LiveBlocks", result.BlocksAfter),
		slog.Int("LiveBytes", result.BytesAfter),
		slog.Int("Threshold", result.Threshold),
	)

	memutils.DebugValidate(h)
	h.callbacks.Collect(result)

	return result
}

// mark traces every block reachable from the roots. Roots are conservative: a root word
// that does not resolve to a live block is ignored. Within the heap, references are
// precise and a dangling one indicates corruption, so it is logged.
func (h *Heap) mark() {
	gray := h.gray[:0]

	markRoot := func(v value.Value) {
		block := h.lookup(v)
		if block == nil || block.marked {
			return
		}

		block.marked = true
		gray = append(gray, block)
	}

	markChild := func(parent *Block, v value.Value) {
		if value.IsImmediate(v) {
			return
		}

		block := h.lookup(v)
		if block == nil {
			h.logger.LogAttrs(context.Background(), slog.LevelWarn, "dangling reference found while marking",
				slog.String("Parent", parent.Handle().String()),
				slog.String("Tag", parent.tag.String()),
				slog.String("Reference", v.String()),
			)
			return
		}

		if block.marked {
			return
		}

		block.marked = true
		gray = append(gray, block)
	}

	h.roots.VisitRoots(markRoot)
	for _, rootSet := range h.rootSets {
		rootSet.VisitRoots(markRoot)
	}

	for len(gray) > 0 {
		block := gray[len(gray)-1]
		gray = gray[:len(gray)-1]

		switch {
		case block.tag == TagClosure:
			for _, arg := range block.closureBound() {
				markChild(block, arg)
			}
		case block.tag.Scannable():
			for _, field := range block.data {
				markChild(block, field)
			}
		}
	}

	// Keep the grown buffer for the next cycle
	h.gray = gray[:0]
}

// sweep reclaims every unmarked block, clears the mark on every survivor, and recomputes
// the allocated byte count from the survivors. It returns the number of reclaimed blocks.
func (h *Heap) sweep() int {
	var prev *Block
	reclaimed := 0
	h.allocatedBytes = 0

	for block := h.root; block != nil; {
		next := block.next

		if block.marked {
			block.marked = false
			h.allocatedBytes += BlockBytes(block.size)
			prev = block
		} else {
			h.unlinkBlock(prev, block)
			h.releaseBlock(block)
			reclaimed++
		}

		block = next
	}

	return reclaimed
}
