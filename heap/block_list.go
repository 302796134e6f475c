package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
)

// pushBlock threads a freshly-allocated block onto the head of the heap's block list
func (h *Heap) pushBlock(block *Block) {
	block.next = h.root
	h.root = block
	h.blockCount++
}

// unlinkBlock removes block from the list. prev must be the block immediately before it,
// or nil if block is the head.
func (h *Heap) unlinkBlock(prev *Block, block *Block) {
	if prev == nil {
		h.root = block.next
	} else {
		prev.next = block.next
	}

	block.next = nil
	h.blockCount--
}

func (h *Heap) validateBlockList() error {
	declaredCount := h.blockCount
	actualCount := 0
	actualBytes := 0

	for block := h.root; block != nil; block = block.next {
		actualCount++
		actualBytes += BlockBytes(block.size)

		if actualCount > declaredCount {
			return errors.Errorf("the block list holds more than the %d blocks the heap has declared, or it contains a cycle", declaredCount)
		}

		if block.marked {
			return errors.Errorf("block %s is still marked outside of a collection", block.Handle())
		}

		if block.size != len(block.data) {
			return errors.Errorf("block %s declares a size of %d but holds %d words", block.Handle(), block.size, len(block.data))
		}

		if int(block.slot) >= len(h.slots) || h.slots[block.slot].block != block {
			return errors.Errorf("block %s is in the block list but is not registered in its slot", block.Handle())
		}

		if block.tag == TagClosure {
			err := validateClosure(block)
			if err != nil {
				return err
			}
		}
	}

	if declaredCount != actualCount {
		return errors.Errorf("the listed number of blocks in the heap (%d) does not match the actual number of blocks (%d)", declaredCount, actualCount)
	}

	if actualBytes != h.allocatedBytes {
		return errors.Errorf("the heap has charged %d bytes, but the live blocks only add up to %d", h.allocatedBytes, actualBytes)
	}

	return nil
}

func validateClosure(block *Block) error {
	if block.size < ClosureHeaderWords {
		return errors.Errorf("closure %s has %d words, fewer than its %d word header", block.Handle(), block.size, ClosureHeaderWords)
	}

	bound := block.data[ClosureBoundWord]
	arity := block.data[ClosureArityWord]
	if memutils.IsPoison(bound) || memutils.IsPoison(arity) {
		// Header has not been written yet
		return nil
	}

	boundCount := int(value.ToInt(bound))
	arityCount := int(value.ToInt(arity))
	if boundCount < 0 || boundCount > arityCount {
		return errors.Errorf("closure %s has %d bound arguments, outside of its arity %d", block.Handle(), boundCount, arityCount)
	}

	if arityCount+ClosureHeaderWords > block.size {
		return errors.Errorf("closure %s has arity %d, but only room for %d arguments", block.Handle(), arityCount, block.size-ClosureHeaderWords)
	}

	return nil
}
