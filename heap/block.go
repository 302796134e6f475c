package heap

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
)

const (
	// HeaderBytes is the number of bytes each block header is charged against the
	// collection budget
	HeaderBytes int = 24
	// SlackBytes is the fixed padding charged against the collection budget for every
	// block in addition to its header and payload
	SlackBytes int = 11

	// ClosureFuncWord is the payload index holding a closure's function id
	ClosureFuncWord int = 0
	// ClosureBoundWord is the payload index holding the count of bound arguments
	ClosureBoundWord int = 1
	// ClosureArityWord is the payload index holding the closure's total arity
	ClosureArityWord int = 2
	// ClosureHeaderWords is the number of payload words preceding a closure's arguments
	ClosureHeaderWords int = 3
)

// BlockBytes returns the padded size in bytes charged for a block of the given payload size
func BlockBytes(words int) int {
	return HeaderBytes + words*value.WordSize + SlackBytes
}

// Block is the header and payload of a single heap object. Blocks are owned by the
// Heap that allocated them; consumers hold Values, which may be resolved back into
// a Block with Heap.Block for as long as the block is reachable.
type Block struct {
	size   int
	next   *Block
	tag    Tag
	marked bool

	slot       uint32
	generation uint32
	data       []value.Value
}

// Handle returns the Value referring to this block
func (b *Block) Handle() value.Value {
	return value.FromRef(packRef(b.slot, b.generation))
}

// Tag returns the block's tag
func (b *Block) Tag() Tag {
	return b.tag
}

// Size returns the number of words in the block's payload
func (b *Block) Size() int {
	return b.size
}

// Data returns the block's payload. The returned slice aliases the block.
func (b *Block) Data() []value.Value {
	return b.data
}

// Field returns payload word i
func (b *Block) Field(i int) (value.Value, error) {
	if i < 0 || i >= b.size {
		return 0, errors.Newf("field %d is out of range for a %s block of size %d", i, b.tag, b.size)
	}

	return b.data[i], nil
}

// SetField overwrites payload word i
func (b *Block) SetField(i int, v value.Value) error {
	if i < 0 || i >= b.size {
		return errors.Newf("field %d is out of range for a %s block of size %d", i, b.tag, b.size)
	}

	b.data[i] = v
	return nil
}

// Bytes returns a byte view over every payload word after the first. For string blocks
// this is the packed character data, including padding past the logical length.
// The returned slice aliases the block.
func (b *Block) Bytes() []byte {
	if b.size < 2 {
		return nil
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(&b.data[1])), (b.size-1)*value.WordSize)
}

// closureBound returns the bound arguments of a closure block. Unbound argument slots
// hold no live values yet and are never returned.
func (b *Block) closureBound() []value.Value {
	if b.size < ClosureHeaderWords {
		return nil
	}

	bound := b.data[ClosureBoundWord]
	if !value.IsImmediate(bound) || memutils.IsPoison(bound) {
		return nil
	}

	count := int(value.ToInt(bound))
	if count < 0 {
		return nil
	}
	if count > b.size-ClosureHeaderWords {
		count = b.size - ClosureHeaderWords
	}

	return b.data[ClosureHeaderWords : ClosureHeaderWords+count]
}

func (b *Block) reset(words int, tag Tag) {
	if cap(b.data) >= words {
		b.data = b.data[:words]
	} else {
		b.data = make([]value.Value, words)
	}

	b.size = words
	b.tag = tag
	b.marked = false
	b.next = nil
	memutils.FillPoison(b.data)
}
