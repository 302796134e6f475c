package rt

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mlrt/heap"
	"github.com/vkngwrapper/mlrt/value"
)

// String blocks hold their length as an immediate in the first word, followed by the
// characters packed into the remaining words and a NUL terminator.

// stringWords returns the payload size of a string block able to hold length bytes and
// the terminator
func stringWords(length int) int {
	return (length+1)/value.WordSize + 2
}

// CopyString allocates a string holding a copy of s
func (r *Runtime) CopyString(s string) (value.Value, error) {
	block, err := r.allocString(len(s), stringWords(len(s)))
	if err != nil {
		return value.Unit, err
	}

	bytes := block.Bytes()
	n := copy(bytes, s)
	for i := n; i < len(bytes); i++ {
		bytes[i] = 0
	}

	return block.Handle(), nil
}

// CreateBytes allocates a mutable byte string of length n. The contents are unspecified
// until written.
func (r *Runtime) CreateBytes(n int) (value.Value, error) {
	if n < 0 {
		return value.Unit, r.RaiseInvalidArgument("Bytes.create")
	}

	block, err := r.allocString(n, n/value.WordSize+2)
	if err != nil {
		return value.Unit, err
	}

	block.Bytes()[n] = 0
	return block.Handle(), nil
}

func (r *Runtime) allocString(length int, words int) (*heap.Block, error) {
	block, err := r.heap.AllocateBlock(words, heap.TagString)
	if err != nil {
		return nil, err
	}

	block.Data()[0] = value.FromInt(int64(length))
	return block, nil
}

// stringBlock resolves v as a string and returns its block and logical length
func (r *Runtime) stringBlock(v value.Value) (*heap.Block, int, error) {
	block, err := r.block(v)
	if err != nil {
		return nil, 0, err
	}

	if block.Tag() != heap.TagString {
		return nil, 0, errors.Wrapf(ErrTypeMismatch, "expected a string, but %s is a %s block", v, block.Tag())
	}

	lengthWord := block.Data()[0]
	if !value.IsImmediate(lengthWord) {
		return nil, 0, errors.Wrapf(ErrTypeMismatch, "string %s has no length", v)
	}

	length := int(value.ToInt(lengthWord))
	if length < 0 || length >= len(block.Bytes()) {
		return nil, 0, errors.Wrapf(ErrTypeMismatch, "string %s claims a length of %d in a block of %d words", v, length, block.Size())
	}

	return block, length, nil
}

// StringLength returns the length of the string s
func (r *Runtime) StringLength(s value.Value) (int, error) {
	_, length, err := r.stringBlock(s)
	return length, err
}

// BytesLength returns the length of the byte string b
func (r *Runtime) BytesLength(b value.Value) (int, error) {
	return r.StringLength(b)
}

// GoString copies the contents of the string s into a Go string
func (r *Runtime) GoString(s value.Value) (string, error) {
	block, length, err := r.stringBlock(s)
	if err != nil {
		return "", err
	}

	return string(block.Bytes()[:length]), nil
}

// StringConcat allocates a new string holding a followed by b
func (r *Runtime) StringConcat(a, b value.Value) (value.Value, error) {
	_, lengthA, err := r.stringBlock(a)
	if err != nil {
		return value.Unit, err
	}
	_, lengthB, err := r.stringBlock(b)
	if err != nil {
		return value.Unit, err
	}

	frame := r.heap.Roots().Enter()
	defer frame.Leave()

	err = frame.PushAll(a, b)
	if err != nil {
		return value.Unit, err
	}

	result, err := r.CreateBytes(lengthA + lengthB)
	if err != nil {
		return value.Unit, err
	}

	// Resolve the inputs only after the allocation, which may have collected
	blockA, _, err := r.stringBlock(frame.Get(0))
	if err != nil {
		return value.Unit, err
	}
	blockB, _, err := r.stringBlock(frame.Get(1))
	if err != nil {
		return value.Unit, err
	}
	resultBlock, _, err := r.stringBlock(result)
	if err != nil {
		return value.Unit, err
	}

	bytes := resultBlock.Bytes()
	copy(bytes, blockA.Bytes()[:lengthA])
	copy(bytes[lengthA:], blockB.Bytes()[:lengthB])
	return result, nil
}

// UnsafeGet returns byte i of s without checking it against the string's length
func (r *Runtime) UnsafeGet(s value.Value, i int) (byte, error) {
	block, _, err := r.stringBlock(s)
	if err != nil {
		return 0, err
	}

	return block.Bytes()[i], nil
}

// UnsafeSet overwrites byte i of b without checking it against the string's length
func (r *Runtime) UnsafeSet(b value.Value, i int, c byte) error {
	block, _, err := r.stringBlock(b)
	if err != nil {
		return err
	}

	block.Bytes()[i] = c
	return nil
}

// StringOfBytes returns b as an immutable string. Strings and byte strings share a
// representation, so no copy is made.
func (r *Runtime) StringOfBytes(b value.Value) (value.Value, error) {
	_, _, err := r.stringBlock(b)
	return b, err
}

// BytesOfString returns s as a byte string without copying it
func (r *Runtime) BytesOfString(s value.Value) (value.Value, error) {
	_, _, err := r.stringBlock(s)
	return s, err
}

// Blit copies n bytes from src starting at srcPos into dst starting at dstPos. The
// ranges may overlap. It raises Invalid_argument "Bytes.blit" if either range falls
// outside its string.
func (r *Runtime) Blit(src value.Value, srcPos int, dst value.Value, dstPos int, n int) error {
	srcBlock, srcLength, err := r.stringBlock(src)
	if err != nil {
		return err
	}
	dstBlock, dstLength, err := r.stringBlock(dst)
	if err != nil {
		return err
	}

	if n < 0 || srcPos < 0 || dstPos < 0 || n > srcLength-srcPos || n > dstLength-dstPos {
		return r.RaiseInvalidArgument("Bytes.blit")
	}

	copy(dstBlock.Bytes()[dstPos:dstPos+n], srcBlock.Bytes()[srcPos:srcPos+n])
	return nil
}
