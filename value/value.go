package value

import "fmt"

// Value is a single machine word that is either an immediate integer or a reference to a
// heap block. Immediates have their least significant bit set: the integer n is stored as
// (n << 1) | 1. References are always even.
//
// Integers outside the signed 63-bit range silently lose their top bit when encoded. This
// matches the word layout expected by generated code and is not checked.
type Value uint64

const (
	// WordSize is the size in bytes of a single Value
	WordSize int = 8

	// MaxInt is the largest integer that survives a round trip through FromInt and ToInt
	MaxInt int64 = 1<<62 - 1
	// MinInt is the smallest integer that survives a round trip through FromInt and ToInt
	MinInt int64 = -1 << 62
)

const (
	// Unit is the immediate used for the unit value and for "no result"
	Unit Value = 1
	// False is the immediate encoding of the boolean false
	False Value = 1
	// True is the immediate encoding of the boolean true
	True Value = 3
)

// FromInt encodes the integer n as an immediate
func FromInt(n int64) Value {
	return Value(uint64(n)<<1 | 1)
}

// ToInt decodes an immediate with a sign-preserving shift. Calling ToInt on a reference
// yields half its handle, which is meaningless but harmless.
func ToInt(v Value) int64 {
	return int64(v) >> 1
}

// FromBool encodes a boolean as the immediate 1 or 0
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// ToBool returns true for any immediate other than zero
func ToBool(v Value) bool {
	return ToInt(v) != 0
}

// FromRef encodes a non-zero heap reference. The heap packs its own handle layout into ref;
// this package only guarantees that the result is even.
func FromRef(ref uint64) Value {
	return Value(ref << 1)
}

// IsImmediate reports whether v holds an integer directly
func IsImmediate(v Value) bool {
	return v&1 != 0
}

// IsReference reports whether v refers to a heap block
func IsReference(v Value) bool {
	return v&1 == 0
}

// Ref returns the heap reference packed into v by FromRef
func (v Value) Ref() uint64 {
	return uint64(v) >> 1
}

func (v Value) String() string {
	if IsImmediate(v) {
		return fmt.Sprintf("%d", ToInt(v))
	}

	return fmt.Sprintf("ref(%#x)", v.Ref())
}
