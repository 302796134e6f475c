package memutils

// Validatable is used by the DebugValidate method to allow it to act upon
// all types with a Validate method
type Validatable interface {
	Validate() error
}

const (
	// PoisonWord is written across the payload of every newly-allocated block. Every byte
	// is 0x01, so the word is odd: it reads as an immediate, is never traced by the collector,
	// and is distinguishable from the encoded integer zero.
	PoisonWord uint64 = 0x0101010101010101
)

// FillPoison writes PoisonWord across words
func FillPoison[T ~uint64](words []T) {
	for i := range words {
		words[i] = T(PoisonWord)
	}
}

// IsPoison reports whether word still holds the pattern written by FillPoison
func IsPoison[T ~uint64](word T) bool {
	return uint64(word) == PoisonWord
}
