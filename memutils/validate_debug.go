//go:build debug_mem_utils

package memutils

const (
	// deadWord is copied over the payload of reclaimed blocks. It is odd so that a
	// collector walking a dangling reference never treats it as a child
	deadWord uint64 = 0x7F84E6667F84E667
)

// FillDead overwrites the payload of a reclaimed block with an easy-to-identify marker
// so that reads through dangling references are recognizable.
// This method no-ops unless the debug_mem_utils build tag is present.
func FillDead[T ~uint64](words []T) {
	for i := range words {
		words[i] = T(deadWord)
	}
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}
