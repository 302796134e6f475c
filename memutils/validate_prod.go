//go:build !debug_mem_utils

package memutils

// FillDead overwrites the payload of a reclaimed block with an easy-to-identify marker
// so that reads through dangling references are recognizable.
// This method no-ops unless the debug_mem_utils build tag is present.
func FillDead[T ~uint64](words []T) {
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
}
