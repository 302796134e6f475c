package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint | ~int64 | ~uint64
}

// CheckNonNegative returns an error if number is negative
func CheckNonNegative[T Number](number T, name string) error {
	if number < 0 {
		return cerrors.Newf("%s must not be negative, but is %d", name, number)
	}
	return nil
}

