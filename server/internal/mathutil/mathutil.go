// Package mathutil implements generic numeric helpers shared by the world and
// generator packages.
package mathutil

import (
	"golang.org/x/exp/constraints"
)

// Lerp linearly interpolates between a and b by the fraction t.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + t*(b-a)
}

// Clamp limits v to the inclusive range [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
