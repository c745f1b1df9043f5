// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// MinDecibels is treated as silence by DbToLinear.
const MinDecibels = -80.0

// DbToLinear converts a gain in decibels to a linear amplitude factor.
// Anything at or below MinDecibels maps to 0.
func DbToLinear(db float64) float64 {
	if db <= MinDecibels {
		return 0
	}
	return math.Pow(10, db/20)
}

// LinearToDb converts a linear amplitude factor to decibels, floored at
// MinDecibels.
func LinearToDb(v float64) float64 {
	if v <= 0 {
		return MinDecibels
	}
	db := 20 * math.Log10(v)
	if db < MinDecibels {
		return MinDecibels
	}
	return db
}

// Clamp limits v to [lo, hi].
func Clamp[T ~int | ~int32 | ~int64 | ~float32 | ~float64](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
