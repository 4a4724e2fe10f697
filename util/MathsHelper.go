package util

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// CeilLog1p returns the number of bits needed to represent x, i.e. ceil(log2(x+1)).
func CeilLog1p[T constraints.Integer](x T) int {
	xx := bits.LeadingZeros64(uint64(x))
	return 64 - xx
}

// FloorLog2 returns floor(log2(x)) for x > 0 and -1 for 0.
func FloorLog2[T constraints.Unsigned](x T) int {
	return 63 - bits.LeadingZeros64(uint64(x))
}

// CeilLog2 returns ceil(log2(x)) for x > 0.
func CeilLog2[T constraints.Unsigned](x T) int {
	if x <= 1 {
		return 0
	}
	return 64 - bits.LeadingZeros64(uint64(x-1))
}

func Clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
