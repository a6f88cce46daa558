// Package msm is the GPU MSM kernel engine (spec §4.7): Pippenger's
// windowed bucket method, dispatched to one compiled Program per device and
// partitioned across devices as contiguous weighted slices of the input.
//
// The bucket-accumulation/window-reduction/recomposition algorithm is
// grounded directly on spec.md §4.7 (Pippenger's windowed bucket method);
// the device dispatch plumbing reuses the same upload/launch/readback
// pattern as package ntt.
package msm

import "math/bits"

// WindowWidth picks the Pippenger window width c for n scalars (spec §4.7:
// "a lookup table indexed by ceil(log2 n), roughly c = 8 at n = 2^10 rising
// to c <= 16 for very large n"). The breakpoints below are chosen so the
// bucket count 2^c - 1 stays a small multiple of a typical thread-block
// size at every n this engine is sized for.
func WindowWidth(n int) int {
	if n <= 1 {
		return 1
	}
	logN := bits.Len(uint(n - 1))
	switch {
	case logN <= 10:
		return 8
	case logN <= 13:
		return 10
	case logN <= 16:
		return 12
	case logN <= 20:
		return 14
	default:
		return 16
	}
}

// NumWindows returns ceil(numBits / c).
func NumWindows(numBits, c int) int {
	return (numBits + c - 1) / c
}
