// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size FFT windows and
the ring buffer that feeds them.

The radix-2 transform only accepts lengths that are exact powers of two, so
every window size entering the spectrum engine is checked with IsPowerOfTwo.
Configuration validation uses NextPowerOfTwo to suggest the closest usable
size when a user supplies something else.

Usage:

	if !bitint.IsPowerOfTwo(windowSize) {
		windowSize = 2048
	}

	suggested := bitint.NextPowerOfTwo(1000) // 1024
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size.
//
// size-1 is taken before finding the highest set bit so that exact powers of
// two map to themselves (8 -> 8, not 16).
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
// A power of two has exactly one bit set, so n & (n-1) clears it to zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns log2(n) for a power of two n, i.e. the number of butterfly
// stages a radix-2 FFT of length n needs. It returns -1 if n is not a power of two.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
