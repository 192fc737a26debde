// SPDX-License-Identifier: MIT
package spectrum

import (
	"math"
	"math/cmplx"
)

// transform computes the forward DFT of data in place. len(data) must be a
// power of two.
//
// Iterative radix-2: bit-reversal permutation, then butterflies for block
// lengths 2, 4, 8 ... N with twiddle e^(-2πi/len) accumulated by repeated
// multiplication inside each block.
func transform(data []complex128) {
	n := len(data)
	bitReverse(data)

	for size := 2; size <= n; size <<= 1 {
		angle := -2 * math.Pi / float64(size)
		step := complex(math.Cos(angle), math.Sin(angle))
		half := size >> 1
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for j := range half {
				u := data[start+j]
				v := data[start+j+half] * w
				data[start+j] = u + v
				data[start+j+half] = u - v
				w *= step
			}
		}
	}
}

// bitReverse reorders data so that element i moves to the index whose bits
// are the reverse of i.
func bitReverse(data []complex128) {
	n := len(data)
	j := 0
	for i := range n {
		if i < j {
			data[i], data[j] = data[j], data[i]
		}
		m := n >> 1
		for m > 0 && j >= m {
			j -= m
			m >>= 1
		}
		j += m
	}
}

// magnitudes returns |X[k]| for the non-redundant half k < N/2 and the largest
// of them, floored at magnitudeFloor.
func magnitudes(data []complex128) ([]float64, float64) {
	half := len(data) / 2
	mags := make([]float64, half)
	maxMag := magnitudeFloor
	for i := range half {
		mags[i] = cmplx.Abs(data[i])
		if mags[i] > maxMag {
			maxMag = mags[i]
		}
	}
	return mags, maxMag
}
