// SPDX-License-Identifier: MIT
package visualizer

// Mixdown turns an interleaved block into mono samples, reusing dst when it
// is large enough.
//
// A block with an even count of at least two samples is treated as stereo
// and each L,R pair is averaged. Any other block is passed through unchanged.
func Mixdown(dst, src []float32) []float32 {
	n := len(src)
	if n >= 2 && n%2 == 0 {
		half := n / 2
		dst = resize(dst, half)
		for i := range half {
			dst[i] = 0.5 * (src[2*i] + src[2*i+1])
		}
		return dst
	}

	dst = resize(dst, n)
	copy(dst, src)
	return dst
}

func resize(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}
