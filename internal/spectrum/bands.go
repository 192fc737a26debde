// SPDX-License-Identifier: MIT
package spectrum

import "math"

// bandRange returns the inclusive magnitude index range covered by band b of
// count bands over half magnitudes. Edges grow geometrically: half^(b/count)
// to half^((b+1)/count).
func bandRange(b, count, half int) (lo, hi int) {
	low := math.Pow(float64(half), float64(b)/float64(count))
	high := math.Pow(float64(half), float64(b+1)/float64(count))

	lo = max(0, int(math.Floor(low)))
	hi = min(half-1, int(math.Ceil(high)))
	return lo, hi
}

// aggregate averages mags into count log-spaced bands, normalizes each by
// maxMag and compresses it with log10(1 + 9v) into [0, 1].
func aggregate(mags []float64, maxMag float64, count int) []float64 {
	half := len(mags)
	out := make([]float64, count)

	for b := range count {
		lo, hi := bandRange(b, count, half)

		sum := 0.0
		for k := lo; k <= hi; k++ {
			sum += mags[k]
		}
		n := max(1, hi-lo+1)

		value := (sum / float64(n)) / (maxMag + magnitudeFloor)
		scaled := math.Log10(1 + 9*value)
		if math.IsNaN(scaled) {
			scaled = 0
		}
		out[b] = math.Min(1, math.Max(0, scaled))
	}

	return out
}

// FrequencyForBand returns the lower edge frequency in Hz of band b for the
// given window size and sample rate.
func FrequencyForBand(b, count, windowSize int, sampleRate float64) float64 {
	if b < 0 || b >= count || windowSize <= 0 {
		return 0
	}
	lo, _ := bandRange(b, count, windowSize/2)
	return float64(lo) * sampleRate / float64(windowSize)
}
