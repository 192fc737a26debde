// SPDX-License-Identifier: MIT
package spectrum

// Smoother damps frame-to-frame variation of a band vector with a per-band
// exponential moving average:
//
//	out[b] = alpha*prev[b] + (1-alpha)*in[b]
//
// It keeps its own history so Engine.GetBins can stay stateless. The first
// frame after creation or Reset passes through unchanged.
type Smoother struct {
	prev   []float64
	primed bool
}

// NewSmoother creates a smoother for vectors of length n.
func NewSmoother(n int) *Smoother {
	return &Smoother{prev: make([]float64, n)}
}

// Apply smooths bins in place with the given alpha and records the result as
// history. alpha <= 0 disables smoothing. A length mismatch resets the history.
func (s *Smoother) Apply(bins []float64, alpha float64) {
	if len(bins) != len(s.prev) {
		s.prev = make([]float64, len(bins))
		s.primed = false
	}
	if alpha > 0 && s.primed {
		for i, v := range bins {
			bins[i] = alpha*s.prev[i] + (1-alpha)*v
		}
	}
	copy(s.prev, bins)
	s.primed = true
}

// Reset drops the history.
func (s *Smoother) Reset() {
	clear(s.prev)
	s.primed = false
}
