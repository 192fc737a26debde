// SPDX-License-Identifier: MIT
/*
Package spectrum turns a live mono sample stream into a small vector of
log-spaced, log-compressed frequency bands suitable for visualization.

Pipeline per GetBins call:
  - copy the newest windowSize samples out of the ring buffer (oldest first)
  - apply a Hann window
  - iterative in-place radix-2 FFT
  - magnitudes of the first N/2 bins, normalized by their maximum
  - average into binCount log-spaced bands, compressed with log10(1 + 9v)

Thread Safety:
  - PushSamples and GetBins share the ring buffer without locking. Both must be
    called from the same goroutine (normally the capture callback). Readers on
    other goroutines need their own synchronization.
*/
package spectrum

import (
	"math"
	"sync/atomic"

	applog "visualizer/internal/log"
	"visualizer/pkg/bitint"

	"gonum.org/v1/gonum/dsp/window"
)

const (
	// DefaultWindowSize replaces any window size that is not a power of two.
	DefaultWindowSize = 2048
	// DefaultBinCount replaces a non-positive band count.
	DefaultBinCount = 64
	// MaxSmoothing is the upper clamp for SetSmoothing.
	MaxSmoothing = 0.999

	// magnitudeFloor keeps the normalization away from a division by zero.
	magnitudeFloor = 1e-12
)

// Engine owns the circular sample buffer and the fixed FFT configuration.
type Engine struct {
	windowSize int
	binCount   int

	ring   []float32 // capacity = 2 * windowSize
	pos    int       // next write position
	pushed uint64    // total samples ever pushed, saturating

	hann []float64 // pre-computed Hann coefficients

	smoothing atomic.Uint64 // float64 bits
}

// New creates an engine. windowSize must be a power of two, otherwise
// DefaultWindowSize is used. binCount <= 0 falls back to DefaultBinCount.
func New(windowSize, binCount int) *Engine {
	if !bitint.IsPowerOfTwo(windowSize) {
		applog.Debugf("Spectrum: window size %d is not a power of two, using %d", windowSize, DefaultWindowSize)
		windowSize = DefaultWindowSize
	}
	if binCount <= 0 {
		binCount = DefaultBinCount
	}

	hann := make([]float64, windowSize)
	for i := range hann {
		hann[i] = 1.0
	}
	window.Hann(hann)

	applog.Debugf("Spectrum: Initializing engine (Window: %d, Bands: %d)", windowSize, binCount)

	return &Engine{
		windowSize: windowSize,
		binCount:   binCount,
		ring:       make([]float32, 2*windowSize),
		hann:       hann,
	}
}

// WindowSize returns the FFT length in samples.
func (e *Engine) WindowSize() int { return e.windowSize }

// BinCount returns the number of output bands.
func (e *Engine) BinCount() int { return e.binCount }

// Capacity returns the ring buffer size, always 2 * WindowSize.
func (e *Engine) Capacity() int { return len(e.ring) }

// Ready reports whether at least one full window of real samples has been pushed.
// GetBins works before that point, treating the untouched part of the buffer as silence.
func (e *Engine) Ready() bool {
	return e.pushed >= uint64(e.windowSize)
}

// SetSmoothing stores the exponential smoothing factor, clamped to [0, MaxSmoothing].
// GetBins does not use it; callers apply it through a Smoother.
func (e *Engine) SetSmoothing(alpha float64) {
	if math.IsNaN(alpha) || alpha < 0 {
		alpha = 0
	}
	if alpha > MaxSmoothing {
		alpha = MaxSmoothing
	}
	e.smoothing.Store(math.Float64bits(alpha))
}

// Smoothing returns the stored smoothing factor.
func (e *Engine) Smoothing() float64 {
	return math.Float64frombits(e.smoothing.Load())
}

// PushSamples appends mono samples to the ring buffer, overwriting the oldest
// samples once it wraps. It never blocks and never fails.
func (e *Engine) PushSamples(samples []float32) {
	size := len(e.ring)
	for _, s := range samples {
		e.ring[e.pos] = s
		e.pos++
		if e.pos == size {
			e.pos = 0
		}
	}
	if e.pushed < math.MaxUint64-uint64(len(samples)) {
		e.pushed += uint64(len(samples))
	} else {
		e.pushed = math.MaxUint64
	}
}

// latestWindow copies the newest windowSize samples, oldest first, into dst.
func (e *Engine) latestWindow(dst []float64) {
	size := len(e.ring)
	start := (e.pos - e.windowSize + size) % size
	for i := range e.windowSize {
		dst[i] = float64(e.ring[(start+i)%size])
	}
}

// GetBins computes the band vector for the current buffer contents. The result
// has exactly BinCount values, each within [0, 1], lowest frequency first.
// It is a pure function of the ring buffer and does not modify the engine.
func (e *Engine) GetBins() []float64 {
	samples := make([]float64, e.windowSize)
	e.latestWindow(samples)

	data := make([]complex128, e.windowSize)
	for i, s := range samples {
		data[i] = complex(s*e.hann[i], 0)
	}
	transform(data)

	mags, maxMag := magnitudes(data)
	return aggregate(mags, maxMag, e.binCount)
}
