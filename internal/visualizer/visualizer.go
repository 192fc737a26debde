// SPDX-License-Identifier: MIT
/*
Package visualizer wires loopback capture into the spectrum engine and hands
the resulting bins to consumers.

Per captured block, on the capture thread:
  - mix interleaved stereo down to mono
  - append the mono samples to the recording, when one is configured
  - push the mono samples into the spectrum engine
  - compute the bins, apply the configured smoothing
  - store a snapshot for pull-based consumers and send a Frame to the transport

Thread Safety:
  - The engine and smoother are only touched on the capture thread.
  - LatestBinsInto may be called from any goroutine.
*/
package visualizer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"visualizer/internal/capture"
	applog "visualizer/internal/log"
	"visualizer/internal/spectrum"
	"visualizer/internal/transport"
)

// commandError is a command outcome with a stable code for consumers.
type commandError string

func (e commandError) Error() string { return string(e) }
func (e commandError) Code() string  { return string(e) }

var (
	// ErrInitFailed is the outcome of a "start" command whose capture could not be set up.
	ErrInitFailed error = commandError("init_failed")
	// ErrNotImplemented is returned for unknown commands.
	ErrNotImplemented error = commandError("not_implemented")
	// ErrShortBuffer is returned by LatestBinsInto when dst cannot hold BinCount values.
	ErrShortBuffer = errors.New("visualizer: destination shorter than bin count")
)

// Capturer is the capture source the visualizer drives.
type Capturer interface {
	Initialize() error
	Start(callback capture.Callback) error
	Stop()
	SampleRate() int
	Close() error
}

// Frame is one spectrum update as delivered to transports.
type Frame struct {
	Sequence   uint64    `json:"seq"`
	Timestamp  time.Time `json:"timestamp"`
	SampleRate int       `json:"sample_rate"`
	Bins       []float64 `json:"bins"`
}

func (f Frame) String() string {
	return fmt.Sprintf("frame %d @%d Hz, %d bins", f.Sequence, f.SampleRate, len(f.Bins))
}

// Visualizer turns captured audio into spectrum frames.
type Visualizer struct {
	source    Capturer
	engine    *spectrum.Engine
	transport transport.Transport
	recorder  *Recorder
	waitFull  bool

	lifecycle sync.Mutex

	// capture thread only
	smoother *spectrum.Smoother
	mono     []float32

	mu     sync.RWMutex
	latest []float64
	seq    uint64
}

// Option configures a Visualizer.
type Option func(*Visualizer)

// WithTransport sets where frames are sent.
func WithTransport(t transport.Transport) Option {
	return func(v *Visualizer) { v.transport = t }
}

// WithRecorder records the mono stream while capture runs.
func WithRecorder(r *Recorder) Option {
	return func(v *Visualizer) { v.recorder = r }
}

// WithWaitForFullWindow holds frames back until the engine has seen one full window.
func WithWaitForFullWindow(wait bool) Option {
	return func(v *Visualizer) { v.waitFull = wait }
}

// New creates a Visualizer. Nothing is captured until Start.
func New(source Capturer, engine *spectrum.Engine, opts ...Option) *Visualizer {
	v := &Visualizer{
		source:   source,
		engine:   engine,
		smoother: spectrum.NewSmoother(engine.BinCount()),
		latest:   make([]float64, engine.BinCount()),
	}
	for _, opt := range opts {
		opt(v)
	}

	applog.Infof("Visualizer: Initialized (Window: %d, Bands: %d, Smoothing: %.3f)",
		engine.WindowSize(), engine.BinCount(), engine.Smoothing())
	return v
}

// Start initializes capture and starts delivering frames. It is idempotent.
// Failures wrap ErrInitFailed.
func (v *Visualizer) Start() error {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	if err := v.source.Initialize(); err != nil {
		applog.Errorf("Visualizer: Capture initialization failed: %v", err)
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	if v.recorder != nil {
		if err := v.recorder.Open(v.source.SampleRate()); err != nil {
			applog.Warnf("Visualizer: Recording disabled: %v", err)
			v.recorder = nil
		}
	}
	if err := v.source.Start(v.onBlock); err != nil {
		applog.Errorf("Visualizer: Capture start failed: %v", err)
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	applog.Infof("Visualizer: Capture running at %d Hz", v.source.SampleRate())
	return nil
}

// Stop halts capture. It always succeeds and is idempotent.
func (v *Visualizer) Stop() {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	v.source.Stop()
	// The capture thread has joined, the smoother is ours again.
	v.smoother.Reset()
	applog.Infof("Visualizer: Capture stopped")
}

// HandleCommand executes "start" or "stop".
func (v *Visualizer) HandleCommand(method string) error {
	switch method {
	case "start":
		return v.Start()
	case "stop":
		v.Stop()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrNotImplemented, method)
	}
}

// BinCount returns the number of bins per frame.
func (v *Visualizer) BinCount() int {
	return v.engine.BinCount()
}

// SampleRate returns the capture sample rate.
func (v *Visualizer) SampleRate() int {
	return v.source.SampleRate()
}

// LatestBinsInto copies the most recent bins into dst.
func (v *Visualizer) LatestBinsInto(dst []float64) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(dst) < len(v.latest) {
		return ErrShortBuffer
	}
	copy(dst, v.latest)
	return nil
}

// Sequence returns the number of frames produced so far.
func (v *Visualizer) Sequence() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.seq
}

// Close stops capture, releases the capture source and finalizes the
// recording.
func (v *Visualizer) Close() error {
	v.Stop()
	err := v.source.Close()

	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()
	if v.recorder != nil {
		err = errors.Join(err, v.recorder.Close())
	}
	return err
}

// onBlock runs on the capture thread for every delivered block.
func (v *Visualizer) onBlock(samples []float32) {
	v.mono = Mixdown(v.mono, samples)
	if v.recorder != nil {
		if err := v.recorder.Write(v.mono); err != nil {
			applog.Debugf("Visualizer: Recording write failed: %v", err)
		}
	}
	v.engine.PushSamples(v.mono)

	if v.waitFull && !v.engine.Ready() {
		return
	}

	bins := v.engine.GetBins()
	v.smoother.Apply(bins, v.engine.Smoothing())

	v.mu.Lock()
	copy(v.latest, bins)
	v.seq++
	seq := v.seq
	v.mu.Unlock()

	if v.transport == nil {
		return
	}
	frame := Frame{
		Sequence:   seq,
		Timestamp:  time.Now(),
		SampleRate: v.source.SampleRate(),
		Bins:       bins,
	}
	if err := v.transport.Send(frame); err != nil {
		applog.Debugf("Visualizer: Send frame %d failed: %v", seq, err)
	}
}

var (
	_ transport.CommandHandler = (*Visualizer)(nil)
	_ transport.BinsProvider   = (*Visualizer)(nil)
	_ Capturer                 = (*capture.Source)(nil)
)
