// SPDX-License-Identifier: MIT
/*
Package capture delivers the audio a machine is currently playing (loopback)
as blocks of interleaved float samples.

A Source binds to the default output device through a Backend, runs one
dedicated capture thread and rebinds itself when the default device changes.

Thread Safety:
  - Lifecycle methods (Initialize, Start, Stop, HandleDeviceChange, Close) are
    serialized by one mutex and may be called from any goroutine.
  - The delivery callback runs on the capture thread. It must not call any
    lifecycle method of the same Source, since Stop joins that thread.
  - Device-scoped handles are only released once the capture thread has joined.
*/
package capture

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"visualizer/internal/config"
	applog "visualizer/internal/log"

	"github.com/google/uuid"
)

// DefaultSampleRate is reported by SampleRate before the first successful Initialize.
const DefaultSampleRate = 48000

// Callback receives one block of interleaved samples. The slice is reused for
// the next block and must not be retained after the call returns.
type Callback func(samples []float32)

// session is everything bound to one output device.
type session struct {
	id      uuid.UUID
	device  Device
	client  Client
	capture CaptureClient
	format  Format
}

func (s *session) release() {
	if s.capture != nil {
		s.capture.Release()
	}
	if s.client != nil {
		s.client.Release()
	}
	if s.device != nil {
		s.device.Release()
	}
}

// Source captures system output audio and survives default device changes.
type Source struct {
	backend      Backend
	pollInterval time.Duration

	mu          sync.Mutex
	enumerator  Enumerator // long-lived, created on first Initialize
	subscribed  bool
	session     *session
	wantRunning bool // owner intent: Start called and Stop not yet called
	closed      bool

	running    atomic.Bool // capture thread is looping
	wg         sync.WaitGroup
	sampleRate atomic.Int64

	cbMu     sync.Mutex
	callback Callback
}

// Option configures a Source.
type Option func(*Source)

// WithPollInterval sets how long the capture thread sleeps when no packet is ready.
func WithPollInterval(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// New creates a Source on top of backend. Nothing is acquired until Initialize.
func New(backend Backend, opts ...Option) *Source {
	s := &Source{
		backend:      backend,
		pollInterval: config.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sampleRate.Store(DefaultSampleRate)
	return s
}

// SampleRate returns the most recently negotiated sample rate.
func (s *Source) SampleRate() int {
	return int(s.sampleRate.Load())
}

// Running reports whether the capture thread is currently looping.
func (s *Source) Running() bool {
	return s.running.Load()
}

// Initialize binds the source to the current default output device and
// configures loopback capture on it. It is a no-op while capture is running.
// On failure no session-scoped resource is held and the call can be retried.
func (s *Source) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.running.Load() {
		return nil
	}

	s.wg.Wait()
	s.releaseSessionLocked()
	return s.initializeLocked()
}

func (s *Source) initializeLocked() error {
	if s.enumerator == nil {
		enumerator, err := s.backend.NewEnumerator()
		if err != nil {
			return fmt.Errorf("%w: device enumerator: %w", ErrInitialize, err)
		}
		s.enumerator = enumerator
	}

	if !s.subscribed {
		if err := s.enumerator.Subscribe(s.onDefaultDeviceChanged); err != nil {
			applog.Warnf("Capture: Device change notifications unavailable: %v", err)
		} else {
			s.subscribed = true
		}
	}

	sess := &session{id: uuid.New()}
	fail := func(step string, err error) error {
		sess.release()
		return fmt.Errorf("%w: %s: %w", ErrInitialize, step, err)
	}

	device, err := s.enumerator.DefaultOutput()
	if err != nil {
		return fail("default output device", err)
	}
	sess.device = device

	client, err := device.Activate()
	if err != nil {
		return fail("activate client", err)
	}
	sess.client = client

	format, err := client.MixFormat()
	if err != nil {
		return fail("mix format", err)
	}
	if !format.Float || format.Channels <= 0 || format.SampleRate <= 0 {
		return fail("mix format", fmt.Errorf("unsupported format %+v", format))
	}
	sess.format = format

	if err := client.InitializeLoopback(format); err != nil {
		return fail("initialize loopback", err)
	}

	capture, err := client.CaptureClient()
	if err != nil {
		return fail("capture client", err)
	}
	sess.capture = capture

	s.session = sess
	s.sampleRate.Store(int64(format.SampleRate))

	applog.Infof("Capture: Session %s bound to %q via %s (%d Hz, %d channels)",
		sess.id, device.ID(), s.backend.Name(), format.SampleRate, format.Channels)
	return nil
}

func (s *Source) releaseSessionLocked() {
	if s.session == nil {
		return
	}
	applog.Debugf("Capture: Releasing session %s", s.session.id)
	s.session.release()
	s.session = nil
}

// Start registers callback and starts the capture thread. If the thread is
// already running only the callback is replaced; the running thread picks it
// up on its next block.
func (s *Source) Start(callback Callback) error {
	s.cbMu.Lock()
	s.callback = callback
	s.cbMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.running.Load() {
		s.wantRunning = true
		return nil
	}
	if s.session == nil {
		return ErrNotInitialized
	}

	s.wantRunning = true
	if err := s.startLocked(); err != nil {
		s.wantRunning = false
		return err
	}
	return nil
}

// startLocked spawns the capture thread and waits until it has started the client.
func (s *Source) startLocked() error {
	// A thread that ended on its own may still be unwinding.
	s.wg.Wait()

	ready := make(chan error, 1)
	s.running.Store(true)
	s.wg.Add(1)
	go s.captureLoop(s.session, ready)

	if err := <-ready; err != nil {
		s.wg.Wait()
		return fmt.Errorf("capture: start: %w", err)
	}
	return nil
}

// Stop clears the running flag and waits for the capture thread to exit.
// It returns immediately when no thread is running.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wantRunning = false
	s.stopLocked()
}

func (s *Source) stopLocked() {
	s.running.Store(false)
	s.wg.Wait()
}

// HandleDeviceChange rebinds the source to the new default output device and
// restarts capture with the registered callback if the owner had started it.
func (s *Source) HandleDeviceChange() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	restart := s.wantRunning
	applog.Infof("Capture: Default output device changed (restart: %t)", restart)

	s.stopLocked()
	s.releaseSessionLocked()

	if err := s.initializeLocked(); err != nil {
		return err
	}
	if !restart {
		return nil
	}
	return s.startLocked()
}

func (s *Source) onDefaultDeviceChanged() {
	if err := s.HandleDeviceChange(); err != nil {
		applog.Errorf("Capture: Device change handling failed: %v", err)
	}
}

// Close stops capture and releases every resource including the enumerator.
// Later calls to other methods return ErrClosed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.wantRunning = false

	s.stopLocked()
	s.releaseSessionLocked()

	var err error
	if s.enumerator != nil {
		err = s.enumerator.Close()
		s.enumerator = nil
	}
	return err
}

// captureLoop runs on its own locked OS thread until the running flag is
// cleared or a capture call fails.
func (s *Source) captureLoop(sess *session, ready chan<- error) {
	defer s.wg.Done()
	defer s.running.Store(false)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	detach, err := s.backend.AttachThread()
	if err != nil {
		ready <- fmt.Errorf("attach thread: %w", err)
		return
	}
	defer detach()

	if err := sess.client.Start(); err != nil {
		ready <- fmt.Errorf("client start: %w", err)
		return
	}
	defer func() {
		if err := sess.client.Stop(); err != nil {
			applog.Warnf("Capture: Client stop failed: %v", err)
		}
	}()
	ready <- nil

	applog.Debugf("Capture: Thread started for session %s", sess.id)
	defer applog.Debugf("Capture: Thread exited for session %s", sess.id)

	var buf []float32
	for s.running.Load() {
		frames, err := sess.capture.NextPacketSize()
		if err != nil {
			applog.Errorf("Capture: Packet size query failed: %v", err)
			return
		}
		if frames == 0 {
			time.Sleep(s.pollInterval)
			continue
		}
		if !s.deliver(sess, &buf) {
			return
		}
	}
}

// deliver copies one packet into buf, hands it to the callback and releases
// the packet. It reports false when the loop has to stop.
func (s *Source) deliver(sess *session, buf *[]float32) (ok bool) {
	pkt, err := sess.capture.GetBuffer()
	if err != nil {
		applog.Errorf("Capture: GetBuffer failed: %v", err)
		return false
	}

	ok = true
	defer func() {
		if r := recover(); r != nil {
			applog.Errorf("Capture: Callback panicked: %v", r)
			ok = false
		}
		if err := sess.capture.ReleaseBuffer(pkt.Frames); err != nil {
			applog.Errorf("Capture: ReleaseBuffer failed: %v", err)
			ok = false
		}
	}()

	n := pkt.Frames * sess.format.Channels
	if cap(*buf) < n {
		*buf = make([]float32, n)
	}
	samples := (*buf)[:n]

	if pkt.Silent {
		clear(samples)
	} else {
		copied := copy(samples, pkt.Data)
		clear(samples[copied:])
	}

	s.cbMu.Lock()
	callback := s.callback
	s.cbMu.Unlock()

	if callback != nil {
		callback(samples)
	}
	return ok
}
