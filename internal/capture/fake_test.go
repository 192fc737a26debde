// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend always has a packet ready and records how it is driven.
type fakeBackend struct {
	mu          sync.Mutex
	format      Format
	frames      int
	silent      bool
	fill        float32
	enumErr     error
	activateErr error
	startErr    error
	onChange    func()

	failPackets atomic.Bool

	enumerators atomic.Int32
	enumClosed  atomic.Bool
	devices     atomic.Int32
	released    atomic.Int32
	held        atomic.Int32
	threads     atomic.Int32
	maxThreads  atomic.Int32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		format: Format{SampleRate: 48000, Channels: 2, Float: true},
		frames: 64,
		fill:   0.25,
	}
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) triggerChange() {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) AttachThread() (func(), error) {
	n := b.threads.Add(1)
	for {
		m := b.maxThreads.Load()
		if n <= m || b.maxThreads.CompareAndSwap(m, n) {
			break
		}
	}
	return func() { b.threads.Add(-1) }, nil
}

func (b *fakeBackend) NewEnumerator() (Enumerator, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.enumErr != nil {
		return nil, b.enumErr
	}
	b.enumerators.Add(1)
	return &fakeEnumerator{b: b}, nil
}

type fakeEnumerator struct{ b *fakeBackend }

func (e *fakeEnumerator) DefaultOutput() (Device, error) {
	n := e.b.devices.Add(1)
	return &fakeDevice{b: e.b, id: fmt.Sprintf("fake-%d", n)}, nil
}

func (e *fakeEnumerator) Subscribe(fn func()) error {
	e.b.set(func(b *fakeBackend) { b.onChange = fn })
	return nil
}

func (e *fakeEnumerator) Close() error {
	e.b.enumClosed.Store(true)
	return nil
}

type fakeDevice struct {
	b  *fakeBackend
	id string
}

func (d *fakeDevice) ID() string { return d.id }

func (d *fakeDevice) Activate() (Client, error) {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	if d.b.activateErr != nil {
		return nil, d.b.activateErr
	}
	return &fakeClient{b: d.b}, nil
}

func (d *fakeDevice) Release() {}

type fakeClient struct{ b *fakeBackend }

func (c *fakeClient) MixFormat() (Format, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	return c.b.format, nil
}

func (c *fakeClient) InitializeLoopback(Format) error { return nil }

func (c *fakeClient) CaptureClient() (CaptureClient, error) {
	return &fakeCapture{b: c.b}, nil
}

func (c *fakeClient) Start() error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	return c.b.startErr
}

func (c *fakeClient) Stop() error { return nil }

func (c *fakeClient) Release() { c.b.released.Add(1) }

type fakeCapture struct{ b *fakeBackend }

func (c *fakeCapture) NextPacketSize() (int, error) {
	time.Sleep(200 * time.Microsecond)
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	return c.b.frames, nil
}

func (c *fakeCapture) GetBuffer() (Packet, error) {
	if c.b.failPackets.Load() {
		return Packet{}, fmt.Errorf("%w: fake device unplugged", ErrDeviceInvalidated)
	}

	c.b.mu.Lock()
	frames, channels, silent, fill := c.b.frames, c.b.format.Channels, c.b.silent, c.b.fill
	c.b.mu.Unlock()

	data := make([]float32, frames*channels)
	for i := range data {
		data[i] = fill
	}
	c.b.held.Add(1)
	return Packet{Frames: frames, Silent: silent, Data: data}, nil
}

func (c *fakeCapture) ReleaseBuffer(int) error {
	c.b.held.Add(-1)
	return nil
}

func (c *fakeCapture) Release() {}

// counter is a callback that counts blocks and keeps the last one.
type counter struct {
	calls atomic.Int64
	mu    sync.Mutex
	last  []float32
}

func (c *counter) callback(samples []float32) {
	c.mu.Lock()
	c.last = append(c.last[:0], samples...)
	c.mu.Unlock()
	c.calls.Add(1)
}

func (c *counter) lastBlock() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float32(nil), c.last...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
