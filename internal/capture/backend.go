// SPDX-License-Identifier: MIT
package capture

import (
	"errors"
	"fmt"
	"strings"

	"visualizer/internal/config"
)

var (
	// ErrInitialize wraps the step that failed while binding to the output device.
	ErrInitialize = errors.New("capture: initialization failed")
	// ErrNotInitialized is returned by Start before a successful Initialize.
	ErrNotInitialized = errors.New("capture: not initialized")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("capture: source closed")
	// ErrUnsupportedBackend is returned when a backend cannot run on this platform.
	ErrUnsupportedBackend = errors.New("capture: backend not supported on this platform")
	// ErrDeviceInvalidated is wrapped by capture calls once the bound device is gone.
	ErrDeviceInvalidated = errors.New("capture: device invalidated")
)

// Format is the negotiated mix format of an output device.
type Format struct {
	SampleRate int
	Channels   int
	Float      bool // 32-bit IEEE float samples
}

// Packet is one block of interleaved frames handed out by a CaptureClient.
// Data is only valid until the matching ReleaseBuffer call.
type Packet struct {
	Frames int
	Silent bool
	Data   []float32 // Frames * Channels samples, nil when Silent
}

// Backend is an OS audio stack able to capture what a device is playing.
type Backend interface {
	Name() string
	// NewEnumerator creates the long-lived device enumerator.
	NewEnumerator() (Enumerator, error)
	// AttachThread prepares the calling OS thread for audio calls. The
	// returned function undoes it and must run on the same thread.
	AttachThread() (detach func(), err error)
}

// Enumerator resolves devices and reports default device changes.
type Enumerator interface {
	DefaultOutput() (Device, error)
	// Subscribe registers onDefaultChange for default output changes. It is
	// called at most once per enumerator.
	Subscribe(onDefaultChange func()) error
	Close() error
}

// Device is one resolved output endpoint.
type Device interface {
	ID() string
	Activate() (Client, error)
	Release()
}

// Client is a session against a device.
type Client interface {
	MixFormat() (Format, error)
	InitializeLoopback(Format) error
	CaptureClient() (CaptureClient, error)
	Start() error
	Stop() error
	Release()
}

// CaptureClient hands out captured packets.
type CaptureClient interface {
	// NextPacketSize returns the frame count of the next packet, 0 when none is ready.
	NextPacketSize() (int, error)
	GetBuffer() (Packet, error)
	ReleaseBuffer(frames int) error
	Release()
}

// NewBackend returns the backend selected by the audio configuration.
func NewBackend(cfg config.AudioConfig) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendAuto, "":
		if wasapiAvailable {
			return NewWASAPI(cfg.BufferDuration), nil
		}
		return NewPortAudio(cfg.Device, cfg.FramesPerBuffer), nil
	case config.BackendWASAPI:
		if !wasapiAvailable {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, config.BackendWASAPI)
		}
		return NewWASAPI(cfg.BufferDuration), nil
	case config.BackendPortAudio:
		return NewPortAudio(cfg.Device, cfg.FramesPerBuffer), nil
	case config.BackendFile:
		return NewWAVFile(cfg.File, cfg.Loop), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnsupportedBackend, cfg.Backend)
	}
}
