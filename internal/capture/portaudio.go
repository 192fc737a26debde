// SPDX-License-Identifier: MIT
package capture

import (
	"errors"
	"fmt"
	"strings"

	applog "visualizer/internal/log"

	"github.com/gordonklaus/portaudio"
)

// PortAudio captures from an input device, typically a monitor or
// "Stereo Mix" source that mirrors what the machine plays.
type PortAudio struct {
	device string // name substring, empty for the default input
	frames int    // frames per blocking read
}

// NewPortAudio creates the PortAudio backend.
func NewPortAudio(device string, framesPerBuffer int) Backend {
	if framesPerBuffer <= 0 {
		framesPerBuffer = 512
	}
	return &PortAudio{device: device, frames: framesPerBuffer}
}

func (p *PortAudio) Name() string { return "portaudio" }

func (p *PortAudio) AttachThread() (func(), error) {
	return func() {}, nil
}

func (p *PortAudio) NewEnumerator() (Enumerator, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &paEnumerator{backend: p}, nil
}

type paEnumerator struct {
	backend *PortAudio
}

// DefaultOutput returns the first input device whose name contains the
// configured substring, or the default input device.
func (e *paEnumerator) DefaultOutput() (Device, error) {
	if want := strings.ToLower(e.backend.device); want != "" {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, err
		}
		for _, d := range devices {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
				return &paDevice{info: d, frames: e.backend.frames}, nil
			}
		}
		applog.Warnf("Capture: No input device matches %q, using the default input", e.backend.device)
	}

	d, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, err
	}
	return &paDevice{info: d, frames: e.backend.frames}, nil
}

// Subscribe is a no-op: PortAudio has no device change notifications.
func (e *paEnumerator) Subscribe(func()) error {
	return nil
}

func (e *paEnumerator) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

type paDevice struct {
	info   *portaudio.DeviceInfo
	frames int
}

func (d *paDevice) ID() string { return d.info.Name }

func (d *paDevice) Activate() (Client, error) {
	if d.info.MaxInputChannels <= 0 {
		return nil, fmt.Errorf("device %q has no input channels", d.info.Name)
	}
	return &paClient{info: d.info, frames: d.frames}, nil
}

func (d *paDevice) Release() {}

type paClient struct {
	info   *portaudio.DeviceInfo
	frames int
	format Format
	stream *portaudio.Stream
	buf    []float32
}

func (c *paClient) MixFormat() (Format, error) {
	c.format = Format{
		SampleRate: int(c.info.DefaultSampleRate),
		Channels:   min(c.info.MaxInputChannels, 2),
		Float:      true,
	}
	return c.format, nil
}

func (c *paClient) InitializeLoopback(f Format) error {
	params := portaudio.HighLatencyParameters(c.info, nil)
	params.Input.Channels = f.Channels
	params.Output.Channels = 0
	params.SampleRate = float64(f.SampleRate)
	params.FramesPerBuffer = c.frames

	c.buf = make([]float32, c.frames*f.Channels)
	stream, err := portaudio.OpenStream(params, c.buf)
	if err != nil {
		return err
	}
	c.stream = stream
	c.format = f
	return nil
}

func (c *paClient) CaptureClient() (CaptureClient, error) {
	if c.stream == nil {
		return nil, errors.New("stream not opened")
	}
	return &paCapture{stream: c.stream, buf: c.buf, frames: c.frames}, nil
}

func (c *paClient) Start() error { return c.stream.Start() }

func (c *paClient) Stop() error { return c.stream.Stop() }

func (c *paClient) Release() {
	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			applog.Warnf("Capture: Closing PortAudio stream failed: %v", err)
		}
		c.stream = nil
	}
}

type paCapture struct {
	stream *portaudio.Stream
	buf    []float32
	frames int
}

// NextPacketSize reports a full read once enough frames are buffered, so
// Read never blocks the capture thread for long.
func (c *paCapture) NextPacketSize() (int, error) {
	available, err := c.stream.AvailableToRead()
	if err != nil {
		return 0, err
	}
	if available < c.frames {
		return 0, nil
	}
	return c.frames, nil
}

func (c *paCapture) GetBuffer() (Packet, error) {
	if err := c.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return Packet{}, err
		}
		applog.Debugf("Capture: PortAudio input overflowed")
	}
	return Packet{Frames: c.frames, Data: c.buf}, nil
}

func (c *paCapture) ReleaseBuffer(int) error { return nil }

func (c *paCapture) Release() {}
