// SPDX-License-Identifier: MIT
package capture

import (
	"errors"
	"fmt"
	"os"
	"time"

	applog "visualizer/internal/log"

	"github.com/go-audio/wav"
)

// maxPacketDuration bounds how much audio a single file packet carries.
const maxPacketDuration = 20 * time.Millisecond

// WAVFile replays a WAV file in real time as if it were the system output.
// It never reports device changes and never produces silent packets.
type WAVFile struct {
	path string
	loop bool
}

// NewWAVFile creates the file backend. With loop set the file restarts when it ends.
func NewWAVFile(path string, loop bool) Backend {
	return &WAVFile{path: path, loop: loop}
}

func (f *WAVFile) Name() string { return "file" }

func (f *WAVFile) AttachThread() (func(), error) {
	return func() {}, nil
}

func (f *WAVFile) NewEnumerator() (Enumerator, error) {
	return &wavEnumerator{backend: f}, nil
}

type wavEnumerator struct {
	backend *WAVFile
}

// DefaultOutput decodes the whole file into memory.
func (e *wavEnumerator) DefaultOutput() (Device, error) {
	samples, format, err := decodeWAV(e.backend.path)
	if err != nil {
		return nil, err
	}
	return &wavDevice{path: e.backend.path, loop: e.backend.loop, samples: samples, format: format}, nil
}

func (e *wavEnumerator) Subscribe(func()) error { return nil }

func (e *wavEnumerator) Close() error { return nil }

// decodeWAV reads path and scales its integer PCM to float samples in [-1, 1].
func decodeWAV(path string) ([]float32, Format, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, Format{}, err
	}
	defer fh.Close()

	decoder := wav.NewDecoder(fh)
	if !decoder.IsValidFile() {
		return nil, Format{}, fmt.Errorf("%s: not a valid WAV file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("%s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, Format{}, fmt.Errorf("%s: missing format", path)
	}

	depth := int(decoder.BitDepth)
	if depth <= 0 || depth > 32 {
		return nil, Format{}, fmt.Errorf("%s: unsupported bit depth %d", path, depth)
	}
	scale := float32(int64(1) << (depth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	format := Format{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Float:      true,
	}

	applog.Debugf("Capture: Loaded %s (%d Hz, %d channels, %d bit, %d frames)",
		path, format.SampleRate, format.Channels, depth, len(samples)/format.Channels)
	return samples, format, nil
}

type wavDevice struct {
	path    string
	loop    bool
	samples []float32
	format  Format
}

func (d *wavDevice) ID() string { return d.path }

func (d *wavDevice) Activate() (Client, error) {
	if len(d.samples) < d.format.Channels {
		return nil, errors.New("file contains no audio frames")
	}
	return &wavClient{device: d}, nil
}

func (d *wavDevice) Release() {}

type wavClient struct {
	device *wavDevice
	start  time.Time
	pos    int // frames already handed out since start
}

func (c *wavClient) MixFormat() (Format, error) { return c.device.format, nil }

func (c *wavClient) InitializeLoopback(Format) error { return nil }

func (c *wavClient) CaptureClient() (CaptureClient, error) {
	return &wavCapture{client: c}, nil
}

func (c *wavClient) Start() error {
	c.start = time.Now()
	c.pos = 0
	return nil
}

func (c *wavClient) Stop() error { return nil }

func (c *wavClient) Release() {}

type wavCapture struct {
	client  *wavClient
	pending int
	ended   bool
}

func (c *wavCapture) totalFrames() int {
	d := c.client.device
	return len(d.samples) / d.format.Channels
}

// NextPacketSize returns how many frames are due by wall clock, at most
// maxPacketDuration worth.
func (c *wavCapture) NextPacketSize() (int, error) {
	cl := c.client
	d := cl.device
	total := c.totalFrames()

	if cl.pos >= total {
		if !d.loop {
			if !c.ended {
				c.ended = true
				applog.Infof("Capture: Finished replaying %s", d.path)
			}
			return 0, nil
		}
		cl.start = cl.start.Add(time.Duration(total) * time.Second / time.Duration(d.format.SampleRate))
		cl.pos = 0
	}

	rate := float64(d.format.SampleRate)
	due := int(time.Since(cl.start).Seconds() * rate)
	frames := min(due-cl.pos, total-cl.pos)
	frames = min(frames, int(maxPacketDuration.Seconds()*rate))
	return max(frames, 0), nil
}

func (c *wavCapture) GetBuffer() (Packet, error) {
	frames, err := c.NextPacketSize()
	if err != nil {
		return Packet{}, err
	}

	d := c.client.device
	from := c.client.pos * d.format.Channels
	to := from + frames*d.format.Channels

	c.pending = frames
	return Packet{Frames: frames, Data: d.samples[from:to]}, nil
}

func (c *wavCapture) ReleaseBuffer(frames int) error {
	if frames != c.pending {
		return fmt.Errorf("released %d frames, %d outstanding", frames, c.pending)
	}
	c.client.pos += frames
	c.pending = 0
	return nil
}

func (c *wavCapture) Release() {}
