// SPDX-License-Identifier: MIT
package visualizer

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	applog "visualizer/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recordBitDepth = 32

// Recorder writes the mono stream fed to the spectrum engine into a 32-bit
// PCM WAV file. The file is created on the first Open and finalized by Close.
type Recorder struct {
	path string

	mu         sync.Mutex
	file       *os.File
	encoder    *wav.Encoder
	sampleBuf  *audio.IntBuffer
	sampleRate int
	frames     int
}

// NewRecorder returns a recorder for path. Nothing is created until Open.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Open creates the file at the given sample rate. Calling Open on an open
// recorder is a no-op; the sample rate of the first call is kept.
func (r *Recorder) Open(sampleRate int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder != nil {
		if sampleRate != r.sampleRate {
			applog.Warnf("Recorder: Capture rate changed to %d Hz, %s stays at %d Hz", sampleRate, r.path, r.sampleRate)
		}
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("Recorder: invalid sample rate %d", sampleRate)
	}

	file, err := os.Create(r.path)
	if err != nil {
		return err
	}
	r.file = file
	r.sampleRate = sampleRate
	r.encoder = wav.NewEncoder(file, sampleRate, recordBitDepth, 1, 1)
	r.sampleBuf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: recordBitDepth,
	}

	applog.Infof("Recorder: Writing %s (%d Hz, mono, %d-bit)", r.path, sampleRate, recordBitDepth)
	return nil
}

// Write appends samples in [-1, 1]; values outside are clipped.
// Writes before Open or after Close are dropped.
func (r *Recorder) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return nil
	}

	data := r.sampleBuf.Data[:0]
	for _, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		data = append(data, int(v*math.MaxInt32))
	}
	r.sampleBuf.Data = data

	if err := r.encoder.Write(r.sampleBuf); err != nil {
		return err
	}
	r.frames += len(samples)
	return nil
}

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalizes the WAV header and closes the file. It is idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return nil
	}

	err := r.encoder.Close()
	r.encoder = nil
	if cerr := r.file.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	r.file = nil

	applog.Infof("Recorder: Saved %s (%d frames)", r.path, r.frames)
	return err
}
