// SPDX-License-Identifier: MIT
package capture

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

func TestHostDevices(t *testing.T) {
	orig := paDevicesFunc
	t.Cleanup(func() { paDevicesFunc = orig })

	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return []*portaudio.DeviceInfo{
			{Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 48000},
			{
				Name:              "Monitor of Built-in Audio",
				HostApi:           &portaudio.HostApiInfo{Name: "ALSA"},
				MaxInputChannels:  2,
				DefaultSampleRate: 44100,
			},
		}, nil
	}

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("len(devices) = %d, want 2", len(devices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
	}
	if devices[1].HostAPI != "ALSA" {
		t.Errorf("HostAPI = %q, want ALSA", devices[1].HostAPI)
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	t.Cleanup(func() { paDevicesFunc = orig })

	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestWriteDevices(t *testing.T) {
	var buf bytes.Buffer
	writeDevices(&buf, []DeviceInfo{{
		ID:                      3,
		Name:                    "Stereo Mix",
		HostAPI:                 "Windows WASAPI",
		MaxInputChannels:        2,
		DefaultSampleRate:       48000,
		DefaultLowInputLatency:  3 * time.Millisecond,
		DefaultHighInputLatency: 10 * time.Millisecond,
	}})

	out := buf.String()
	for _, want := range []string{
		"[3] Stereo Mix (Input)",
		"Host API: Windows WASAPI",
		"Default sample rate: 48000 Hz",
		"Low=3.00ms, High=10.00ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDeviceType(t *testing.T) {
	tests := []struct {
		in, out int
		want    string
	}{
		{2, 2, "Input/Output"},
		{1, 0, "Input"},
		{0, 2, "Output"},
		{0, 0, "Unavailable"},
	}
	for _, tt := range tests {
		if got := deviceType(tt.in, tt.out); got != tt.want {
			t.Errorf("deviceType(%d, %d) = %q, want %q", tt.in, tt.out, got, tt.want)
		}
	}
}
