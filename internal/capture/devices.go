// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/gordonklaus/portaudio"
)

// paDevicesFunc is swapped out by tests.
var paDevicesFunc = portaudio.Devices

// DeviceInfo describes one PortAudio device.
type DeviceInfo struct {
	ID                      int
	Name                    string
	HostAPI                 string
	MaxInputChannels        int
	MaxOutputChannels       int
	DefaultSampleRate       float64
	DefaultLowInputLatency  time.Duration
	DefaultHighInputLatency time.Duration
}

// HostDevices returns all PortAudio devices. PortAudio must be initialized.
func HostDevices() ([]DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	out := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		host := ""
		if d.HostApi != nil {
			host = d.HostApi.Name
		}
		out[i] = DeviceInfo{
			ID:                      i,
			Name:                    d.Name,
			HostAPI:                 host,
			MaxInputChannels:        d.MaxInputChannels,
			MaxOutputChannels:       d.MaxOutputChannels,
			DefaultSampleRate:       d.DefaultSampleRate,
			DefaultLowInputLatency:  d.DefaultLowInputLatency,
			DefaultHighInputLatency: d.DefaultHighInputLatency,
		}
	}
	return out, nil
}

// ListDevices prints every PortAudio device to w. Devices whose name
// contains "monitor" or "Stereo Mix" are the usual loopback candidates.
func ListDevices(w io.Writer) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := HostDevices()
	if err != nil {
		return err
	}
	writeDevices(w, devices)
	return nil
}

func writeDevices(w io.Writer, devices []DeviceInfo) {
	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, d := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", d.ID, d.Name, deviceType(d.MaxInputChannels, d.MaxOutputChannels))
		if d.HostAPI != "" {
			fmt.Fprintf(w, "    Host API: %s\n", d.HostAPI)
		}
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			d.DefaultLowInputLatency.Seconds()*1000,
			d.DefaultHighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}
}

func deviceType(inputChannels, outputChannels int) string {
	switch {
	case inputChannels > 0 && outputChannels > 0:
		return "Input/Output"
	case inputChannels > 0:
		return "Input"
	case outputChannels > 0:
		return "Output"
	default:
		return "Unavailable"
	}
}
