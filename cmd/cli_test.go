// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"visualizer/internal/config"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			"Defaults",
			nil,
			func(t *testing.T, cfg *config.Config) {
				if cfg.Command != "" {
					t.Errorf("Command = %q, want empty", cfg.Command)
				}
				if cfg.Audio.Backend != config.DefaultBackend || cfg.Spectrum.Bins != config.DefaultBins {
					t.Errorf("unexpected defaults: %+v", cfg)
				}
			},
		},
		{
			"List Command",
			[]string{"list"},
			func(t *testing.T, cfg *config.Config) {
				if cfg.Command != "list" {
					t.Errorf("Command = %q, want list", cfg.Command)
				}
			},
		},
		{
			"Version Command",
			[]string{"version"},
			func(t *testing.T, cfg *config.Config) {
				if cfg.Command != "version" {
					t.Errorf("Command = %q, want version", cfg.Command)
				}
			},
		},
		{
			"Spectrum Flags",
			[]string{"--window-size", "4096", "-n", "32", "--smoothing", "0.5", "--wait-full-window"},
			func(t *testing.T, cfg *config.Config) {
				s := cfg.Spectrum
				if s.WindowSize != 4096 || s.Bins != 32 || s.Smoothing != 0.5 || !s.WaitForFullWindow {
					t.Errorf("Spectrum = %+v", s)
				}
			},
		},
		{
			"File Selects Backend",
			[]string{"--file", "tone.wav"},
			func(t *testing.T, cfg *config.Config) {
				if cfg.Audio.Backend != config.BackendFile || cfg.Audio.File != "tone.wav" {
					t.Errorf("Audio = %+v", cfg.Audio)
				}
			},
		},
		{
			"Record Default Name",
			[]string{"-r"},
			func(t *testing.T, cfg *config.Config) {
				if !cfg.Audio.Record || !strings.HasPrefix(cfg.Audio.RecordFile, "recording-") ||
					!strings.HasSuffix(cfg.Audio.RecordFile, ".wav") {
					t.Errorf("Record = %v, RecordFile = %q", cfg.Audio.Record, cfg.Audio.RecordFile)
				}
			},
		},
		{
			"Record Output",
			[]string{"--record", "-o", "out.wav"},
			func(t *testing.T, cfg *config.Config) {
				if cfg.Audio.RecordFile != "out.wav" {
					t.Errorf("RecordFile = %q, want out.wav", cfg.Audio.RecordFile)
				}
			},
		},
		{
			"Transport Flags",
			[]string{"--listen", "", "--udp", "127.0.0.1:9999", "--ws-interval", "50ms"},
			func(t *testing.T, cfg *config.Config) {
				tr := cfg.Transport
				if tr.WebSocketEnabled {
					t.Errorf("WebSocketEnabled = true for empty listen address")
				}
				if !tr.UDPEnabled || tr.UDPTargetAddress != "127.0.0.1:9999" {
					t.Errorf("UDP = %v %q", tr.UDPEnabled, tr.UDPTargetAddress)
				}
				if tr.WebSocketMinInterval != 50*time.Millisecond {
					t.Errorf("WebSocketMinInterval = %s", tr.WebSocketMinInterval)
				}
			},
		},
		{
			"Verbose",
			[]string{"-v"},
			func(t *testing.T, cfg *config.Config) {
				if !cfg.Debug || cfg.LogLevel != "debug" {
					t.Errorf("Debug = %v, LogLevel = %q", cfg.Debug, cfg.LogLevel)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseArgs(tt.args)
			if err != nil {
				t.Fatalf("parseArgs(%v) error = %v", tt.args, err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestParseArgsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visualizer.yaml")
	data := []byte("spectrum:\n  bins: 16\n  smoothing: 0.25\naudio:\n  backend: portaudio\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseArgs([]string{"--config", path, "--bins", "24"})
	if err != nil {
		t.Fatalf("parseArgs() error = %v", err)
	}
	if cfg.Spectrum.Bins != 24 {
		t.Errorf("Bins = %d, want flag value 24", cfg.Spectrum.Bins)
	}
	if cfg.Spectrum.Smoothing != 0.25 {
		t.Errorf("Smoothing = %g, want file value 0.25", cfg.Spectrum.Smoothing)
	}
	if cfg.Audio.Backend != config.BackendPortAudio {
		t.Errorf("Backend = %q, want file value portaudio", cfg.Audio.Backend)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"Unknown Flag", []string{"--nope"}},
		{"Zero Bins", []string{"--bins", "0"}},
		{"Smoothing Out Of Range", []string{"--smoothing", "1.5"}},
		{"Unknown Backend", []string{"--backend", "alsa"}},
		{"Missing Config File", []string{"--config", "/nonexistent/visualizer.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArgs(tt.args); err == nil {
				t.Errorf("parseArgs(%v) expected error", tt.args)
			}
		})
	}
}

func TestParseArgsHelp(t *testing.T) {
	cfg, err := parseArgs([]string{"--help"})
	if err != nil {
		t.Fatalf("parseArgs() error = %v", err)
	}
	if cfg.Command != "help" {
		t.Errorf("Command = %q, want help", cfg.Command)
	}
}
