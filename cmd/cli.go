// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"time"

	"visualizer/internal/config"
	"visualizer/pkg/build"

	"github.com/spf13/cobra"
)

// flagValues holds the raw command line values. They only override the
// loaded configuration when the flag was given explicitly.
type flagValues struct {
	configPath string
	backend    string
	device     string
	file       string
	record     bool
	output     string
	windowSize int
	bins       int
	smoothing  float64
	waitFull   bool
	listen     string
	minInt     time.Duration
	udp        string
	verbose    bool
}

// ParseArgs parses os.Args into a validated configuration. Command is empty
// when the visualizer should run, otherwise it names a one-off command
// ("list", "version", or "help" when cobra already printed usage).
func ParseArgs() (*config.Config, error) {
	return parseArgs(os.Args[1:])
}

func parseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var fv flagValues
	// Stays "help" when cobra only printed help or version text.
	command := "help"

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			command = config.DefaultCommand
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available capture devices",
		Run: func(cmd *cobra.Command, args []string) {
			command = "list"
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			command = "version"
		},
	})

	flags := rootCmd.PersistentFlags()

	// Configuration
	flags.StringVar(&fv.configPath, "config", "",
		"Path to a YAML configuration file (default: ./config.yaml if present)")

	// Capture
	flags.StringVarP(&fv.backend, "backend", "b", config.DefaultBackend,
		"Capture backend: auto, wasapi, portaudio or file")
	flags.StringVarP(&fv.device, "device", "d", config.DefaultDevice,
		"PortAudio device name substring. Use 'list' command to see available devices.")
	flags.StringVarP(&fv.file, "file", "f", "",
		"WAV file to replay (selects the file backend)")

	// Recording
	flags.BoolVarP(&fv.record, "record", "r", config.DefaultRecord,
		"Record the captured audio (mixed to mono) to a WAV file")
	flags.StringVarP(&fv.output, "output", "o", config.DefaultRecordFile,
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Spectrum
	flags.IntVarP(&fv.windowSize, "window-size", "w", config.DefaultWindowSize,
		"FFT window size, a power of two")
	flags.IntVarP(&fv.bins, "bins", "n", config.DefaultBins,
		"Number of logarithmic output bands")
	flags.Float64VarP(&fv.smoothing, "smoothing", "s", config.DefaultSmoothing,
		"Exponential smoothing factor between frames, 0 disables it")
	flags.BoolVar(&fv.waitFull, "wait-full-window", config.DefaultWaitForFullWindow,
		"Hold output until one full window of audio was captured")

	// Transport
	flags.StringVarP(&fv.listen, "listen", "l", config.DefaultWebSocketAddress,
		"WebSocket listen address, empty disables the server")
	flags.DurationVar(&fv.minInt, "ws-interval", config.DefaultWebSocketMinInterval,
		"Minimum time between WebSocket frames")
	flags.StringVarP(&fv.udp, "udp", "u", "",
		"Publish bins over UDP to host:port")

	// Debug
	flags.BoolVarP(&fv.verbose, "verbose", "v", config.DefaultVerbosity,
		"Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	options, err := config.LoadConfig(fv.configPath)
	if err != nil {
		return nil, err
	}
	options.Command = command

	changed := flags.Changed
	if changed("backend") {
		options.Audio.Backend = fv.backend
	}
	if changed("device") {
		options.Audio.Device = fv.device
	}
	if changed("file") {
		options.Audio.File = fv.file
		if !changed("backend") {
			options.Audio.Backend = config.BackendFile
		}
	}
	if changed("record") {
		options.Audio.Record = fv.record
	}
	if changed("output") {
		options.Audio.RecordFile = fv.output
	}
	if options.Audio.Record && options.Audio.RecordFile == "" {
		options.Audio.RecordFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}
	if changed("window-size") {
		options.Spectrum.WindowSize = fv.windowSize
	}
	if changed("bins") {
		options.Spectrum.Bins = fv.bins
	}
	if changed("smoothing") {
		options.Spectrum.Smoothing = fv.smoothing
	}
	if changed("wait-full-window") {
		options.Spectrum.WaitForFullWindow = fv.waitFull
	}
	if changed("listen") {
		options.Transport.WebSocketAddress = fv.listen
		options.Transport.WebSocketEnabled = fv.listen != ""
	}
	if changed("ws-interval") {
		options.Transport.WebSocketMinInterval = fv.minInt
	}
	if changed("udp") {
		options.Transport.UDPTargetAddress = fv.udp
		options.Transport.UDPEnabled = fv.udp != ""
	}
	if changed("verbose") && fv.verbose {
		options.Debug = true
		options.LogLevel = "debug"
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}
