package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the visualizer.
const (
	// Capture
	BackendAuto      = "auto"      // WASAPI on Windows, PortAudio elsewhere
	BackendWASAPI    = "wasapi"    // Windows loopback capture
	BackendPortAudio = "portaudio" // Input/monitor device through PortAudio
	BackendFile      = "file"      // WAV file replayed in real time

	DefaultBackend         = BackendAuto
	DefaultDevice          = ""                    // Default input device (PortAudio)
	DefaultPollInterval    = 5 * time.Millisecond  // Capture thread sleep when no packet is ready
	DefaultBufferDuration  = 200 * time.Millisecond // WASAPI shared-mode buffer
	DefaultFramesPerBuffer = 512                   // PortAudio blocking read size
	DefaultLoopFile        = true
	DefaultRecord          = false
	DefaultRecordFile      = "" // recording-DD-MM-YYYY-HHMMSS.wav when empty

	// Spectrum
	DefaultWindowSize        = 2048
	DefaultBins              = 64
	DefaultSmoothing         = 0.0
	DefaultWaitForFullWindow = false
	MaxSmoothing             = 0.999

	// Transport
	DefaultWebSocketEnabled     = true
	DefaultWebSocketAddress     = ":8080"
	DefaultWebSocketMinInterval = 16 * time.Millisecond // ~60Hz
	DefaultUDPEnabled           = false
	DefaultUDPTargetAddress     = "127.0.0.1:9090"
	DefaultUDPSendInterval      = 33 * time.Millisecond // ~30Hz

	// Debug
	DefaultLogLevel  = "info"
	DefaultCommand   = ""
	DefaultVerbosity = false
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug mode (forces debug logging).
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // One-off command to execute instead of running ("list", "version").
	Audio     AudioConfig     `yaml:"audio"`             // Capture settings.
	Spectrum  SpectrumConfig  `yaml:"spectrum"`          // Spectrum engine settings.
	Transport TransportConfig `yaml:"transport"`         // Delivery settings.
}

// AudioConfig holds settings related to loopback capture.
type AudioConfig struct {
	Backend         string        `yaml:"backend"`           // auto, wasapi, portaudio or file.
	Device          string        `yaml:"device"`            // PortAudio device name substring ("monitor", "Stereo Mix").
	File            string        `yaml:"file"`              // WAV path for the file backend.
	Loop            bool          `yaml:"loop"`              // Restart the WAV file when it ends.
	PollInterval    time.Duration `yaml:"poll_interval"`     // Sleep between empty packet polls.
	BufferDuration  time.Duration `yaml:"buffer_duration"`   // WASAPI client buffer duration.
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // PortAudio frames per blocking read.
	Record          bool          `yaml:"record"`            // Write the mono capture stream to a WAV file.
	RecordFile      string        `yaml:"record_file"`       // Output path for the recording.
}

// SpectrumConfig holds settings for the FFT and band aggregation.
type SpectrumConfig struct {
	WindowSize        int     `yaml:"window_size"`          // FFT length, power of two (2048 otherwise).
	Bins              int     `yaml:"bins"`                 // Number of log-spaced output bands.
	Smoothing         float64 `yaml:"smoothing"`            // Exponential smoothing factor in [0, 0.999].
	WaitForFullWindow bool    `yaml:"wait_for_full_window"` // Hold output until one full window was captured.
}

// TransportConfig holds settings related to sending bins to consumers.
type TransportConfig struct {
	WebSocketEnabled     bool          `yaml:"websocket_enabled"`      // Serve bins and start/stop commands over WebSocket.
	WebSocketAddress     string        `yaml:"websocket_address"`      // Listen address for the WebSocket server.
	WebSocketMinInterval time.Duration `yaml:"websocket_min_interval"` // Minimum time between broadcasts.
	UDPEnabled           bool          `yaml:"udp_enabled"`            // Publish bins over UDP.
	UDPTargetAddress     string        `yaml:"udp_target_address"`     // Target address and port for UDP packets.
	UDPSendInterval      time.Duration `yaml:"udp_send_interval"`      // Interval between UDP packets.
}

// NewConfig creates a new Config instance with default values.
// This is the base configuration before applying a config file,
// environment overrides and command line flags.
func NewConfig() *Config {
	return &Config{
		Debug:    DefaultVerbosity,
		LogLevel: DefaultLogLevel,
		Command:  DefaultCommand,
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			Device:          DefaultDevice,
			Loop:            DefaultLoopFile,
			PollInterval:    DefaultPollInterval,
			BufferDuration:  DefaultBufferDuration,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Record:          DefaultRecord,
			RecordFile:      DefaultRecordFile,
		},
		Spectrum: SpectrumConfig{
			WindowSize:        DefaultWindowSize,
			Bins:              DefaultBins,
			Smoothing:         DefaultSmoothing,
			WaitForFullWindow: DefaultWaitForFullWindow,
		},
		Transport: TransportConfig{
			WebSocketEnabled:     DefaultWebSocketEnabled,
			WebSocketAddress:     DefaultWebSocketAddress,
			WebSocketMinInterval: DefaultWebSocketMinInterval,
			UDPEnabled:           DefaultUDPEnabled,
			UDPTargetAddress:     DefaultUDPTargetAddress,
			UDPSendInterval:      DefaultUDPSendInterval,
		},
	}
}
