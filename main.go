// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"visualizer/cmd"
	"visualizer/internal/capture"
	"visualizer/internal/config"
	applog "visualizer/internal/log"
	"visualizer/internal/spectrum"
	"visualizer/internal/transport"
	"visualizer/internal/transport/udp"
	"visualizer/internal/visualizer"
	"visualizer/pkg/build"
)

// main is the entry point for the spectrum visualizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Configure logging
//   - Execute one-off commands if requested
//   - Build the capture source, spectrum engine and transports
//
// 2. Concurrent Phase (Hot Path):
//   - Start capture; every block runs through the engine on the capture thread
//   - Serve WebSocket clients and publish UDP packets
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop capture, then close transports and the source
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds have no ldflags; the defaults are good enough.
	buildErr := build.Initialize()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	configureLogging(cfg)
	if buildErr != nil {
		applog.Debugf("Build: %v", buildErr)
	}

	if cfg.Command != "" {
		if err := executeCommand(cfg.Command); err != nil {
			applog.Fatalf("Command %q failed: %v", cfg.Command, err)
		}
		return
	}

	backend, err := capture.NewBackend(cfg.Audio)
	if err != nil {
		applog.Fatalf("Capture: %v", err)
	}
	source := capture.New(backend, capture.WithPollInterval(cfg.Audio.PollInterval))

	engine := spectrum.New(cfg.Spectrum.WindowSize, cfg.Spectrum.Bins)
	engine.SetSmoothing(cfg.Spectrum.Smoothing)

	var (
		transports transport.Multi
		ws         *transport.WebSocketTransport
	)
	if applog.GetLevel() == applog.LevelDebug {
		transports = append(transports, transport.NewLoggingTransport(100))
	}
	if cfg.Transport.WebSocketEnabled {
		ws, err = transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, cfg.Transport.WebSocketMinInterval, nil)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		transports = append(transports, ws)
	}

	opts := []visualizer.Option{
		visualizer.WithTransport(transports),
		visualizer.WithWaitForFullWindow(cfg.Spectrum.WaitForFullWindow),
	}
	if cfg.Audio.Record {
		opts = append(opts, visualizer.WithRecorder(visualizer.NewRecorder(cfg.Audio.RecordFile)))
	}
	vis := visualizer.New(source, engine, opts...)
	if ws != nil {
		ws.SetHandler(vis)
	}

	var publisher *udp.UDPPublisher
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		defer sender.Close()
		publisher, err = udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, vis)
		if err != nil {
			applog.Fatalf("%v", err)
		}
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// CRITICAL: Start of real-time capture. From here on, every captured
	// block runs through the spectrum engine on the capture thread.
	if err := vis.Start(); err != nil {
		// Clients can retry with a "start" command once a device appears.
		applog.Errorf("%v", err)
	}
	if publisher != nil {
		publisher.Start()
	}

	applog.Infof("%s running with backend %s, press Ctrl+C to exit", build.GetBuildFlags().Name, backend.Name())

	<-done

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	applog.Infof("Shutting down")

	if publisher != nil {
		publisher.Stop()
	}
	// Also finalizes the recording, if any.
	if err := vis.Close(); err != nil {
		applog.Errorf("Error closing capture: %v", err)
	}
	if err := transports.Close(); err != nil {
		applog.Errorf("Error closing transports: %v", err)
	}
}

// configureLogging applies the configured level; debug mode forces debug.
func configureLogging(cfg *config.Config) {
	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		level = applog.LevelInfo
	}
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
}

// executeCommand handles one-off commands that don't need capture running.
func executeCommand(command string) error {
	switch command {
	case "list":
		return capture.ListDevices(os.Stdout)
	case "version":
		fmt.Println(build.GetBuildFlags())
		return nil
	case "help":
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
