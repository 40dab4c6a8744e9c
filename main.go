// ABOUTME: Entry point for the ambient sound daemon
// ABOUTME: Loads config, decodes the asset and runs the controller until signalled
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/ambient-go/internal/app"
	"github.com/Resonate-Protocol/ambient-go/internal/backend"
	"github.com/Resonate-Protocol/ambient-go/internal/config"
	"github.com/Resonate-Protocol/ambient-go/internal/logging"
	"github.com/Resonate-Protocol/ambient-go/internal/player"
	"github.com/Resonate-Protocol/ambient-go/internal/ui"
	"github.com/Resonate-Protocol/ambient-go/internal/version"
	"github.com/Resonate-Protocol/ambient-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/ambient-go/pkg/audio/output"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	asset       = flag.String("asset", "", "Ambient track to loop")
	assetFormat = flag.String("format", "", "Asset container: ogg, flac, mp3 or auto")
	outBackend  = flag.String("output", "", "Playback backend: oto, pulse, malgo or portaudio")
	capBackend  = flag.String("capture", "", "Capture backend: pulse or malgo")
	threshold   = flag.Float64("threshold", 0, "System volume that pauses playback")
	resumeDelay = flag.Duration("resume-delay", 0, "Quiet time before playback resumes")
	logLevel    = flag.String("log-level", "", "Log level: trace, debug, info, warn or error")
	logFile     = flag.String("log-file", "", "Log file path")
	useTUI      = flag.Bool("tui", false, "Show the status TUI; logs go only to the log file")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.TUI && cfg.Log.File == "" {
		cfg.Log.File = "ambient.log"
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: !cfg.TUI,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Close() }()

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("ambient failed")
		_ = logger.Close()
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file and explicitly set flags
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "asset":
			cfg.Asset = *asset
		case "format":
			cfg.AssetFormat = *assetFormat
		case "output":
			cfg.Playback.Backend = *outBackend
		case "capture":
			cfg.Capture.Backend = *capBackend
		case "threshold":
			cfg.Detection.VolumeThreshold = *threshold
		case "resume-delay":
			cfg.Detection.ResumeDelay = *resumeDelay
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-file":
			cfg.Log.File = *logFile
		case "tui":
			cfg.TUI = *useTUI
		}
	})

	return cfg, cfg.Validate()
}

func run(cfg config.Config, logger *logging.Logger) error {
	log := logger.Logger
	log.Info().
		Str("version", version.Version).
		Str("asset", cfg.Asset).
		Str("output", cfg.Playback.Backend).
		Str("capture", cfg.Capture.Backend).
		Msg("starting ambient")

	data, err := os.ReadFile(cfg.Asset)
	if err != nil {
		return fmt.Errorf("read asset: %w", err)
	}

	pcm, err := decode.DecodeAs(decode.Container(cfg.AssetFormat), data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", cfg.Asset, err)
	}

	out, err := output.New(cfg.Playback.Backend, version.AppName(), log)
	if err != nil {
		return err
	}

	engine, err := player.New(pcm, out, player.NewSelfOutput(), cfg.PlayerConfig(), log)
	if err != nil {
		return err
	}

	openBackend := func() (backend.Backend, error) {
		return backend.Open(cfg.Capture.Backend, version.AppName(), log)
	}
	controller := app.New(engine, openBackend, app.Config{
		Monitor:  cfg.MonitorConfig(),
		Topology: cfg.TopologyConfig(),
	}, log)

	var tuiProg *tea.Program
	var ctrl *ui.Control
	if cfg.TUI {
		ctrl = ui.NewControl()
		tuiProg = ui.Run(ctrl)
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Error().Err(err).Msg("tui exited")
			}
		}()
		tuiProg.Send(ui.AssetMsg{
			Name:       filepath.Base(cfg.Asset),
			Codec:      pcm.Format.Codec,
			SampleRate: pcm.Format.SampleRate,
			Channels:   pcm.Format.Channels,
			Bytes:      pcm.Len(),
			Duration:   pcm.Duration(),
		})
	}

	controller.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if tuiProg != nil {
		stopStatus := make(chan struct{})
		go statusLoop(controller, cfg.Detection.VolumeThreshold, tuiProg, stopStatus)

		select {
		case <-ctrl.Quit:
			log.Info().Msg("received quit from TUI")
		case sig := <-sigChan:
			log.Info().Stringer("signal", sig).Msg("shutdown signal received")
		}
		close(stopStatus)
	} else {
		sig := <-sigChan
		log.Info().Stringer("signal", sig).Msg("shutdown signal received")
	}

	controller.Stop()

	if tuiProg != nil {
		tuiProg.Quit()
	}

	log.Info().Msg("ambient stopped")
	return nil
}

// statusLoop periodically pushes controller status to the TUI
func statusLoop(controller *app.Controller, threshold float64, prog *tea.Program, stop <-chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s := controller.Status()
			prog.Send(ui.StatusMsg{
				Playing:          s.Player.Playing,
				SelfOutput:       s.Player.SelfOutput,
				Offset:           s.Player.Offset,
				Volume:           s.Monitor.Volume,
				Threshold:        threshold,
				State:            s.Monitor.State.String(),
				Dropped:          s.Monitor.Dropped,
				BackendConnected: s.BackendConnected,
				Attached:         s.Capture.Attached,
				Source:           s.Capture.Source,
				AttachFailures:   s.Capture.Failures,
			})
		}
	}
}
