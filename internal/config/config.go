// ABOUTME: Daemon configuration
// ABOUTME: YAML file over built-in defaults, checked with struct tag validation
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Resonate-Protocol/ambient-go/internal/backend"
	"github.com/Resonate-Protocol/ambient-go/internal/monitor"
	"github.com/Resonate-Protocol/ambient-go/internal/player"
	"github.com/Resonate-Protocol/ambient-go/internal/topology"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the complete daemon configuration
type Config struct {
	Asset       string          `yaml:"asset" validate:"required"`
	AssetFormat string          `yaml:"asset_format" validate:"oneof=ogg flac mp3 auto"`
	Detection   DetectionConfig `yaml:"detection"`
	Playback    PlaybackConfig  `yaml:"playback"`
	Capture     CaptureConfig   `yaml:"capture"`
	Log         LogConfig       `yaml:"log"`
	TUI         bool            `yaml:"tui"`
}

// DetectionConfig tunes the activity decision
type DetectionConfig struct {
	VolumeThreshold float64       `yaml:"volume_threshold" validate:"gt=0,lt=1"`
	HistorySize     int           `yaml:"history_size" validate:"min=1,max=10000"`
	CheckInterval   time.Duration `yaml:"check_interval" validate:"gt=0"`
	ResumeDelay     time.Duration `yaml:"resume_delay" validate:"gt=0"`
}

// PlaybackConfig tunes the ambient loop
type PlaybackConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=oto pulse malgo portaudio"`
	ChunkBytes    int           `yaml:"chunk_bytes" validate:"min=2,max=1048576"`
	PausedPoll    time.Duration `yaml:"paused_poll_interval" validate:"gt=0"`
	InitialVolume float64       `yaml:"initial_volume" validate:"gte=0,lte=1"`
}

// CaptureConfig selects and shapes the monitor capture
type CaptureConfig struct {
	Backend    string        `yaml:"backend" validate:"oneof=pulse malgo"`
	SampleRate int           `yaml:"sample_rate" validate:"min=8000,max=192000"`
	Channels   int           `yaml:"channels" validate:"oneof=1 2"`
	Latency    time.Duration `yaml:"latency" validate:"gt=0"`
	EventPoll  time.Duration `yaml:"event_poll_interval" validate:"gt=0"`
}

// LogConfig controls log output
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration. Asset is left empty.
func Default() Config {
	return Config{
		AssetFormat: "ogg",
		Detection: DetectionConfig{
			VolumeThreshold: monitor.DefaultThreshold,
			HistorySize:     monitor.DefaultHistorySize,
			CheckInterval:   monitor.DefaultInterval,
			ResumeDelay:     monitor.DefaultResumeDelay,
		},
		Playback: PlaybackConfig{
			Backend:       "oto",
			ChunkBytes:    4096,
			PausedPoll:    100 * time.Millisecond,
			InitialVolume: 0.5,
		},
		Capture: CaptureConfig{
			Backend:    backend.BackendPulse,
			SampleRate: 44100,
			Channels:   2,
			Latency:    50 * time.Millisecond,
			EventPoll:  topology.DefaultPoll,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. Fields missing from the file
// keep their default values. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks every field constraint
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", fieldPath(e), formatValidationMessage(e)))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// fieldPath drops the root struct name from the namespace
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// MonitorConfig maps detection settings onto the monitor
func (c Config) MonitorConfig() monitor.Config {
	return monitor.Config{
		Threshold:   c.Detection.VolumeThreshold,
		HistorySize: c.Detection.HistorySize,
		Interval:    c.Detection.CheckInterval,
		ResumeDelay: c.Detection.ResumeDelay,
	}
}

// PlayerConfig maps playback settings onto the engine
func (c Config) PlayerConfig() player.Config {
	return player.Config{
		ChunkBytes: c.Playback.ChunkBytes,
		PausedPoll: c.Playback.PausedPoll,
		Volume:     c.Playback.InitialVolume,
	}
}

// TopologyConfig maps capture settings onto the watcher
func (c Config) TopologyConfig() topology.Config {
	return topology.Config{
		Spec: backend.CaptureSpec{
			SampleRate: c.Capture.SampleRate,
			Channels:   c.Capture.Channels,
			Latency:    c.Capture.Latency,
		},
		Poll: c.Capture.EventPoll,
	}
}
