//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/rs/zerolog"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(logger zerolog.Logger) Output {
	return &PortAudio{}
}

// Open initializes PortAudio
func (p *PortAudio) Open(format audio.Format) error {
	return errPortAudioDisabled
}

// Write outputs audio samples
func (p *PortAudio) Write(data []byte) error {
	return errPortAudioDisabled
}

// Drain waits for queued audio
func (p *PortAudio) Drain() error {
	return errPortAudioDisabled
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
