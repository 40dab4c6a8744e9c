// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends and their factory
package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/rs/zerolog"
)

// Backend names accepted by New
const (
	BackendOto       = "oto"
	BackendPulse     = "pulse"
	BackendMalgo     = "malgo"
	BackendPortAudio = "portaudio"
)

// drainTimeout bounds how long Drain waits for queued audio to play out
const drainTimeout = 2 * time.Second

// ErrNotOpen is returned by Write and Drain before Open succeeds
var ErrNotOpen = errors.New("output not initialized")

// Output represents an audio output device
type Output interface {
	// Open initializes the output device for the given PCM format
	Open(format audio.Format) error

	// Write queues interleaved 16-bit PCM (blocks until accepted)
	Write(data []byte) error

	// Drain waits until queued audio has been played
	Drain() error

	// Close releases output resources; the output may be opened again
	Close() error
}

// New creates an output for the named backend
func New(backend, appName string, logger zerolog.Logger) (Output, error) {
	switch backend {
	case BackendOto, "":
		return NewOto(logger), nil
	case BackendPulse:
		return NewPulse(appName, logger), nil
	case BackendMalgo:
		return NewMalgo(logger), nil
	case BackendPortAudio:
		return NewPortAudio(logger), nil
	default:
		return nil, fmt.Errorf("unsupported output backend: %q", backend)
	}
}

// waitUntil polls done every 10ms until it returns true or timeout passes
func waitUntil(timeout time.Duration, done func() bool) bool {
	deadline := time.Now().Add(timeout)
	for !done() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
	return true
}
