// ABOUTME: Audio server capability consumed by the activity monitor
// ABOUTME: Typed topology events, sink lookup and monitor capture attachment
package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open
const (
	BackendPulse = "pulse"
	BackendMalgo = "malgo"
)

// EventQueueSize bounds the topology event channel; events beyond it are dropped
const EventQueueSize = 64

// Backend errors
var (
	ErrConnect       = errors.New("backend connect failure")
	ErrCaptureAttach = errors.New("capture attach failure")
	ErrNoSink        = errors.New("no such sink")
	ErrClosed        = errors.New("backend closed")
)

// Facility identifies the object class an event refers to
type Facility int

const (
	FacilityOther Facility = iota
	FacilitySink
	FacilitySinkInput
)

func (f Facility) String() string {
	switch f {
	case FacilitySink:
		return "sink"
	case FacilitySinkInput:
		return "sink-input"
	default:
		return "other"
	}
}

// EventKind is the life-cycle change an event reports
type EventKind int

const (
	EventNew EventKind = iota
	EventChange
	EventRemove
)

func (k EventKind) String() string {
	switch k {
	case EventNew:
		return "new"
	case EventChange:
		return "change"
	case EventRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a sink or session topology notification
type Event struct {
	Facility Facility
	Kind     EventKind
	Index    uint32
}

// SinkInfo describes an output device
type SinkInfo struct {
	Index          uint32
	Name           string
	MonitorSource  string // loopback source carrying what the sink plays
	HardwareVolume bool
	Default        bool
}

// Monitorable reports whether the sink qualifies for capture attachment
func (s SinkInfo) Monitorable() bool {
	return s.MonitorSource != "" && s.HardwareVolume
}

// CaptureSpec is the fixed layout of captured frames
type CaptureSpec struct {
	SampleRate int
	Channels   int
	Latency    time.Duration
}

// DefaultCaptureSpec is 16-bit 44.1kHz stereo with a 50ms target latency
func DefaultCaptureSpec() CaptureSpec {
	return CaptureSpec{SampleRate: 44100, Channels: 2, Latency: 50 * time.Millisecond}
}

// FrameSink receives captured frames. Submit must not block; the sink owns frame.
type FrameSink interface {
	Submit(frame []int16)
}

// Capture is an attached monitor stream
type Capture interface {
	// Source is the monitor source name the capture reads
	Source() string
	// Running reports whether frames are still being delivered
	Running() bool
	// Err returns the failure that stopped the stream, if any
	Err() error
	// Close detaches the stream
	Close() error
}

// Backend is the audio server as seen by the topology watcher
type Backend interface {
	// Events delivers topology notifications; the channel is bounded
	Events() <-chan Event
	// DefaultSink resolves the sink currently used as default output
	DefaultSink() (SinkInfo, error)
	// SinkByIndex resolves a sink named by an event
	SinkByIndex(index uint32) (SinkInfo, error)
	// AttachCapture opens a capture stream on a monitor source
	AttachCapture(source string, spec CaptureSpec, sink FrameSink) (Capture, error)
	// Close releases the server connections
	Close() error
}

// Open connects to the named backend
func Open(name, appName string, logger zerolog.Logger) (Backend, error) {
	switch name {
	case BackendPulse, "":
		return DialPulse(appName, logger)
	case BackendMalgo:
		return OpenLoopback(logger)
	default:
		return nil, fmt.Errorf("%w: unsupported capture backend %q", ErrConnect, name)
	}
}

// post queues ev without blocking and reports whether it was accepted
func post(events chan Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	default:
		return false
	}
}
