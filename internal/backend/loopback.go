// ABOUTME: miniaudio loopback backend
// ABOUTME: Captures the default output device without a topology event source
package backend

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// LoopbackSource names the default output device's loopback
const LoopbackSource = "loopback:default"

// Loopback captures the default playback device through miniaudio. It has
// no sink events; the single static sink is attached once at startup.
type Loopback struct {
	log    zerolog.Logger
	ctx    *malgo.AllocatedContext
	events chan Event

	mu     sync.Mutex
	closed bool
}

// OpenLoopback initializes a miniaudio context
func OpenLoopback(logger zerolog.Logger) (*Loopback, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: malgo context: %w", ErrConnect, err)
	}

	return &Loopback{
		log:    logger.With().Str("component", "backend.malgo").Logger(),
		ctx:    ctx,
		events: make(chan Event, EventQueueSize),
	}, nil
}

// Events never delivers; loopback has no topology notifications
func (l *Loopback) Events() <-chan Event {
	return l.events
}

func (l *Loopback) sink() SinkInfo {
	return SinkInfo{
		Index:          0,
		Name:           "default",
		MonitorSource:  LoopbackSource,
		HardwareVolume: true,
		Default:        true,
	}
}

// DefaultSink returns the static default device
func (l *Loopback) DefaultSink() (SinkInfo, error) {
	return l.sink(), nil
}

// SinkByIndex resolves only index 0
func (l *Loopback) SinkByIndex(index uint32) (SinkInfo, error) {
	if index != 0 {
		return SinkInfo{}, fmt.Errorf("%w: index=%d", ErrNoSink, index)
	}
	return l.sink(), nil
}

// AttachCapture starts a loopback device feeding sink
func (l *Loopback) AttachCapture(source string, spec CaptureSpec, sink FrameSink) (Capture, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if source != LoopbackSource {
		return nil, fmt.Errorf("%w: unknown source %q", ErrCaptureAttach, source)
	}

	c := &loopbackCapture{source: source}
	c.running.Store(true)

	cfg := malgo.DefaultDeviceConfig(malgo.Loopback)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(spec.Channels)
	cfg.SampleRate = uint32(spec.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			if len(input) == 0 {
				return
			}
			sink.Submit(audio.Int16FromBytes(input))
		},
		Stop: func() {
			c.running.Store(false)
		},
	}

	device, err := malgo.InitDevice(l.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: loopback device: %w", ErrCaptureAttach, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: start loopback: %w", ErrCaptureAttach, err)
	}

	c.device = device
	l.log.Info().Str("source", source).Msg("loopback stream ready")
	return c, nil
}

// Close frees the miniaudio context
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	_ = l.ctx.Uninit()
	l.ctx.Free()
	return nil
}

type loopbackCapture struct {
	source  string
	device  *malgo.Device
	running atomic.Bool
	closed  atomic.Bool
}

func (c *loopbackCapture) Source() string { return c.source }

func (c *loopbackCapture) Running() bool {
	return !c.closed.Load() && c.running.Load()
}

func (c *loopbackCapture) Err() error { return nil }

func (c *loopbackCapture) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	_ = c.device.Stop()
	c.device.Uninit()
	return nil
}
