// ABOUTME: Topology watcher
// ABOUTME: Drains backend events and (re)attaches the monitor capture
package topology

import (
	"context"
	"sync"
	"time"

	"github.com/Resonate-Protocol/ambient-go/internal/backend"
	"github.com/rs/zerolog"
)

// DefaultPoll is the event loop sleep between non-blocking drains
const DefaultPoll = 10 * time.Millisecond

// Config holds watcher tunables
type Config struct {
	Spec backend.CaptureSpec
	Poll time.Duration
}

// DefaultConfig captures 44.1kHz stereo and polls every 10ms
func DefaultConfig() Config {
	return Config{Spec: backend.DefaultCaptureSpec(), Poll: DefaultPoll}
}

// Status describes the current attachment
type Status struct {
	Attached  bool
	Source    string
	SinkIndex uint32
	Attempts  int
	Failures  int
}

// Watcher owns the capture attachment
type Watcher struct {
	log     zerolog.Logger
	backend backend.Backend
	sink    backend.FrameSink
	cfg     Config

	mu        sync.Mutex
	capture   backend.Capture
	sinkIndex uint32
	attempts  int
	failures  int
	closed    bool
}

// New returns a watcher delivering captured frames to sink
func New(b backend.Backend, sink backend.FrameSink, cfg Config, logger zerolog.Logger) *Watcher {
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPoll
	}
	if cfg.Spec.SampleRate <= 0 || cfg.Spec.Channels <= 0 {
		cfg.Spec = backend.DefaultCaptureSpec()
	}
	return &Watcher{
		log:     logger.With().Str("component", "topology").Logger(),
		backend: b,
		sink:    sink,
		cfg:     cfg,
	}
}

// Run attaches once, then handles events until ctx is done
func (w *Watcher) Run(ctx context.Context) {
	w.attach()

	events := w.backend.Events()
	ticker := time.NewTicker(w.cfg.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(events)
		}
	}
}

// poll handles every queued event without blocking, then checks capture health
func (w *Watcher) poll(events <-chan backend.Event) {
drain:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break drain
			}
			w.handle(ev)
		default:
			break drain
		}
	}
	w.checkCapture()
}

func (w *Watcher) handle(ev backend.Event) {
	log := w.log.With().
		Stringer("facility", ev.Facility).
		Stringer("kind", ev.Kind).
		Uint32("index", ev.Index).
		Logger()

	if ev.Facility != backend.FacilitySink {
		log.Debug().Msg("ignoring event")
		return
	}

	if ev.Kind == backend.EventRemove {
		w.mu.Lock()
		attached := w.capture != nil && w.sinkIndex == ev.Index
		w.mu.Unlock()
		if attached {
			log.Info().Msg("monitored sink removed")
			w.detach()
		}
		return
	}

	info, err := w.backend.SinkByIndex(ev.Index)
	if err != nil {
		log.Debug().Err(err).Msg("sink lookup failed")
		return
	}
	if !info.Monitorable() {
		log.Debug().Str("sink", info.Name).Msg("sink has no hardware volume, ignoring")
		return
	}

	w.attach()
}

// attach opens a capture on the default sink's monitor unless a healthy one exists
func (w *Watcher) attach() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.capture != nil {
		if w.capture.Running() {
			return
		}
		w.releaseLocked()
	}

	w.attempts++

	info, err := w.backend.DefaultSink()
	if err != nil {
		w.failures++
		w.log.Warn().Err(err).Msg("failed to resolve default sink, will retry on next event")
		return
	}
	if info.MonitorSource == "" {
		w.failures++
		w.log.Warn().Str("sink", info.Name).Msg("default sink has no monitor source")
		return
	}

	capture, err := w.backend.AttachCapture(info.MonitorSource, w.cfg.Spec, w.sink)
	if err != nil {
		w.failures++
		w.log.Warn().Err(err).Str("source", info.MonitorSource).Msg("capture attach failed, will retry on next event")
		return
	}

	w.capture = capture
	w.sinkIndex = info.Index
	w.log.Info().
		Str("sink", info.Name).
		Str("source", info.MonitorSource).
		Int("sample_rate", w.cfg.Spec.SampleRate).
		Int("channels", w.cfg.Spec.Channels).
		Msg("monitor capture attached")
}

// checkCapture releases a capture whose stream has ended
func (w *Watcher) checkCapture() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capture == nil || w.capture.Running() {
		return
	}

	if err := w.capture.Err(); err != nil {
		w.log.Error().Err(err).Str("source", w.capture.Source()).Msg("monitor stream failed")
	} else {
		w.log.Info().Str("source", w.capture.Source()).Msg("monitor stream terminated")
	}
	w.releaseLocked()
}

func (w *Watcher) detach() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.releaseLocked()
}

func (w *Watcher) releaseLocked() {
	if w.capture == nil {
		return
	}
	if err := w.capture.Close(); err != nil {
		w.log.Warn().Err(err).Msg("failed to close capture")
	}
	w.capture = nil
	w.sinkIndex = 0
}

// Status reports the current attachment
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Status{Attempts: w.attempts, Failures: w.failures}
	if w.capture != nil {
		s.Attached = true
		s.Source = w.capture.Source()
		s.SinkIndex = w.sinkIndex
	}
	return s
}

// Close releases the capture; later events are ignored
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.releaseLocked()
	return nil
}
