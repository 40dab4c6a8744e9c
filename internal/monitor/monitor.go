// ABOUTME: Sampling loop feeding captured frames into the decider
// ABOUTME: Computes the smoothed system volume and honors the self-output flag
package monitor

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/rs/zerolog"
)

// Defaults for Config
const (
	DefaultThreshold   = 0.016
	DefaultHistorySize = 60
	DefaultInterval    = 50 * time.Millisecond
	DefaultResumeDelay = 1000 * time.Millisecond
	DefaultFrameQueue  = 256
)

// Config holds monitor tunables; zero fields take the defaults
type Config struct {
	Threshold   float64
	HistorySize int
	Interval    time.Duration
	ResumeDelay time.Duration
	FrameQueue  int
	Now         func() time.Time
}

// DefaultConfig returns the default tunables
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.ResumeDelay <= 0 {
		c.ResumeDelay = DefaultResumeDelay
	}
	if c.FrameQueue <= 0 {
		c.FrameQueue = DefaultFrameQueue
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// SelfOutput reports whether the ambient track itself is audible
type SelfOutput interface {
	Active() bool
}

// Snapshot is a point-in-time view of the monitor
type Snapshot struct {
	Volume  float64
	State   State
	Playing bool
	Dropped int64
}

// Monitor estimates system loudness and drives a Player through a Decider
type Monitor struct {
	log     zerolog.Logger
	cfg     Config
	player  Player
	self    SelfOutput
	decider *Decider

	// history is owned by the sampling loop
	history *History
	frames  chan []int16

	volume  atomic.Uint64
	dropped atomic.Int64

	// stepMu makes Halt wait for an in-flight decision
	stepMu sync.Mutex
	halted bool
}

// New returns a monitor that is idle until Run is called
func New(player Player, self SelfOutput, cfg Config, logger zerolog.Logger) *Monitor {
	cfg = cfg.withDefaults()
	return &Monitor{
		log:     logger.With().Str("component", "monitor").Logger(),
		cfg:     cfg,
		player:  player,
		self:    self,
		decider: NewDecider(player, cfg, logger),
		history: NewHistory(cfg.HistorySize),
		frames:  make(chan []int16, cfg.FrameQueue),
	}
}

// Submit queues a captured frame. It never blocks; frames are dropped
// when the queue is full or while our own output is active.
func (m *Monitor) Submit(frame []int16) {
	if m.self.Active() {
		m.setVolume(0)
		return
	}

	select {
	case m.frames <- frame:
	default:
		if n := m.dropped.Add(1); n == 1 || n%1000 == 0 {
			m.log.Warn().Int64("dropped", n).Msg("frame queue full, dropping frames")
		}
	}
}

// Volume returns the current smoothed system volume
func (m *Monitor) Volume() float64 {
	return math.Float64frombits(m.volume.Load())
}

// Snapshot returns the current volume, activity state and playback flag
func (m *Monitor) Snapshot() Snapshot {
	return Snapshot{
		Volume:  m.Volume(),
		State:   m.decider.State(),
		Playing: m.player.IsPlaying(),
		Dropped: m.dropped.Load(),
	}
}

// Run samples every Interval until ctx is done. History and activity
// state start empty on every call.
func (m *Monitor) Run(ctx context.Context) {
	m.history.Reset()
	m.decider.Reset()
	m.setVolume(0)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.log.Info().
		Float64("threshold", m.cfg.Threshold).
		Dur("interval", m.cfg.Interval).
		Dur("resume_delay", m.cfg.ResumeDelay).
		Msg("monitor started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("monitor stopped")
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// Halt stops playback decisions. After it returns the monitor never calls
// the player until Resume. Frames are still measured.
func (m *Monitor) Halt() {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()
	m.halted = true
}

// Resume re-enables playback decisions after Halt
func (m *Monitor) Resume() {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()
	m.halted = false
}

// tick drains pending frames and runs one decision
func (m *Monitor) tick() {
	m.drain()

	m.stepMu.Lock()
	defer m.stepMu.Unlock()
	if m.halted {
		return
	}
	m.decider.Step(m.Volume())
}

func (m *Monitor) drain() {
	for {
		select {
		case frame := <-m.frames:
			m.consume(frame)
		default:
			return
		}
	}
}

func (m *Monitor) consume(frame []int16) {
	if m.self.Active() {
		m.setVolume(0)
		return
	}
	if len(frame) < 2 {
		return
	}

	m.history.Push(audio.StereoLoudness(frame))
	m.setVolume(m.history.Mean())
}

func (m *Monitor) setVolume(v float64) {
	m.volume.Store(math.Float64bits(v))
}
