// ABOUTME: Pause/resume hysteresis state machine
// ABOUTME: Pauses on loud system audio and resumes after a quiet delay
package monitor

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Player is the playback control the decider drives
type Player interface {
	Play()
	Pause()
	IsPlaying() bool
}

// State is the decider's view of system activity
type State int32

const (
	// Quiet means no system activity has been seen since the last resume
	Quiet State = iota
	// SystemActive means the latest volume was above the threshold
	SystemActive
	// CoolingDown means the system went quiet and the resume delay is running
	CoolingDown
)

func (s State) String() string {
	switch s {
	case Quiet:
		return "quiet"
	case SystemActive:
		return "system-active"
	case CoolingDown:
		return "cooling-down"
	default:
		return "unknown"
	}
}

// Decider runs one decision per Step. Step must be called from a single
// goroutine; State may be read from any.
type Decider struct {
	log         zerolog.Logger
	player      Player
	threshold   float64
	resumeDelay time.Duration
	now         func() time.Time

	lastActivity    time.Time
	systemWasActive bool
	state           atomic.Int32
}

// NewDecider returns a decider in the Quiet state
func NewDecider(player Player, cfg Config, logger zerolog.Logger) *Decider {
	cfg = cfg.withDefaults()
	return &Decider{
		log:         logger.With().Str("component", "decider").Logger(),
		player:      player,
		threshold:   cfg.Threshold,
		resumeDelay: cfg.ResumeDelay,
		now:         cfg.Now,
	}
}

// State returns the current activity state
func (d *Decider) State() State {
	return State(d.state.Load())
}

// Reset returns to Quiet and forgets the last activity time
func (d *Decider) Reset() {
	d.lastActivity = time.Time{}
	d.systemWasActive = false
	d.state.Store(int32(Quiet))
}

// Step applies one decision for the smoothed volume v
func (d *Decider) Step(v float64) {
	now := d.now()

	if v > d.threshold {
		d.lastActivity = now
		d.systemWasActive = true
		d.enter(SystemActive, v)

		if d.player.IsPlaying() {
			d.log.Info().Float64("volume", v).Msg("system audio active, pausing playback")
			d.player.Pause()
		}
		return
	}

	if d.systemWasActive {
		elapsed := now.Sub(d.lastActivity)
		if elapsed < d.resumeDelay {
			d.enter(CoolingDown, v)
			return
		}

		if !d.player.IsPlaying() {
			d.log.Info().
				Float64("volume", v).
				Dur("elapsed", elapsed).
				Msg("system audio inactive, resuming playback")
			d.player.Play()
		}
		d.systemWasActive = false
		d.enter(Quiet, v)
		return
	}

	if !d.player.IsPlaying() {
		d.log.Info().Float64("volume", v).Msg("system audio quiet, starting playback")
		d.player.Play()
	}
}

func (d *Decider) enter(s State, v float64) {
	prev := State(d.state.Swap(int32(s)))
	if prev != s {
		d.log.Debug().
			Stringer("from", prev).
			Stringer("to", s).
			Float64("volume", v).
			Msg("activity state changed")
	}
}
