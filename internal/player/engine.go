// ABOUTME: Looped playback engine
// ABOUTME: Writes the PCM buffer to an output in chunks, wrapping at the end
package player

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/Resonate-Protocol/ambient-go/pkg/audio/output"
	"github.com/rs/zerolog"
)

// Engine errors
var (
	ErrNoAudioData  = errors.New("no audio data")
	ErrWriteFailure = errors.New("playback write failure")
)

// Config holds engine tunables
type Config struct {
	// ChunkBytes caps a single output write
	ChunkBytes int
	// PausedPoll is how often an idle loop rechecks the playing flag
	PausedPoll time.Duration
	// Volume is the initial stored volume in [0,1]
	Volume float64
}

// DefaultConfig returns 4096-byte chunks and a 100ms paused poll
func DefaultConfig() Config {
	return Config{
		ChunkBytes: 4096,
		PausedPoll: 100 * time.Millisecond,
		Volume:     0.5,
	}
}

// State is a point-in-time view of the engine flags
type State struct {
	Playing       bool
	StopRequested bool
	SelfOutput    bool
	Offset        int
	Volume        float64
}

// Engine loops a PCM buffer to an output
type Engine struct {
	log  zerolog.Logger
	cfg  Config
	pcm  audio.PCM
	out  output.Output
	self *SelfOutput

	playing       atomic.Bool
	stopRequested atomic.Bool
	offset        atomic.Int64
	volume        atomic.Uint64
	lastErr       atomic.Pointer[error]
	// exiting is raised by a failing loop before it clears playing
	exiting atomic.Bool

	mu   sync.Mutex // serializes loop start and join
	done chan struct{}

	// opened is owned by the loop goroutine, and by Stop after the join
	opened bool
}

// New validates pcm and returns an idle engine
func New(pcm audio.PCM, out output.Output, self *SelfOutput, cfg Config, logger zerolog.Logger) (*Engine, error) {
	if pcm.Empty() {
		return nil, ErrNoAudioData
	}
	if !pcm.Format.Valid() {
		return nil, fmt.Errorf("invalid pcm format: %+v", pcm.Format)
	}
	if cfg.ChunkBytes <= 0 {
		cfg.ChunkBytes = DefaultConfig().ChunkBytes
	}
	if cfg.PausedPoll <= 0 {
		cfg.PausedPoll = DefaultConfig().PausedPoll
	}
	if self == nil {
		self = NewSelfOutput()
	}

	e := &Engine{
		log:  logger.With().Str("component", "player").Logger(),
		cfg:  cfg,
		pcm:  pcm,
		out:  out,
		self: self,
	}
	e.SetVolume(cfg.Volume)

	e.log.Info().
		Int("bytes", pcm.Len()).
		Int("sample_rate", pcm.Format.SampleRate).
		Int("channels", pcm.Format.Channels).
		Int("bits_per_sample", pcm.Format.BitDepth).
		Dur("duration", pcm.Duration()).
		Msg("player initialized")

	return e, nil
}

// SelfOutput returns the flag this engine maintains
func (e *Engine) SelfOutput() *SelfOutput {
	return e.self
}

// Play starts or resumes playback. It is a no-op while already playing.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playing.Load() {
		return
	}

	e.log.Info().Int64("offset", e.offset.Load()).Msg("playing")
	e.stopRequested.Store(false)
	e.playing.Store(true)
	e.self.set(true)

	if e.loopRunning() {
		if !e.exiting.Load() {
			return
		}
		// the loop is aborting and will not see the new playing flag
		<-e.done
		e.done = nil
		e.playing.Store(true)
		e.self.set(true)
	}

	e.exiting.Store(false)
	e.done = make(chan struct{})
	go e.loop(e.done)
}

// Pause idles the loop, keeping the offset
func (e *Engine) Pause() {
	e.log.Info().Int64("offset", e.offset.Load()).Msg("paused")
	e.playing.Store(false)
	e.self.set(false)
}

// Stop ends the loop, waits for it to exit, then drains and closes the
// output. It is safe to call repeatedly and from any goroutine.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopRequested.Store(true)
	e.playing.Store(false)
	e.self.set(false)

	if e.done != nil {
		<-e.done
		e.done = nil
		e.log.Info().Msg("playback loop stopped")
	}

	if !e.opened {
		return
	}
	e.opened = false

	if err := e.out.Drain(); err != nil {
		e.log.Warn().Err(err).Msg("failed to drain output")
	}
	if err := e.out.Close(); err != nil {
		e.log.Warn().Err(err).Msg("failed to close output")
	}
}

// IsPlaying reports whether playback is active
func (e *Engine) IsPlaying() bool {
	return e.playing.Load()
}

// SetVolume stores v clamped to [0,1]. The stored value is not applied to
// written samples.
func (e *Engine) SetVolume(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.volume.Store(math.Float64bits(v))
}

// GetVolume returns the stored volume
func (e *Engine) GetVolume() float64 {
	return math.Float64frombits(e.volume.Load())
}

// Offset returns the current read position in bytes
func (e *Engine) Offset() int {
	return int(e.offset.Load())
}

// Err returns the failure that last aborted the loop, if any
func (e *Engine) Err() error {
	if p := e.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// State returns a snapshot of the engine flags
func (e *Engine) State() State {
	return State{
		Playing:       e.playing.Load(),
		StopRequested: e.stopRequested.Load(),
		SelfOutput:    e.self.Active(),
		Offset:        e.Offset(),
		Volume:        e.GetVolume(),
	}
}

// loopRunning must be called with mu held
func (e *Engine) loopRunning() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		e.done = nil
		return false
	default:
		return true
	}
}

func (e *Engine) loop(done chan struct{}) {
	defer close(done)

	if err := e.out.Open(e.pcm.Format); err != nil {
		e.abort(fmt.Errorf("open output: %w", err))
		return
	}
	e.opened = true

	data := e.pcm.Data
	for !e.stopRequested.Load() {
		if !e.playing.Load() {
			time.Sleep(e.cfg.PausedPoll)
			continue
		}

		start, end, next := nextChunk(int(e.offset.Load()), len(data), e.cfg.ChunkBytes)

		if err := e.out.Write(data[start:end]); err != nil {
			if cerr := e.out.Close(); cerr != nil {
				e.log.Debug().Err(cerr).Msg("close after write failure")
			}
			e.opened = false
			e.abort(fmt.Errorf("%w: offset %d: %w", ErrWriteFailure, start, err))
			return
		}

		e.offset.Store(int64(next))
	}
}

// abort records err and reports not-playing
func (e *Engine) abort(err error) {
	e.exiting.Store(true)
	e.lastErr.Store(&err)
	e.playing.Store(false)
	e.self.set(false)
	e.log.Error().Err(err).Msg("playback loop aborted")
}

// nextChunk bounds the chunk starting at offset within a size-byte buffer
// and returns the offset that follows it, wrapping to 0 at the end.
func nextChunk(offset, size, chunk int) (start, end, next int) {
	if offset < 0 || offset >= size {
		offset = 0
	}
	end = offset + chunk
	if end >= size {
		return offset, size, 0
	}
	return offset, end, end
}
