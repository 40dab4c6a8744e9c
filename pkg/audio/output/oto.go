// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams PCM through a pipe into one persistent oto player
package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
)

// Oto output implementation using oto library
type Oto struct {
	log        zerolog.Logger
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	ready      bool
}

// NewOto creates a new Oto output
func NewOto(logger zerolog.Logger) Output {
	return &Oto{
		log: logger.With().Str("component", "output.oto").Logger(),
	}
}

// Open initializes the output device
func (o *Oto) Open(format audio.Format) error {
	if format.BitDepth != audio.BitDepth16 {
		return fmt.Errorf("oto output requires 16-bit PCM, got %d-bit", format.BitDepth)
	}

	// oto allows a single context per process, so an existing one is reused
	if o.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		o.otoCtx = ctx
		o.format = format
	} else {
		if o.format.SampleRate != format.SampleRate || o.format.Channels != format.Channels {
			o.log.Warn().
				Int("from_rate", o.format.SampleRate).Int("to_rate", format.SampleRate).
				Msg("format change not supported by oto, continuing with existing context")
		}
		if err := o.otoCtx.Resume(); err != nil {
			return fmt.Errorf("failed to resume oto context: %w", err)
		}
	}

	// Pipe for continuous streaming; Write blocks until the player consumes it
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.ready = true

	o.log.Info().
		Int("sample_rate", o.format.SampleRate).
		Int("channels", o.format.Channels).
		Msg("audio output initialized")

	return nil
}

// Write outputs audio samples (blocks until written)
func (o *Oto) Write(data []byte) error {
	if !o.ready {
		return ErrNotOpen
	}

	if _, err := o.pipeWriter.Write(data); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}

	if err := o.player.Err(); err != nil {
		return fmt.Errorf("oto player failed: %w", err)
	}

	return nil
}

// Drain closes the feed and waits for the player to run dry
func (o *Oto) Drain() error {
	if !o.ready {
		return ErrNotOpen
	}

	_ = o.pipeWriter.Close()
	if !waitUntil(drainTimeout, func() bool { return !o.player.IsPlaying() }) {
		return errors.New("oto drain timed out")
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.pipeWriter != nil {
		_ = o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			o.log.Warn().Err(err).Msg("player close error")
		}
		o.player = nil
	}
	if o.pipeReader != nil {
		_ = o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			o.log.Warn().Err(err).Msg("context suspend error")
		}
	}
	o.ready = false
	return nil
}
