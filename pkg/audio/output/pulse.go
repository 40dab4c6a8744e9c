// ABOUTME: PulseAudio output implementation
// ABOUTME: Bridges blocking writes to a pull-based PulseAudio playback stream
package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/jfreymuth/pulse"
	"github.com/rs/zerolog"
)

// Pulse output implementation using a native PulseAudio connection
type Pulse struct {
	log        zerolog.Logger
	appName    string
	client     *pulse.Client
	stream     *pulse.PlaybackStream
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	scratch    []byte
	ready      bool
}

// NewPulse creates a new PulseAudio output
func NewPulse(appName string, logger zerolog.Logger) Output {
	return &Pulse{
		log:     logger.With().Str("component", "output.pulse").Logger(),
		appName: appName,
	}
}

// Open connects to the server and starts a playback stream
func (p *Pulse) Open(format audio.Format) error {
	if format.BitDepth != audio.BitDepth16 {
		return fmt.Errorf("pulse output requires 16-bit PCM, got %d-bit", format.BitDepth)
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName(p.appName))
	if err != nil {
		return fmt.Errorf("failed to connect to pulseaudio: %w", err)
	}

	p.pipeReader, p.pipeWriter = io.Pipe()

	var layout pulse.PlaybackOption = pulse.PlaybackStereo
	if format.Channels == 1 {
		layout = pulse.PlaybackMono
	}

	stream, err := client.NewPlayback(
		pulse.Int16Reader(p.fill),
		pulse.PlaybackSampleRate(format.SampleRate),
		layout,
		pulse.PlaybackLatency(0.1),
	)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to create playback stream: %w", err)
	}

	stream.Start()

	p.client = client
	p.stream = stream
	p.ready = true

	p.log.Info().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("audio output initialized")

	return nil
}

// fill is called by the stream for more samples; it blocks on the pipe
func (p *Pulse) fill(out []int16) (int, error) {
	if cap(p.scratch) < len(out)*2 {
		p.scratch = make([]byte, len(out)*2)
	}
	buf := p.scratch[:len(out)*2]

	n, err := io.ReadFull(p.pipeReader, buf)
	samples := audio.Int16FromBytes(buf[:n])
	copy(out, samples)
	if err != nil {
		return len(samples), pulse.EndOfData
	}
	return len(samples), nil
}

// Write outputs audio samples (blocks until the stream pulls them)
func (p *Pulse) Write(data []byte) error {
	if !p.ready {
		return ErrNotOpen
	}

	if _, err := p.pipeWriter.Write(data); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}

	if err := p.stream.Error(); err != nil {
		return fmt.Errorf("playback stream failed: %w", err)
	}
	return nil
}

// Drain ends the feed and waits for the server to play it out
func (p *Pulse) Drain() error {
	if !p.ready {
		return ErrNotOpen
	}

	_ = p.pipeWriter.Close()
	p.stream.Drain()
	if err := p.stream.Error(); err != nil && !errors.Is(err, pulse.EndOfData) {
		return fmt.Errorf("drain failed: %w", err)
	}
	return nil
}

// Close releases the stream and the server connection
func (p *Pulse) Close() error {
	if p.pipeWriter != nil {
		_ = p.pipeWriter.Close()
	}
	if p.pipeReader != nil {
		_ = p.pipeReader.Close()
	}
	if p.stream != nil {
		p.stream.Close()
		p.stream = nil
	}
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	p.ready = false
	return nil
}
