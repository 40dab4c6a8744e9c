//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform blocking audio output using PortAudio
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// framesPerBuffer is the blocking write granularity in frames
const framesPerBuffer = 1024

// PortAudio output implementation
type PortAudio struct {
	log    zerolog.Logger
	stream *portaudio.Stream
	buffer []int16
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(logger zerolog.Logger) Output {
	return &PortAudio{
		log: logger.With().Str("component", "output.portaudio").Logger(),
	}
}

// Open initializes PortAudio and opens a blocking stream
func (p *PortAudio) Open(format audio.Format) error {
	if format.BitDepth != audio.BitDepth16 {
		return fmt.Errorf("portaudio output requires 16-bit PCM, got %d-bit", format.BitDepth)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.buffer = make([]int16, framesPerBuffer*format.Channels)
	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), framesPerBuffer, &p.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	p.log.Info().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("audio output initialized")
	return nil
}

// Write outputs audio samples, one device buffer at a time
func (p *PortAudio) Write(data []byte) error {
	if p.stream == nil {
		return ErrNotOpen
	}

	samples := audio.Int16FromBytes(data)
	for len(samples) > 0 {
		n := copy(p.buffer, samples)
		clear(p.buffer[n:])
		samples = samples[n:]

		if err := p.stream.Write(); err != nil {
			return fmt.Errorf("stream write failed: %w", err)
		}
	}
	return nil
}

// Drain stops the stream, which waits for pending buffers to play
func (p *PortAudio) Drain() error {
	if p.stream == nil {
		return ErrNotOpen
	}
	return p.stream.Stop()
}

// Close releases resources
func (p *PortAudio) Close() error {
	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			p.log.Warn().Err(err).Msg("stream close error")
		}
		p.stream = nil
	}
	return portaudio.Terminate()
}
