// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo with a ring buffer feeding the device callback
package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	log        zerolog.Logger
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	ringBuffer *RingBuffer
	format     audio.Format
	ready      bool
	mu         sync.Mutex
}

// NewMalgo creates a new Malgo output
func NewMalgo(logger zerolog.Logger) Output {
	return &Malgo{
		log: logger.With().Str("component", "output.malgo").Logger(),
	}
}

// Open initializes the output device with specified format
func (m *Malgo) Open(format audio.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if format.BitDepth != audio.BitDepth16 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	if m.device != nil {
		m.closeDevice()
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	// 500ms of audio between the writer and the device
	m.ringBuffer = NewRingBuffer(format.BytesPerSecond() / 2)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	ring := m.ringBuffer
	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			ring.Read(pOutputSample)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.format = format
	m.ready = true

	m.log.Info().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("audio output initialized")

	return nil
}

// Write queues audio for the device callback, blocking while the ring is full
func (m *Malgo) Write(data []byte) error {
	m.mu.Lock()
	ring, ready := m.ringBuffer, m.ready
	m.mu.Unlock()

	if !ready {
		return ErrNotOpen
	}
	if _, err := ring.Write(data); err != nil {
		return fmt.Errorf("ring buffer write failed: %w", err)
	}
	return nil
}

// Drain waits for the callback to empty the ring
func (m *Malgo) Drain() error {
	m.mu.Lock()
	ring, ready := m.ringBuffer, m.ready
	m.mu.Unlock()

	if !ready {
		return ErrNotOpen
	}
	if !waitUntil(drainTimeout, func() bool { return ring.Available() == 0 }) {
		return errors.New("malgo drain timed out")
	}
	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.log.Warn().Err(err).Msg("malgo context uninit error")
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.ringBuffer != nil {
		m.ringBuffer.Close()
	}
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			m.log.Warn().Err(err).Msg("device stop error")
		}
		m.device.Uninit()
		m.device = nil
	}
	m.ready = false
}
