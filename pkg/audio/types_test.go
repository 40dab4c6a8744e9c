// ABOUTME: Tests for audio types
// ABOUTME: Tests format math, sample conversion and loudness estimation
package audio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatFrameSize(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		expected int
	}{
		{"stereo 16-bit", Format{SampleRate: 44100, Channels: 2, BitDepth: 16}, 4},
		{"mono 16-bit", Format{SampleRate: 22050, Channels: 1, BitDepth: 16}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.format.FrameSize())
		})
	}
}

func TestPCMDuration(t *testing.T) {
	pcm := PCM{
		Data:   make([]byte, 44100*4),
		Format: Format{SampleRate: 44100, Channels: 2, BitDepth: 16},
	}
	assert.Equal(t, time.Second, pcm.Duration())

	assert.Equal(t, time.Duration(0), PCM{Data: make([]byte, 8)}.Duration(), "zero format must not divide by zero")
}

func TestFormatValid(t *testing.T) {
	assert.True(t, Format{SampleRate: 48000, Channels: 1, BitDepth: 16}.Valid())
	assert.False(t, Format{SampleRate: 0, Channels: 2, BitDepth: 16}.Valid())
	assert.False(t, Format{SampleRate: 48000, Channels: 2, BitDepth: 24}.Valid())
}

func TestSampleFromFloat32(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"half", 0.5, 16384},
		{"negative half", -0.5, -16384},
		{"clip high", 1.5, math.MaxInt16},
		{"clip low", -1.5, math.MinInt16},
		{"full negative", -1, math.MinInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SampleFromFloat32(tt.input))
		})
	}
}

func TestInt16ByteConversion(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	data := AppendInt16(nil, samples)

	assert.Len(t, data, len(samples)*2)
	assert.Equal(t, []byte{0xFF, 0xFF}, data[4:6], "-1 is 0xFFFF little-endian")
	assert.Equal(t, samples, Int16FromBytes(data))
	assert.Equal(t, samples, Int16FromBytes(append(data, 0x7F)), "odd trailing byte is ignored")
}

func TestStereoLoudness(t *testing.T) {
	t.Run("silence", func(t *testing.T) {
		assert.Equal(t, 0.0, StereoLoudness(make([]int16, 512)))
	})

	t.Run("empty and unpaired", func(t *testing.T) {
		assert.Equal(t, 0.0, StereoLoudness(nil))
		assert.Equal(t, 0.0, StereoLoudness([]int16{12000}))
	})

	t.Run("constant level", func(t *testing.T) {
		// Both channels at 0.5 full scale: sqrt((0.25+0.25)/4) = sqrt(0.125)
		frame := make([]int16, 64)
		for i := range frame {
			frame[i] = 16384
		}
		assert.InDelta(t, math.Sqrt(0.125), StereoLoudness(frame), 1e-9)
	})

	t.Run("one channel only", func(t *testing.T) {
		frame := []int16{-32768, 0, -32768, 0}
		assert.InDelta(t, 0.5, StereoLoudness(frame), 1e-9)
	})

	t.Run("trailing sample ignored", func(t *testing.T) {
		frame := []int16{16384, 16384, 32767}
		assert.InDelta(t, math.Sqrt(0.125), StereoLoudness(frame), 1e-9)
	})
}
