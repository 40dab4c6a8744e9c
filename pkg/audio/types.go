// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM formats, decoded buffers and sample conversions
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	// FullScale is the magnitude used to normalize signed 16-bit samples to [-1, 1]
	FullScale = 32768.0

	// BitDepth16 is the only sample width the daemon produces or consumes
	BitDepth16 = 16
)

// Format describes a PCM layout
type Format struct {
	Codec      string // Source container ("ogg", "flac", "mp3"); informational only
	SampleRate int
	Channels   int
	BitDepth   int
}

// FrameSize returns the number of bytes in one interleaved frame
func (f Format) FrameSize() int {
	return f.Channels * f.BitDepth / 8
}

// BytesPerSecond returns the byte rate of the format
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// Valid reports whether the format can be played
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0 && f.BitDepth == BitDepth16
}

// PCM is decoded audio: interleaved signed 16-bit little-endian samples.
// It is never mutated after decode.
type PCM struct {
	Data   []byte
	Format Format
}

// Len returns the size of the buffer in bytes
func (p PCM) Len() int {
	return len(p.Data)
}

// Empty reports whether the buffer holds no audio
func (p PCM) Empty() bool {
	return len(p.Data) == 0
}

// Duration returns the playing time of the buffer
func (p PCM) Duration() time.Duration {
	bps := p.Format.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(int64(len(p.Data)) * int64(time.Second) / int64(bps))
}

// SampleFromFloat32 converts a normalized float sample to int16 with clipping
func SampleFromFloat32(sample float32) int16 {
	scaled := float64(sample) * FullScale
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

// AppendInt16 appends samples to dst as little-endian bytes
func AppendInt16(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}

// Int16FromBytes decodes little-endian bytes into samples; a trailing odd byte is ignored
func Int16FromBytes(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// StereoLoudness returns the loudness of one interleaved stereo frame.
//
// Each left/right pair is normalized to [-1, 1] and contributes
// (left² + right²) / 4; the result is the square root of the mean
// contribution. A trailing unpaired sample is ignored, and a frame
// without a complete pair has loudness 0.
func StereoLoudness(samples []int16) float64 {
	pairs := len(samples) / 2
	if pairs == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < pairs*2; i += 2 {
		left := float64(samples[i]) / FullScale
		right := float64(samples[i+1]) / FullScale
		sum += (left*left + right*right) / 4
	}

	return math.Sqrt(sum / float64(pairs))
}
