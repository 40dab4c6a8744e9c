// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, PCM buffer types and 16-bit sample helpers
// Package audio provides fundamental audio types and utilities for the ambient daemon.
//
// This package defines core types used throughout the module:
//   - Format: Describes a PCM layout (sample rate, channels, bit depth)
//   - PCM: Decoded, immutable interleaved 16-bit audio plus its Format
//
// It also provides helpers for 16-bit sample handling:
//   - float32 → int16 conversion with clipping
//   - int16 ↔ little-endian byte conversions
//   - StereoLoudness, the per-frame loudness estimate used for activity sensing
//
// Example:
//
//	pcm := audio.PCM{
//	    Data:   raw,
//	    Format: audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16},
//	}
//	fmt.Println(pcm.Duration())
package audio
