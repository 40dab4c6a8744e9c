// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the blocking Output interface and its backends
// Package output provides audio playback sinks with a blocking Write.
//
// Every backend accepts interleaved 16-bit little-endian PCM and blocks in
// Write until the device has room for the data, so a writer loop is paced to
// real time by the device itself. Backends:
//   - oto: default, cross-platform (io.Pipe feeding one persistent player)
//   - pulse: native PulseAudio playback stream
//   - malgo: miniaudio device fed from a ring buffer
//   - portaudio: PortAudio blocking stream (build with -tags portaudio)
//
// Example:
//
//	out, err := output.New(output.BackendOto, "ambientd", logger)
//	err = out.Open(pcm.Format)
//	err = out.Write(pcm.Data[:4096])
//	err = out.Drain()
//	err = out.Close()
package output
