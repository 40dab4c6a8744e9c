// ABOUTME: Package backend abstracts the system audio server
// ABOUTME: Topology events, sink lookup and monitor capture
// Package backend is the audio-server capability used by the monitor side of
// the daemon.
//
// A Backend delivers typed topology events on a bounded channel, resolves
// sinks, and attaches capture streams to a sink's monitor source. Captured
// frames are handed to a FrameSink, which must never block the server's
// callback thread.
//
// Implementations:
//   - Pulse: PulseAudio via the native protocol (events) and stream client (capture)
//   - Loopback: miniaudio loopback device, no topology events
//   - Fake: scriptable in-memory backend for tests
package backend
