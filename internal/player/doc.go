// ABOUTME: Package player loops a decoded asset to an audio output
// ABOUTME: Play, pause and stop control with a self-output flag
// Package player implements the ambient playback engine.
//
// An Engine owns an immutable PCM buffer and writes it to an output.Output
// in bounded chunks on a dedicated goroutine, wrapping to the start when
// the end is reached. The loop is started lazily by the first Play and
// survives Pause; Stop joins it and releases the output.
//
// The engine is the only writer of a SelfOutput flag, which readers consult
// to tell the ambient track's own sound apart from other system audio.
package player
