// ABOUTME: Shared flag reporting whether the ambient track is audible
// ABOUTME: Written only by the playback engine, read by anyone
package player

import "sync/atomic"

// SelfOutput reports whether the engine is currently producing sound.
// Only an Engine can set it.
type SelfOutput struct {
	active atomic.Bool
}

// NewSelfOutput returns a cleared flag
func NewSelfOutput() *SelfOutput {
	return &SelfOutput{}
}

// Active reports whether our own output is playing
func (s *SelfOutput) Active() bool {
	return s.active.Load()
}

func (s *SelfOutput) set(active bool) {
	s.active.Store(active)
}
