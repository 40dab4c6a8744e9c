// ABOUTME: Tests for loudness history, decider and sampling loop
// ABOUTME: Drives the state machine with a simulated clock and synthetic frames
package monitor

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu      sync.Mutex
	playing bool
	plays   int
	pauses  int
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	p.playing = true
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
	p.playing = false
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) counts() (plays, pauses int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays, p.pauses
}

type fakeSelf struct {
	active atomic.Bool
}

func (s *fakeSelf) Active() bool { return s.active.Load() }

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) config() Config          { return Config{Now: c.Now} }

func constantFrame(sample int16, pairs int) []int16 {
	frame := make([]int16, pairs*2)
	for i := range frame {
		frame[i] = sample
	}
	return frame
}

func TestHistoryEvictsOldestFirst(t *testing.T) {
	h := NewHistory(60)
	for i := 0; i < 1000; i++ {
		h.Push(float64(i))
	}

	require.Equal(t, 60, h.Len())
	values := h.Values()
	for i, v := range values {
		assert.Equal(t, float64(940+i), v)
	}
}

func TestHistoryMean(t *testing.T) {
	h := NewHistory(3)
	assert.Equal(t, 0.0, h.Mean())

	h.Push(1)
	h.Push(2)
	h.Push(3)
	assert.InDelta(t, 2.0, h.Mean(), 1e-12)

	h.Push(7)
	assert.InDelta(t, 4.0, h.Mean(), 1e-12)

	h.Reset()
	assert.Zero(t, h.Len())
}

func TestDeciderPlaysImmediatelyFromQuiet(t *testing.T) {
	clock := newFakeClock()
	player := &fakePlayer{}
	d := NewDecider(player, clock.config(), zerolog.Nop())

	for elapsed := time.Duration(0); elapsed < 2000*time.Millisecond; elapsed += DefaultInterval {
		d.Step(0)
		clock.Advance(DefaultInterval)
	}

	plays, pauses := player.counts()
	assert.Equal(t, 1, plays)
	assert.Zero(t, pauses)
	assert.Equal(t, Quiet, d.State())
}

func TestDeciderFirstTickPlays(t *testing.T) {
	player := &fakePlayer{}
	d := NewDecider(player, newFakeClock().config(), zerolog.Nop())

	d.Step(0.001)
	plays, _ := player.counts()
	assert.Equal(t, 1, plays)
}

func TestDeciderPausesWithinOneTick(t *testing.T) {
	clock := newFakeClock()
	player := &fakePlayer{playing: true}
	d := NewDecider(player, clock.config(), zerolog.Nop())

	d.Step(0.05)

	_, pauses := player.counts()
	assert.Equal(t, 1, pauses)
	assert.False(t, player.IsPlaying())
	assert.Equal(t, SystemActive, d.State())
}

func TestDeciderThresholdIsExclusive(t *testing.T) {
	player := &fakePlayer{playing: true}
	d := NewDecider(player, newFakeClock().config(), zerolog.Nop())

	d.Step(DefaultThreshold)

	_, pauses := player.counts()
	assert.Zero(t, pauses)
	assert.Equal(t, Quiet, d.State())
}

func TestDeciderHoldsPauseForResumeDelay(t *testing.T) {
	clock := newFakeClock()
	player := &fakePlayer{playing: true}
	d := NewDecider(player, clock.config(), zerolog.Nop())

	d.Step(0.05)
	loudAt := clock.Now()

	for _, at := range []time.Duration{50, 500, 950, 999} {
		clock.t = loudAt.Add(at * time.Millisecond)
		d.Step(0.001)
		plays, _ := player.counts()
		assert.Zero(t, plays, "must not resume %dms after activity", at)
		assert.Equal(t, CoolingDown, d.State())
	}

	clock.t = loudAt.Add(1000 * time.Millisecond)
	d.Step(0.001)

	plays, _ := player.counts()
	assert.Equal(t, 1, plays)
	assert.Equal(t, Quiet, d.State())
}

func TestDeciderRelatchesOnLoudDuringCooldown(t *testing.T) {
	clock := newFakeClock()
	player := &fakePlayer{playing: true}
	d := NewDecider(player, clock.config(), zerolog.Nop())

	d.Step(0.05)
	clock.Advance(500 * time.Millisecond)
	d.Step(0.001)
	assert.Equal(t, CoolingDown, d.State())

	clock.Advance(300 * time.Millisecond)
	d.Step(0.05)
	assert.Equal(t, SystemActive, d.State())
	relatched := clock.Now()

	clock.t = relatched.Add(900 * time.Millisecond)
	d.Step(0.001)
	plays, _ := player.counts()
	assert.Zero(t, plays, "cooldown progress must not accumulate")

	clock.t = relatched.Add(1000 * time.Millisecond)
	d.Step(0.001)
	plays, _ = player.counts()
	assert.Equal(t, 1, plays)
}

func TestDeciderClearsActivityWhenAlreadyPlaying(t *testing.T) {
	clock := newFakeClock()
	player := &fakePlayer{}
	d := NewDecider(player, clock.config(), zerolog.Nop())

	d.Step(0.05)
	player.Play()
	clock.Advance(time.Second)
	d.Step(0)

	plays, _ := player.counts()
	assert.Equal(t, 1, plays, "no extra play when already playing")
	assert.Equal(t, Quiet, d.State())
}

func TestDeciderScenario(t *testing.T) {
	clock := newFakeClock()
	player := &fakePlayer{}
	d := NewDecider(player, clock.config(), zerolog.Nop())

	// silence from Quiet plays once, at the first tick
	d.Step(0)
	plays, _ := player.counts()
	require.Equal(t, 1, plays)
	for i := 0; i < 39; i++ {
		clock.Advance(DefaultInterval)
		d.Step(0)
	}
	plays, _ = player.counts()
	require.Equal(t, 1, plays)

	// a loud tick pauses
	clock.Advance(DefaultInterval)
	d.Step(0.05)
	loudAt := clock.Now()
	_, pauses := player.counts()
	require.Equal(t, 1, pauses)

	// quiet ticks until the delay elapses
	var resumedAt time.Time
	for i := 0; i < 40 && resumedAt.IsZero(); i++ {
		clock.Advance(DefaultInterval)
		d.Step(0.002)
		if p, _ := player.counts(); p == 2 {
			resumedAt = clock.Now()
		}
	}

	require.False(t, resumedAt.IsZero())
	assert.GreaterOrEqual(t, resumedAt.Sub(loudAt), 1000*time.Millisecond)
	assert.Less(t, resumedAt.Sub(loudAt), 1000*time.Millisecond+DefaultInterval)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "quiet", Quiet.String())
	assert.Equal(t, "system-active", SystemActive.String())
	assert.Equal(t, "cooling-down", CoolingDown.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestMonitorLoudFramesPause(t *testing.T) {
	clock := newFakeClock()
	player := &fakePlayer{playing: true}
	m := New(player, &fakeSelf{}, clock.config(), zerolog.Nop())

	m.Submit(constantFrame(8000, 512))
	m.tick()

	assert.Greater(t, m.Volume(), DefaultThreshold)
	_, pauses := player.counts()
	assert.Equal(t, 1, pauses)

	snap := m.Snapshot()
	assert.Equal(t, SystemActive, snap.State)
	assert.False(t, snap.Playing)
}

func TestMonitorHaltSuppressesDecisions(t *testing.T) {
	clock := newFakeClock()
	player := &fakePlayer{}
	m := New(player, &fakeSelf{}, clock.config(), zerolog.Nop())

	m.Halt()
	m.Submit(constantFrame(8000, 512))
	m.tick()
	m.tick()

	plays, pauses := player.counts()
	assert.Zero(t, plays)
	assert.Zero(t, pauses)
	assert.Greater(t, m.Volume(), DefaultThreshold, "frames are still measured while halted")

	m.Resume()
	m.tick()
	_, pauses = player.counts()
	assert.Zero(t, pauses, "player was never playing")
	assert.Equal(t, SystemActive, m.Snapshot().State)
}

func TestMonitorVolumeIsHistoryMean(t *testing.T) {
	m := New(&fakePlayer{}, &fakeSelf{}, newFakeClock().config(), zerolog.Nop())

	m.Submit(constantFrame(16384, 100))
	m.Submit(constantFrame(0, 100))
	m.drain()

	// 16384 normalizes to 0.5, so the loud frame measures sqrt(0.125)
	assert.InDelta(t, math.Sqrt(0.125)/2, m.Volume(), 1e-9)
	assert.Equal(t, 2, m.history.Len())
}

func TestMonitorRetainsSixtyFrames(t *testing.T) {
	m := New(&fakePlayer{}, &fakeSelf{}, Config{FrameQueue: 2000}, zerolog.Nop())

	for i := 0; i < 1000; i++ {
		m.Submit(constantFrame(int16(i), 4))
	}
	m.drain()

	assert.Equal(t, 60, m.history.Len())
}

func TestMonitorIgnoresFramesWhileSelfOutputActive(t *testing.T) {
	self := &fakeSelf{}
	player := &fakePlayer{playing: true}
	m := New(player, self, newFakeClock().config(), zerolog.Nop())

	self.active.Store(true)
	m.Submit(constantFrame(30000, 512))
	m.tick()

	assert.Zero(t, m.Volume())
	assert.Zero(t, m.history.Len())
	_, pauses := player.counts()
	assert.Zero(t, pauses)
}

func TestMonitorDiscardsQueuedFramesWhenSelfOutputTurnsOn(t *testing.T) {
	self := &fakeSelf{}
	m := New(&fakePlayer{}, self, newFakeClock().config(), zerolog.Nop())

	m.Submit(constantFrame(30000, 512))
	self.active.Store(true)
	m.drain()

	assert.Zero(t, m.Volume())
	assert.Zero(t, m.history.Len())
}

func TestMonitorSkipsFramesWithoutPairs(t *testing.T) {
	m := New(&fakePlayer{}, &fakeSelf{}, newFakeClock().config(), zerolog.Nop())

	m.Submit([]int16{12000})
	m.Submit(nil)
	m.drain()

	assert.Zero(t, m.history.Len())
	assert.Zero(t, m.Volume())
}

func TestMonitorDropsWhenQueueFull(t *testing.T) {
	m := New(&fakePlayer{}, &fakeSelf{}, Config{FrameQueue: 2}, zerolog.Nop())

	for i := 0; i < 5; i++ {
		m.Submit(constantFrame(100, 4))
	}

	assert.Equal(t, int64(3), m.Snapshot().Dropped)
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	player := &fakePlayer{}
	m := New(player, &fakeSelf{}, Config{Interval: time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, player.IsPlaying, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.016, cfg.Threshold)
	assert.Equal(t, 60, cfg.HistorySize)
	assert.Equal(t, 50*time.Millisecond, cfg.Interval)
	assert.Equal(t, time.Second, cfg.ResumeDelay)
	assert.NotNil(t, cfg.Now)
}
