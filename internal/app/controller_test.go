// ABOUTME: Tests for daemon orchestration
// ABOUTME: Covers start idempotence, shutdown order and backend failure handling
package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Resonate-Protocol/ambient-go/internal/backend"
	"github.com/Resonate-Protocol/ambient-go/internal/monitor"
	"github.com/Resonate-Protocol/ambient-go/internal/player"
	"github.com/Resonate-Protocol/ambient-go/internal/topology"
	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journal records shutdown steps across fakes
type journal struct {
	mu    sync.Mutex
	steps []string
}

func (j *journal) add(step string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps = append(j.steps, step)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.steps...)
}

type slowOutput struct {
	j *journal
}

func (o *slowOutput) Open(audio.Format) error { return nil }
func (o *slowOutput) Write([]byte) error {
	time.Sleep(time.Millisecond)
	return nil
}
func (o *slowOutput) Drain() error { return nil }
func (o *slowOutput) Close() error {
	o.j.add("output closed")
	return nil
}

// slowDrainOutput takes a while to flush, as a real device does
type slowDrainOutput struct {
	opens atomic.Int32
}

func (o *slowDrainOutput) Open(audio.Format) error {
	o.opens.Add(1)
	return nil
}
func (o *slowDrainOutput) Write([]byte) error {
	time.Sleep(time.Millisecond)
	return nil
}
func (o *slowDrainOutput) Drain() error {
	time.Sleep(200 * time.Millisecond)
	return nil
}
func (o *slowDrainOutput) Close() error { return nil }

type journaledBackend struct {
	*backend.Fake
	j *journal
}

func (b *journaledBackend) Close() error {
	b.j.add("backend closed")
	return b.Fake.Close()
}

func newEngine(t *testing.T, j *journal) *player.Engine {
	t.Helper()
	pcm := audio.PCM{
		Data:   make([]byte, 8192),
		Format: audio.Format{Codec: "vorbis", SampleRate: 44100, Channels: 2, BitDepth: 16},
	}
	cfg := player.Config{ChunkBytes: 1024, PausedPoll: 2 * time.Millisecond}
	e, err := player.New(pcm, &slowOutput{j: j}, player.NewSelfOutput(), cfg, zerolog.Nop())
	require.NoError(t, err)
	return e
}

func testConfig() Config {
	return Config{
		Monitor:  monitor.Config{Interval: 5 * time.Millisecond},
		Topology: topology.Config{Spec: backend.DefaultCaptureSpec(), Poll: time.Millisecond},
	}
}

func TestStartPlaysAndAttaches(t *testing.T) {
	j := &journal{}
	fake := backend.NewFake()
	fake.AddSink(backend.SinkInfo{Index: 1, Name: "speakers", MonitorSource: "speakers.monitor", HardwareVolume: true})

	opens := 0
	c := New(newEngine(t, j), func() (backend.Backend, error) {
		opens++
		return fake, nil
	}, testConfig(), zerolog.Nop())

	c.Start()
	c.Start()
	defer c.Stop()

	assert.Equal(t, 1, opens, "second Start is a no-op")
	require.Eventually(t, func() bool { return c.Status().Capture.Attached }, time.Second, time.Millisecond)

	status := c.Status()
	assert.True(t, status.Running)
	assert.True(t, status.BackendConnected)
	assert.True(t, status.Player.Playing)
	assert.Equal(t, "speakers.monitor", status.Capture.Source)
}

func TestStopOrder(t *testing.T) {
	j := &journal{}
	fake := &journaledBackend{Fake: backend.NewFake(), j: j}
	fake.AddSink(backend.SinkInfo{Index: 1, Name: "speakers", MonitorSource: "speakers.monitor", HardwareVolume: true})

	c := New(newEngine(t, j), func() (backend.Backend, error) { return fake, nil }, testConfig(), zerolog.Nop())
	c.Start()
	require.Eventually(t, func() bool { return c.Status().Capture.Attached }, time.Second, time.Millisecond)

	c.Stop()
	c.Stop()

	assert.Equal(t, []string{"output closed", "backend closed"}, j.list())
	assert.True(t, fake.Captures()[0].Closed())

	status := c.Status()
	assert.False(t, status.Running)
	assert.False(t, status.Player.Playing)
	assert.True(t, status.Player.StopRequested)
	assert.False(t, status.BackendConnected)
}

func TestStopIsFinalWhileOutputDrains(t *testing.T) {
	out := &slowDrainOutput{}
	pcm := audio.PCM{
		Data:   make([]byte, 8192),
		Format: audio.Format{Codec: "vorbis", SampleRate: 44100, Channels: 2, BitDepth: 16},
	}
	cfg := player.Config{ChunkBytes: 1024, PausedPoll: 2 * time.Millisecond}
	engine, err := player.New(pcm, out, player.NewSelfOutput(), cfg, zerolog.Nop())
	require.NoError(t, err)

	fake := backend.NewFake()
	fake.AddSink(backend.SinkInfo{Index: 1, Name: "speakers", MonitorSource: "speakers.monitor", HardwareVolume: true})

	c := New(engine, func() (backend.Backend, error) { return fake, nil }, testConfig(), zerolog.Nop())
	c.Start()
	require.Eventually(t, func() bool { return c.Status().Capture.Attached }, time.Second, time.Millisecond)

	c.Stop()
	time.Sleep(30 * time.Millisecond)

	state := engine.State()
	assert.False(t, state.Playing)
	assert.True(t, state.StopRequested)
	assert.False(t, state.SelfOutput)
	assert.Equal(t, int32(1), out.opens.Load(), "output must not be reopened during shutdown")
}

func TestBackendFailureKeepsPlaying(t *testing.T) {
	j := &journal{}
	c := New(newEngine(t, j), func() (backend.Backend, error) {
		return nil, backend.ErrConnect
	}, testConfig(), zerolog.Nop())

	c.Start()
	time.Sleep(20 * time.Millisecond)

	status := c.Status()
	assert.True(t, status.Player.Playing)
	assert.False(t, status.BackendConnected)
	assert.False(t, status.Capture.Attached)

	c.Stop()
	assert.Equal(t, []string{"output closed"}, j.list())
}

func TestLoudCaptureNeverPausesWhileSelfOutputActive(t *testing.T) {
	j := &journal{}
	fake := backend.NewFake()
	fake.AddSink(backend.SinkInfo{Index: 1, Name: "speakers", MonitorSource: "speakers.monitor", HardwareVolume: true})

	c := New(newEngine(t, j), func() (backend.Backend, error) { return fake, nil }, testConfig(), zerolog.Nop())
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool { return len(fake.Captures()) == 1 }, time.Second, time.Millisecond)

	loud := make([]int16, 1024)
	for i := range loud {
		loud[i] = 20000
	}
	for i := 0; i < 10; i++ {
		fake.Captures()[0].Deliver(loud)
		time.Sleep(2 * time.Millisecond)
	}

	status := c.Status()
	assert.True(t, status.Player.Playing)
	assert.Zero(t, status.Monitor.Volume)
}

func TestStopWithoutStart(t *testing.T) {
	j := &journal{}
	c := New(newEngine(t, j), func() (backend.Backend, error) {
		return nil, errors.New("unused")
	}, testConfig(), zerolog.Nop())

	c.Stop()
	assert.Empty(t, j.list())
}
