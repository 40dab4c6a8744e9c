// ABOUTME: Tests for the backend package
// ABOUTME: Covers event translation, bounded posting and the fake backend
package backend

import (
	"errors"
	"testing"

	"github.com/jfreymuth/pulse/proto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Backend = (*Pulse)(nil)
	_ Backend = (*Loopback)(nil)
	_ Backend = (*Fake)(nil)
	_ Capture = (*FakeCapture)(nil)
)

type recordingSink struct {
	frames [][]int16
}

func (r *recordingSink) Submit(frame []int16) {
	r.frames = append(r.frames, frame)
}

func TestTranslateEvent(t *testing.T) {
	tests := []struct {
		name  string
		raw   uint32
		want  Event
		valid bool
	}{
		{"sink new", eventSink | eventNew, Event{Facility: FacilitySink, Kind: EventNew, Index: 7}, true},
		{"sink change", eventSink | eventChange, Event{Facility: FacilitySink, Kind: EventChange, Index: 7}, true},
		{"sink remove", eventSink | eventRemove, Event{Facility: FacilitySink, Kind: EventRemove, Index: 7}, true},
		{"sink input new", eventSinkInput | eventNew, Event{Facility: FacilitySinkInput, Kind: EventNew, Index: 7}, true},
		{"source ignored", 0x0001 | eventNew, Event{}, false},
		{"bad type", eventSink | 0x0030, Event{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := translateEvent(tt.raw, 7)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostNeverBlocks(t *testing.T) {
	events := make(chan Event, 2)
	assert.True(t, post(events, Event{Index: 1}))
	assert.True(t, post(events, Event{Index: 2}))
	assert.False(t, post(events, Event{Index: 3}))
	assert.Len(t, events, 2)
}

func TestPulseDispatchQueuesSinkEvents(t *testing.T) {
	p := &Pulse{log: zerolog.Nop(), events: make(chan Event, 1)}

	p.dispatch(&proto.ConnectionClosed{})
	p.dispatch(&proto.SubscribeEvent{Event: proto.SubscriptionEventType(0x0001 | eventNew), Index: 9})
	assert.Empty(t, p.events)

	p.dispatch(&proto.SubscribeEvent{Event: proto.SubscriptionEventType(eventSink | eventRemove), Index: 3})
	p.dispatch(&proto.SubscribeEvent{Event: proto.SubscriptionEventType(eventSink | eventNew), Index: 4})

	require.Len(t, p.events, 1)
	assert.Equal(t, Event{Facility: FacilitySink, Kind: EventRemove, Index: 3}, <-p.events)
	assert.Equal(t, int64(1), p.dropped.Load())
}

func TestSinkInfoMonitorable(t *testing.T) {
	assert.True(t, SinkInfo{MonitorSource: "m", HardwareVolume: true}.Monitorable())
	assert.False(t, SinkInfo{MonitorSource: "m"}.Monitorable())
	assert.False(t, SinkInfo{HardwareVolume: true}.Monitorable())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("jack", "test", zerolog.Nop())
	assert.ErrorIs(t, err, ErrConnect)
}

func TestFakeDefaultSink(t *testing.T) {
	f := NewFake()
	_, err := f.DefaultSink()
	assert.ErrorIs(t, err, ErrNoSink)

	f.AddSink(SinkInfo{Index: 3, MonitorSource: "a.monitor", HardwareVolume: true})
	f.AddSink(SinkInfo{Index: 5, MonitorSource: "b.monitor", HardwareVolume: true})

	info, err := f.DefaultSink()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), info.Index)
	assert.True(t, info.Default)

	f.SetDefault(5)
	info, err = f.SinkByIndex(5)
	require.NoError(t, err)
	assert.True(t, info.Default)

	f.RemoveSink(5)
	_, err = f.DefaultSink()
	assert.ErrorIs(t, err, ErrNoSink)
}

func TestFakeCaptureLifecycle(t *testing.T) {
	f := NewFake()
	sink := &recordingSink{}

	c, err := f.AttachCapture("a.monitor", DefaultCaptureSpec(), sink)
	require.NoError(t, err)
	require.Len(t, f.Captures(), 1)

	fc := f.Captures()[0]
	assert.Equal(t, "a.monitor", c.Source())
	assert.Equal(t, 44100, fc.Spec().SampleRate)
	assert.Equal(t, 2, fc.Spec().Channels)

	fc.Deliver([]int16{1, 2})
	assert.Len(t, sink.frames, 1)

	fc.Fail(errors.New("stream failed"))
	assert.False(t, c.Running())
	assert.Error(t, c.Err())

	fc.Deliver([]int16{3, 4})
	assert.Len(t, sink.frames, 1, "failed stream delivers nothing")

	require.NoError(t, c.Close())
	assert.True(t, fc.Closed())
}

func TestFakeAttachFailureAndClose(t *testing.T) {
	f := NewFake()
	f.FailAttach(errors.New("no source"))
	_, err := f.AttachCapture("x", DefaultCaptureSpec(), &recordingSink{})
	assert.ErrorIs(t, err, ErrCaptureAttach)

	f.FailAttach(nil)
	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
	_, err = f.AttachCapture("x", DefaultCaptureSpec(), &recordingSink{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "sink", FacilitySink.String())
	assert.Equal(t, "sink-input", FacilitySinkInput.String())
	assert.Equal(t, "other", FacilityOther.String())
	assert.Equal(t, "new", EventNew.String())
	assert.Equal(t, "change", EventChange.String())
	assert.Equal(t, "remove", EventRemove.String())
}
