// ABOUTME: In-memory backend for tests
// ABOUTME: Lets callers script sinks, events, capture failures and frame delivery
package backend

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Fake is a scriptable Backend
type Fake struct {
	events chan Event

	mu           sync.Mutex
	sinks        map[uint32]SinkInfo
	defaultIndex uint32
	hasDefault   bool
	attachErr    error
	captures     []*FakeCapture
	closed       bool
}

// NewFake returns a fake with no sinks
func NewFake() *Fake {
	return &Fake{
		events: make(chan Event, EventQueueSize),
		sinks:  make(map[uint32]SinkInfo),
	}
}

// AddSink registers a sink; the first one added becomes the default
func (f *Fake) AddSink(info SinkInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks[info.Index] = info
	if !f.hasDefault {
		f.defaultIndex = info.Index
		f.hasDefault = true
	}
}

// RemoveSink forgets a sink
func (f *Fake) RemoveSink(index uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sinks, index)
	if f.hasDefault && f.defaultIndex == index {
		f.hasDefault = false
	}
}

// SetDefault selects the default sink
func (f *Fake) SetDefault(index uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultIndex = index
	f.hasDefault = true
}

// FailAttach makes subsequent AttachCapture calls fail with err; nil clears it
func (f *Fake) FailAttach(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachErr = err
}

// Post queues an event without blocking and reports whether it fit
func (f *Fake) Post(ev Event) bool {
	return post(f.events, ev)
}

// Captures returns every capture attached so far, oldest first
func (f *Fake) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

// Closed reports whether Close was called
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) Events() <-chan Event {
	return f.events
}

func (f *Fake) DefaultSink() (SinkInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasDefault {
		return SinkInfo{}, fmt.Errorf("%w: no default", ErrNoSink)
	}
	info, ok := f.sinks[f.defaultIndex]
	if !ok {
		return SinkInfo{}, fmt.Errorf("%w: index=%d", ErrNoSink, f.defaultIndex)
	}
	info.Default = true
	return info, nil
}

func (f *Fake) SinkByIndex(index uint32) (SinkInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.sinks[index]
	if !ok {
		return SinkInfo{}, fmt.Errorf("%w: index=%d", ErrNoSink, index)
	}
	info.Default = f.hasDefault && f.defaultIndex == index
	return info, nil
}

func (f *Fake) AttachCapture(source string, spec CaptureSpec, sink FrameSink) (Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	if f.attachErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureAttach, f.attachErr)
	}
	c := &FakeCapture{source: source, spec: spec, sink: sink}
	f.captures = append(f.captures, c)
	return c, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// FakeCapture is a capture created by Fake
type FakeCapture struct {
	source string
	spec   CaptureSpec
	sink   FrameSink
	closed atomic.Bool

	mu  sync.Mutex
	err error
}

// Spec returns the layout requested at attach time
func (c *FakeCapture) Spec() CaptureSpec { return c.spec }

// Deliver hands frame to the attached sink as the server would
func (c *FakeCapture) Deliver(frame []int16) {
	if c.Running() {
		c.sink.Submit(frame)
	}
}

// Fail marks the stream as failed
func (c *FakeCapture) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Closed reports whether Close was called
func (c *FakeCapture) Closed() bool { return c.closed.Load() }

func (c *FakeCapture) Source() string { return c.source }

func (c *FakeCapture) Running() bool {
	return !c.closed.Load() && c.Err() == nil
}

func (c *FakeCapture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *FakeCapture) Close() error {
	c.closed.Store(true)
	return nil
}
