// ABOUTME: PulseAudio backend
// ABOUTME: Subscribes to sink events on the server bus and records sink monitors
package backend

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/rs/zerolog"
)

// Native protocol constants
const (
	subscribeSink      = 0x0001
	subscribeSinkInput = 0x0004

	eventFacilityMask = 0x000F
	eventTypeMask     = 0x0030
	eventSink         = 0x0000
	eventSinkInput    = 0x0002
	eventNew          = 0x0000
	eventChange       = 0x0010
	eventRemove       = 0x0020

	sinkFlagHWVolume = 0x0001

	undefinedIndex = 0xFFFFFFFF
	defaultSink    = "@DEFAULT_SINK@"
)

// Pulse is a PulseAudio backend holding two server connections: a raw
// protocol connection for the event bus and sink introspection, and a
// stream client for monitor capture.
type Pulse struct {
	log       zerolog.Logger
	client    *pulse.Client
	bus       *proto.Client
	conn      net.Conn
	events    chan Event
	dropped   atomic.Int64
	closeOnce sync.Once
}

// DialPulse connects to the default PulseAudio server and subscribes to sink events
func DialPulse(appName string, logger zerolog.Logger) (*Pulse, error) {
	log := logger.With().Str("component", "backend.pulse").Logger()

	client, err := pulse.NewClient(pulse.ClientApplicationName(appName))
	if err != nil {
		return nil, fmt.Errorf("%w: stream client: %w", ErrConnect, err)
	}

	// Connect authenticates and negotiates the protocol version
	bus, conn, err := proto.Connect("")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: event bus: %w", ErrConnect, err)
	}

	p := &Pulse{
		log:    log,
		client: client,
		bus:    bus,
		conn:   conn,
		events: make(chan Event, EventQueueSize),
	}
	// The read loop only consults Callback for server-initiated messages.
	// Nothing is subscribed yet, and the replyM handoff on the next request
	// orders this store before any event the read loop can deliver.
	bus.Callback = p.dispatch

	if err := p.handshake(appName); err != nil {
		p.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	log.Info().Msg("connected to pulseaudio")
	return p, nil
}

func (p *Pulse) handshake(appName string) error {
	props := proto.PropList{"application.name": proto.PropListString(appName + "-monitor")}
	if err := p.bus.Request(&proto.SetClientName{Props: props}, &proto.SetClientNameReply{}); err != nil {
		return fmt.Errorf("set client name: %w", err)
	}

	if err := p.bus.Request(&proto.Subscribe{Mask: subscribeSink | subscribeSinkInput}, nil); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// dispatch runs on the protocol read loop; it only translates and queues
func (p *Pulse) dispatch(msg interface{}) {
	ev, ok := msg.(*proto.SubscribeEvent)
	if !ok {
		return
	}

	event, ok := translateEvent(uint32(ev.Event), ev.Index)
	if !ok {
		return
	}

	if !post(p.events, event) {
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.log.Warn().Int64("dropped", n).Msg("topology event queue full, dropping events")
		}
	}
}

// translateEvent maps a native subscription event to an Event
func translateEvent(raw, index uint32) (Event, bool) {
	ev := Event{Index: index}

	switch raw & eventFacilityMask {
	case eventSink:
		ev.Facility = FacilitySink
	case eventSinkInput:
		ev.Facility = FacilitySinkInput
	default:
		return Event{}, false
	}

	switch raw & eventTypeMask {
	case eventNew:
		ev.Kind = EventNew
	case eventChange:
		ev.Kind = EventChange
	case eventRemove:
		ev.Kind = EventRemove
	default:
		return Event{}, false
	}

	return ev, true
}

// Events delivers sink and sink-input notifications
func (p *Pulse) Events() <-chan Event {
	return p.events
}

// DefaultSink resolves the server's default sink
func (p *Pulse) DefaultSink() (SinkInfo, error) {
	info, err := p.sinkInfo(undefinedIndex, defaultSink)
	if err != nil {
		return SinkInfo{}, err
	}
	info.Default = true
	return info, nil
}

// SinkByIndex resolves a sink by its server index
func (p *Pulse) SinkByIndex(index uint32) (SinkInfo, error) {
	return p.sinkInfo(index, "")
}

func (p *Pulse) sinkInfo(index uint32, name string) (SinkInfo, error) {
	var reply proto.GetSinkInfoReply
	if err := p.bus.Request(&proto.GetSinkInfo{SinkIndex: index, SinkName: name}, &reply); err != nil {
		return SinkInfo{}, fmt.Errorf("%w: index=%d name=%q: %w", ErrNoSink, index, name, err)
	}

	return SinkInfo{
		Index:          reply.SinkIndex,
		Name:           reply.SinkName,
		MonitorSource:  reply.MonitorSourceName,
		HardwareVolume: reply.Flags&sinkFlagHWVolume != 0,
	}, nil
}

// AttachCapture records the named monitor source into sink
func (p *Pulse) AttachCapture(source string, spec CaptureSpec, sink FrameSink) (Capture, error) {
	src, err := p.client.SourceByID(source)
	if err != nil {
		return nil, fmt.Errorf("%w: look up source %q: %w", ErrCaptureAttach, source, err)
	}

	var layout pulse.RecordOption = pulse.RecordStereo
	if spec.Channels == 1 {
		layout = pulse.RecordMono
	}

	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		frame := make([]int16, len(buf))
		copy(frame, buf)
		sink.Submit(frame)
		return len(buf), nil
	})

	stream, err := p.client.NewRecord(writer,
		pulse.RecordSource(src),
		layout,
		pulse.RecordSampleRate(spec.SampleRate),
		pulse.RecordLatency(spec.Latency.Seconds()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: record %q: %w", ErrCaptureAttach, source, err)
	}

	stream.Start()
	p.log.Info().Str("source", source).Msg("monitor stream ready")

	return &pulseCapture{source: source, stream: stream}, nil
}

// Close releases both server connections
func (p *Pulse) Close() error {
	p.closeOnce.Do(func() {
		if p.conn != nil {
			_ = p.conn.Close()
		}
		if p.client != nil {
			p.client.Close()
		}
	})
	return nil
}

// pulseCapture is a record stream on a monitor source
type pulseCapture struct {
	source string
	stream *pulse.RecordStream
	closed atomic.Bool
}

func (c *pulseCapture) Source() string { return c.source }

func (c *pulseCapture) Running() bool {
	return !c.closed.Load() && c.stream.Running()
}

func (c *pulseCapture) Err() error {
	return c.stream.Error()
}

func (c *pulseCapture) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.stream.Stop()
	c.stream.Close()
	return nil
}
