// Package inmemory provides the reference Transport implementation
// (spec.md §4.2 "Reference in-memory transport"): two Transports
// cross-wired via queues, with flow-control window accounting. It's
// the transport every end-to-end scenario in spec.md §8 runs against.
package inmemory

import (
	"context"
	"sync"

	"github.com/calyxrpc/calyx/metadata"
	"github.com/calyxrpc/calyx/transport"
)

// Options configures a Pair's flow-control window.
type Options struct {
	InitialWindow int64
	MaxWindow     int64
}

// NewPair constructs two Transports wired to each other: events sent
// on one arrive on the other's Incoming/MessagesForStream feeds. The
// first transport allocates odd stream ids (the conventional
// initiating/caller side); the second allocates even ids (spec.md §3).
func NewPair(opts Options) (a, b transport.Transport) {
	window := opts
	chAB := make(chan transport.Message, 256) // a -> b
	chBA := make(chan transport.Message, 256) // b -> a

	ta := &inmemTransport{
		send:     chAB,
		recvRaw:  chBA,
		registry: transport.NewRegistry(transport.ParityOdd),
		demux:    transport.NewDemux(),
		window:   transport.NewWindow(window.InitialWindow, window.MaxWindow),
		closed:   make(chan struct{}),
	}
	tb := &inmemTransport{
		send:     chBA,
		recvRaw:  chAB,
		registry: transport.NewRegistry(transport.ParityEven),
		demux:    transport.NewDemux(),
		window:   transport.NewWindow(window.InitialWindow, window.MaxWindow),
		closed:   make(chan struct{}),
	}
	ta.peerClosed = tb.closed
	tb.peerClosed = ta.closed

	go ta.pump()
	go tb.pump()

	return ta, tb
}

type inmemTransport struct {
	mu       sync.Mutex // serializes the send path (spec.md §5)
	send     chan transport.Message
	recvRaw  chan transport.Message
	registry *transport.Registry
	demux    *transport.Demux
	window   *transport.Window

	closeOnce sync.Once
	closed    chan struct{}
	// peerClosed is the other Transport's closed channel, set by
	// NewPair. pump watches it so this side's delivery loop winds down
	// as soon as the peer closes, instead of relying on recvRaw (the
	// peer's send channel) ever being closed — nothing ever closes that
	// channel, since closing a channel with an in-flight sender on the
	// other end is exactly the "send on closed channel" panic this
	// type exists to avoid.
	peerClosed <-chan struct{}
}

func (t *inmemTransport) pump() {
	defer t.demux.Close()
	for {
		select {
		case m := <-t.recvRaw:
			if m.Payload != nil {
				t.window.Consume(int64(len(m.Payload)))
			}
			t.registry.Observe(m.StreamID)

			remoteDone := false
			if m.IsEndOfStream {
				remoteDone = t.registry.MarkRemoteEOS(m.StreamID)
			}

			t.demux.Publish(m)

			if remoteDone {
				t.releaseAfterDeliver(m.StreamID)
			}
		case <-t.closed:
			return
		case <-t.peerClosed:
			return
		}
	}
}

func (t *inmemTransport) releaseAfterDeliver(id transport.StreamID) {
	t.registry.Release(id)
	t.demux.ReleaseStream(id)
}

func (t *inmemTransport) AllocateStream(_ context.Context) (transport.StreamID, error) {
	if t.isClosed() {
		return 0, &transport.ClosedError{}
	}
	return t.registry.Allocate(), nil
}

func (t *inmemTransport) SendMetadata(ctx context.Context, id transport.StreamID, md *metadata.Metadata, endOfStream bool) error {
	return t.sendLocked(ctx, transport.Message{StreamID: id, Metadata: md, IsEndOfStream: endOfStream})
}

func (t *inmemTransport) SendMessage(ctx context.Context, id transport.StreamID, payload []byte, endOfStream bool) error {
	return t.sendLocked(ctx, transport.Message{StreamID: id, Payload: payload, IsEndOfStream: endOfStream})
}

func (t *inmemTransport) FinishSending(ctx context.Context, id transport.StreamID) error {
	return t.sendLocked(ctx, transport.Message{StreamID: id, Payload: []byte{}, IsEndOfStream: true})
}

func (t *inmemTransport) sendLocked(ctx context.Context, m transport.Message) error {
	if t.isClosed() {
		return &transport.ClosedError{}
	}
	if t.registry.IsLocalHalfClosed(m.StreamID) {
		return &transport.HalfClosedError{StreamID: m.StreamID}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if m.IsEndOfStream {
		if done := t.registry.MarkLocalEOS(m.StreamID); done {
			defer t.ReleaseStreamId(m.StreamID)
		}
	}

	select {
	case t.send <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.closed:
		return &transport.ClosedError{}
	}
}

func (t *inmemTransport) Incoming() <-chan transport.Message {
	return t.demux.All()
}

func (t *inmemTransport) MessagesForStream(id transport.StreamID) <-chan transport.Message {
	return t.demux.ForStream(id)
}

func (t *inmemTransport) ReleaseStreamId(id transport.StreamID) {
	t.registry.Release(id)
	t.demux.ReleaseStream(id)
}

func (t *inmemTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		// t.send is never closed: a concurrent sendLocked could be
		// parked in its select on that same channel, and a send that
		// races a close panics. Closing only t.closed instead lets
		// sendLocked's own select observe the close and fail fast with
		// ClosedError, and lets pump on both ends of the pair notice
		// via closed/peerClosed and stop (spec.md §4.2: close
		// "completes incomingMessages" and fails in-flight calls with
		// UNAVAILABLE).
		t.demux.Close()
	})
	return nil
}

func (t *inmemTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}
