// Package caller implements the four client-side call state machines
// (spec.md §4.3): unary (one send, one receive), server-stream (one
// send, lazy receives), client-stream (lazy sends, one receive), and
// bidirectional (concurrent lazy sends and receives on one stream).
//
// All four share a prologue — allocate a stream id, subscribe to the
// transport's per-stream feed, send request-initial metadata — and a
// common cancellation rule: any local error flushes a
// local half-close and releases the stream id only once the remote
// trailer (or a transport failure) has been observed, to avoid id
// reuse collisions.
package caller

import (
	"context"
	"fmt"

	"github.com/calyxrpc/calyx/frame"
	"github.com/calyxrpc/calyx/metadata"
	"github.com/calyxrpc/calyx/transport"
)

// ProtocolError reports an invariant violation (spec.md §7): more than
// one payload on a unary call, an OK trailer with no response payload
// on a unary or client-stream call, or a Send after the local side was
// closed. Response-initial headers are not required before the
// trailer, so a trailer arriving without them is not reported here.
// Wire-level violations are peer bugs, not
// call-level failures; application code should log and treat the call
// as INTERNAL.
type ProtocolError struct {
	reason string
}

func (e *ProtocolError) Error() string { return "caller: protocol error: " + e.reason }

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{reason: fmt.Sprintf(format, args...)}
}

// Options configures the request-initial metadata a call's prologue
// sends. The zero value omits :scheme and :authority.
type Options struct {
	Scheme    string
	Authority string
}

// call is the prologue and shared teardown state every call primitive
// embeds (spec.md §4.3 "All four primitives share a prologue").
type call struct {
	tr        transport.Transport
	id        transport.StreamID
	incoming  <-chan transport.Message
	parser    *frame.Parser
	localEOS  bool
	remoteEOS bool
}

func begin(ctx context.Context, tr transport.Transport, serviceName, methodName string, opts Options) (*call, error) {
	id, err := tr.AllocateStream(ctx)
	if err != nil {
		return nil, err
	}
	// Subscribe before sending: a per-stream feed only carries events
	// published after it exists, and the peer may answer (an
	// UNIMPLEMENTED trailer, say) as soon as it sees the request headers.
	incoming := tr.MessagesForStream(id)
	md := metadata.RequestInitial(serviceName, methodName, opts.Scheme, opts.Authority)
	if err := tr.SendMetadata(ctx, id, md, false); err != nil {
		return nil, err
	}
	return &call{tr: tr, id: id, incoming: incoming, parser: frame.NewParser()}, nil
}

// feed runs a received data payload through the call's persistent
// parser, so a frame split across two transport events (or several
// frames coalesced into one) still decodes correctly — a fresh parser
// per message would silently drop bytes carried over from the last
// one (spec.md §8 testable property 2, "parser associativity").
func (c *call) feed(payload []byte) ([]frame.Message, error) {
	return c.parser.Feed(payload)
}

// sendFramed sends one already-framed payload and records local EOS on
// success, so finishSending and cancel know not to send it twice.
func (c *call) sendFramed(ctx context.Context, body []byte, endOfStream bool) error {
	if err := c.tr.SendMessage(ctx, c.id, body, endOfStream); err != nil {
		return err
	}
	if endOfStream {
		c.localEOS = true
	}
	return nil
}

// finishSending half-closes the local side, tolerating a call made
// after an earlier half-close.
func (c *call) finishSending(ctx context.Context) error {
	if c.localEOS {
		return nil
	}
	c.localEOS = true
	return c.tr.FinishSending(ctx, c.id)
}

// observeTrailer records that the remote trailer has been seen. It
// does not release the stream id itself: the transport already does
// that the moment both MarkLocalEOS and MarkRemoteEOS have fired,
// whichever order they happen in (transport/stream.go). This just lets
// cancel know a background drain is unnecessary.
func (c *call) observeTrailer() {
	c.remoteEOS = true
}

// cancel implements the common cancellation rule (spec.md §4.3): flush
// the local half-close, then release the stream id once the remote
// trailer has been observed (or the transport fails) rather than
// assuming it never will be. If the remote side genuinely never
// answers, this leaks a goroutine parked on a channel that the
// transport will eventually close anyway (Close() completes Incoming),
// so it always terminates.
func (c *call) cancel() {
	_ = c.finishSending(context.Background())
	if c.remoteEOS {
		return
	}
	go func() {
		for m := range c.incoming {
			if m.IsEndOfStream {
				break
			}
		}
		c.tr.ReleaseStreamId(c.id)
	}()
}
