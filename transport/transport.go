// Package transport defines the abstract multiplexed byte transport
// contract (spec.md §4.2): the boundary that turns a single framed byte
// pipe into many ordered, independently terminable logical streams,
// each identified by a StreamID.
//
// Concrete transports (transport/inmemory, transport/wsconn) implement
// Transport; the core's call primitives and responder dispatch engine
// depend only on this interface, never on a concrete transport.
package transport

import (
	"context"

	"github.com/calyxrpc/calyx/metadata"
)

// StreamID identifies one logical call on one physical transport.
type StreamID uint64

// Message is a tagged event flowing on the transport's receive side
// (spec.md §3 "TransportMessage"). Exactly one of Metadata or Payload
// is set for a given event; both are nil/empty for a bare end-of-stream
// marker (an empty data event with IsEndOfStream=true, as sent by
// FinishSending).
type Message struct {
	StreamID      StreamID
	Metadata      *metadata.Metadata
	Payload       []byte
	IsEndOfStream bool
	// MethodPath is a slot for the :path of the stream's initial
	// metadata (spec.md §3). The transports in this module do not fill
	// it in; it is always empty, and the responder reads :path from the
	// metadata itself.
	MethodPath string
}

// IsMetadata reports whether this event carries metadata rather than a
// data payload.
func (m Message) IsMetadata() bool { return m.Metadata != nil }

// Transport is the multiplexing boundary every call primitive and the
// responder dispatch engine are built against (spec.md §4.2).
//
// Implementations must preserve per-stream ordering (metadata-0,
// data-1, data-2, …, trailer) but make no cross-stream ordering
// guarantee. The send path is a serial shared resource: a correct
// implementation serializes concurrent Send* calls from different
// goroutines with a mutex or single-writer queue (spec.md §5).
type Transport interface {
	// AllocateStream returns a currently-unused id from this side's
	// partition (spec.md §4.2).
	AllocateStream(ctx context.Context) (StreamID, error)

	// SendMetadata delivers a metadata event. If endOfStream, no
	// further send is legal on this streamId from this side.
	SendMetadata(ctx context.Context, id StreamID, md *metadata.Metadata, endOfStream bool) error

	// SendMessage delivers a (pre-framed) payload event. Same
	// half-close rule as SendMetadata.
	SendMessage(ctx context.Context, id StreamID, payload []byte, endOfStream bool) error

	// FinishSending sends an empty data event with endOfStream=true.
	// Calling it again after the local side is already half-closed
	// returns HalfClosedError, same as any other Send* call.
	FinishSending(ctx context.Context, id StreamID) error

	// Incoming is the lazy sequence of Message covering ALL streams;
	// the consumer demultiplexes by StreamID. The channel is closed
	// when the transport is closed.
	Incoming() <-chan Message

	// MessagesForStream is a filtered view of Incoming for one stream
	// id (spec.md §4.2, "optional convenience"). It carries only events
	// published after the first call for id; earlier events reach
	// Incoming alone. The channel is closed once id is released — both
	// sides have sent end of stream (a trailer counts for its sender),
	// or ReleaseStreamId was called — or the transport closes.
	MessagesForStream(id StreamID) <-chan Message

	// ReleaseStreamId marks id free for reuse. Called automatically by
	// a correct implementation on observing EOS on both sides; exposed
	// for callers that abandon a stream early (e.g. a cancelled
	// server-stream caller, spec.md §4.3).
	ReleaseStreamId(id StreamID)

	// Close closes both directions, completes Incoming, and fails all
	// in-flight calls with status.Unavailable.
	Close() error
}
