package contract

import (
	"context"
	"io"

	"github.com/calyxrpc/calyx/codec"
)

// Stream is the narrow, type-erased I/O surface the responder dispatch
// engine drives a registered method through. It operates on bytes
// already split out of a frame; encoding and decoding happen in the
// Sender/Receiver adapters below, using the codecs bound at
// registration time (spec.md §4.4 "Codec boundary").
type Stream interface {
	// Recv returns the next request payload. ok is false once the
	// input side has reached end of stream; a non-nil err means the
	// transport failed outright, not that the stream ended cleanly.
	Recv(ctx context.Context) (payload []byte, ok bool, err error)
	// Send writes one already-encoded response payload.
	Send(ctx context.Context, payload []byte) error
}

// Sender lets a ServerStream or BiDi handler push typed responses
// without seeing the underlying Stream or codec.
type Sender[Resp any] interface {
	Send(ctx context.Context, resp *Resp) error
}

// Receiver lets a ClientStream or BiDi handler pull typed requests. It
// returns io.EOF, mirroring caller.ServerStreamCall.Recv and
// caller.BidiStreamCall.Recv on the other side of the wire, once the
// input side reaches end of stream.
type Receiver[Req any] interface {
	Recv(ctx context.Context) (*Req, error)
}

type senderAdapter[Resp any] struct {
	s     Stream
	codec codec.Codec[Resp]
}

func (a *senderAdapter[Resp]) Send(ctx context.Context, resp *Resp) error {
	payload, err := a.codec.Marshal(resp)
	if err != nil {
		return err
	}
	return a.s.Send(ctx, payload)
}

type receiverAdapter[Req any] struct {
	s     Stream
	codec codec.Codec[Req]
}

func (a *receiverAdapter[Req]) Recv(ctx context.Context) (*Req, error) {
	payload, ok, err := a.s.Recv(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}
	return a.codec.Unmarshal(payload)
}

// invoker is the type-erased handler body a MethodRegistration holds.
// Each call-kind file in this package implements one.
type invoker interface {
	Invoke(ctx context.Context, s Stream) error
}

// Handler function shapes, one per call kind (spec.md §4.4 dispatch
// table's "Input to handler" / "Output from handler" columns).
type (
	UnaryHandler[Req, Resp any]        func(context.Context, *Req) (*Resp, error)
	ServerStreamHandler[Req, Resp any] func(context.Context, *Req, Sender[Resp]) error
	ClientStreamHandler[Req, Resp any] func(context.Context, Receiver[Req]) (*Resp, error)
	BiDiHandler[Req, Resp any]         func(context.Context, Receiver[Req], Sender[Resp]) error
)
