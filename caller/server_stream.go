package caller

import (
	"context"
	"io"

	"github.com/calyxrpc/calyx/codec"
	"github.com/calyxrpc/calyx/frame"
	"github.com/calyxrpc/calyx/status"
	"github.com/calyxrpc/calyx/transport"
)

// ServerStreamCall is the lazy, single-subscriber sequence of decoded
// responses a server-stream call produces (spec.md §4.3 "Server-stream
// caller"). Call Recv repeatedly until it returns io.EOF or a non-nil
// *status.Error.
type ServerStreamCall[Resp any] struct {
	call      *call
	respCodec codec.Codec[Resp]
	pending   []*Resp
	done      bool
	err       error
}

// ServerStream sends req as the sole request payload, then returns a
// handle for consuming the lazy response sequence.
func ServerStream[Req, Resp any](
	ctx context.Context,
	tr transport.Transport,
	serviceName, methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	req *Req,
	opts Options,
) (*ServerStreamCall[Resp], error) {
	c, err := begin(ctx, tr, serviceName, methodName, opts)
	if err != nil {
		return nil, err
	}

	payload, err := reqCodec.Marshal(req)
	if err != nil {
		return nil, err
	}
	body, err := frame.Encode(payload, false)
	if err != nil {
		return nil, err
	}
	if err := c.sendFramed(ctx, body, true); err != nil {
		return nil, err
	}

	return &ServerStreamCall[Resp]{call: c, respCodec: respCodec}, nil
}

// Recv returns the next decoded response. It returns io.EOF once the
// trailer arrives with grpc-status OK, or a *status.Error for any
// other trailer.
func (s *ServerStreamCall[Resp]) Recv() (*Resp, error) {
	if s.done {
		return nil, s.err
	}
	if len(s.pending) > 0 {
		return s.popPending(), nil
	}

	for m := range s.call.incoming {
		if m.IsMetadata() {
			code, isTrailer := m.Metadata.GRPCStatus()
			if !isTrailer {
				continue
			}
			s.call.observeTrailer()
			s.done = true
			if status.Code(code) != status.OK {
				s.err = status.New(status.Code(code), m.Metadata.GRPCMessage())
			} else {
				s.err = io.EOF
			}
			return nil, s.err
		}

		// A transport event can coalesce more than one frame (or carry
		// only part of one); the call's persistent parser and this
		// pending queue make sure every decoded payload is eventually
		// returned, in order, across however many Recv calls it takes.
		msgs, err := s.call.feed(m.Payload)
		if err != nil {
			s.done, s.err = true, err
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}
		for _, fm := range msgs {
			resp, err := s.respCodec.Unmarshal(fm.Payload)
			if err != nil {
				s.done, s.err = true, err
				return nil, err
			}
			s.pending = append(s.pending, resp)
		}
		return s.popPending(), nil
	}

	s.done = true
	s.err = status.ErrUnavailable("transport closed before trailer")
	return nil, s.err
}

func (s *ServerStreamCall[Resp]) popPending() *Resp {
	resp := s.pending[0]
	s.pending = s.pending[1:]
	return resp
}

// Cancel disposes of the sequence before its trailer arrived (spec.md
// §4.3). A server-stream caller's only request was already sent with
// endOfStream=true as part of the initial call, so the local side is
// already half-closed by the time Cancel can run: there is nothing
// left to flush on the wire. The equivalent abort signal this
// primitive can actually give, per the local Transport contract, is to
// stop reading and release the stream id immediately rather than
// waiting on a peer that may never notice the caller walked away.
func (s *ServerStreamCall[Resp]) Cancel() {
	if s.done {
		return
	}
	s.done = true
	s.err = status.ErrCanceled("call cancelled by caller")
	s.call.tr.ReleaseStreamId(s.call.id)
}
