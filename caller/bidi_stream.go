package caller

import (
	"context"
	"io"

	"github.com/calyxrpc/calyx/codec"
	"github.com/calyxrpc/calyx/frame"
	"github.com/calyxrpc/calyx/status"
	"github.com/calyxrpc/calyx/transport"
)

// BidiStreamCall runs independent send and receive pumps over one
// stream id (spec.md §4.3 "Bidirectional caller"). Send and Recv may
// be called concurrently from different goroutines; half-closing one
// direction with CloseSend does not affect the other. The call only
// terminates once both local CloseSend and the remote trailer have
// happened.
type BidiStreamCall[Req, Resp any] struct {
	call      *call
	reqCodec  codec.Codec[Req]
	respCodec codec.Codec[Resp]
	pending   []*Resp
}

// BidiStream opens the call and sends request-initial metadata.
func BidiStream[Req, Resp any](
	ctx context.Context,
	tr transport.Transport,
	serviceName, methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	opts Options,
) (*BidiStreamCall[Req, Resp], error) {
	c, err := begin(ctx, tr, serviceName, methodName, opts)
	if err != nil {
		return nil, err
	}
	return &BidiStreamCall[Req, Resp]{call: c, reqCodec: reqCodec, respCodec: respCodec}, nil
}

// Send frames and sends one request payload.
func (c *BidiStreamCall[Req, Resp]) Send(ctx context.Context, req *Req) error {
	if c.call.localEOS {
		return protocolErrorf("bidi call: Send called after CloseSend")
	}

	payload, err := c.reqCodec.Marshal(req)
	if err != nil {
		return err
	}
	body, err := frame.Encode(payload, false)
	if err != nil {
		return err
	}
	if err := c.call.sendFramed(ctx, body, false); err != nil {
		c.call.cancel()
		return err
	}
	return nil
}

// CloseSend half-closes the local side without touching Recv (spec.md
// §4.3: "half-close of either side does not terminate the other").
func (c *BidiStreamCall[Req, Resp]) CloseSend(ctx context.Context) error {
	return c.call.finishSending(ctx)
}

// Recv returns the next decoded response. It returns io.EOF once the
// remote trailer arrives with grpc-status OK, or a *status.Error for
// any other trailer.
func (c *BidiStreamCall[Req, Resp]) Recv() (*Resp, error) {
	if len(c.pending) > 0 {
		return c.popPending(), nil
	}

	for m := range c.call.incoming {
		if m.IsMetadata() {
			code, isTrailer := m.Metadata.GRPCStatus()
			if !isTrailer {
				continue
			}
			c.call.observeTrailer()
			if status.Code(code) != status.OK {
				return nil, status.New(status.Code(code), m.Metadata.GRPCMessage())
			}
			return nil, io.EOF
		}

		// See ServerStreamCall.Recv: a persistent parser plus this
		// pending queue keep a coalesced or fragmented payload event
		// from losing frames.
		msgs, err := c.call.feed(m.Payload)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}
		for _, fm := range msgs {
			resp, err := c.respCodec.Unmarshal(fm.Payload)
			if err != nil {
				return nil, err
			}
			c.pending = append(c.pending, resp)
		}
		return c.popPending(), nil
	}
	return nil, status.ErrUnavailable("transport closed before trailer")
}

func (c *BidiStreamCall[Req, Resp]) popPending() *Resp {
	resp := c.pending[0]
	c.pending = c.pending[1:]
	return resp
}
