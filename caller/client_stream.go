package caller

import (
	"context"

	"github.com/calyxrpc/calyx/codec"
	"github.com/calyxrpc/calyx/frame"
	"github.com/calyxrpc/calyx/status"
	"github.com/calyxrpc/calyx/transport"
)

// ClientStreamCall is the lazy sequence of sends feeding a single
// awaited response (spec.md §4.3 "Client-stream caller").
type ClientStreamCall[Req, Resp any] struct {
	call      *call
	reqCodec  codec.Codec[Req]
	respCodec codec.Codec[Resp]
	recvCalled bool
}

// ClientStream opens the call and sends request-initial metadata; use
// Send to push payloads and CloseAndRecv to finish and await the
// response.
func ClientStream[Req, Resp any](
	ctx context.Context,
	tr transport.Transport,
	serviceName, methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	opts Options,
) (*ClientStreamCall[Req, Resp], error) {
	c, err := begin(ctx, tr, serviceName, methodName, opts)
	if err != nil {
		return nil, err
	}
	return &ClientStreamCall[Req, Resp]{call: c, reqCodec: reqCodec, respCodec: respCodec}, nil
}

// Send frames and sends one request payload. A failed send cancels the
// call (spec.md §4.3: "Send failures surface immediately and cancel
// the call"); do not call Send or CloseAndRecv again afterward.
func (c *ClientStreamCall[Req, Resp]) Send(ctx context.Context, req *Req) error {
	if c.call.localEOS {
		return protocolErrorf("client-stream call: Send called after CloseAndRecv")
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

// CloseAndRecv emits an empty data frame with endOfStream=true (spec.md
// §4.3 step 3), then awaits the single response payload the handler
// returns before its trailer.
func (c *ClientStreamCall[Req, Resp]) CloseAndRecv(ctx context.Context) (*Resp, error) {
	if c.recvCalled {
		return nil, protocolErrorf("client-stream call: CloseAndRecv called twice")
	}
	c.recvCalled = true

	if err := c.call.finishSending(ctx); err != nil {
		return nil, err
	}

	var response []byte
	var gotResponse bool

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
			if !gotResponse {
				return nil, protocolErrorf("client-stream call: trailer OK with no response payload")
			}
			return c.respCodec.Unmarshal(response)
		}

		msgs, err := c.call.feed(m.Payload)
		if err != nil {
			return nil, err
		}
		for _, fm := range msgs {
			response = fm.Payload
			gotResponse = true
		}
	}

	return nil, status.ErrUnavailable("transport closed before trailer")
}
