package caller

import (
	"context"

	"github.com/calyxrpc/calyx/codec"
	"github.com/calyxrpc/calyx/frame"
	"github.com/calyxrpc/calyx/status"
	"github.com/calyxrpc/calyx/transport"
)

// Unary performs one send / one receive call (spec.md §4.3 "Unary
// caller"): encode req, send it as the sole data frame with
// endOfStream=true, then consume the stream until the trailer,
// decoding the single response payload it carries.
func Unary[Req, Resp any](
	ctx context.Context,
	tr transport.Transport,
	serviceName, methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	req *Req,
	opts Options,
) (*Resp, error) {
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

	var response []byte
	var gotResponse bool

	for {
		select {
		case <-ctx.Done():
			c.cancel()
			return nil, status.Newf(status.DeadlineExceeded, "%v", ctx.Err())
		case m, ok := <-c.incoming:
			if !ok {
				return nil, status.ErrUnavailable("transport closed before trailer")
			}
			if m.IsMetadata() {
				code, isTrailer := m.Metadata.GRPCStatus()
				if !isTrailer {
					continue // response-initial headers; ignored per spec.md §4.3
				}
				c.observeTrailer()
				if status.Code(code) != status.OK {
					return nil, status.New(status.Code(code), m.Metadata.GRPCMessage())
				}
				if !gotResponse {
					return nil, protocolErrorf("unary call: trailer OK with no response payload")
				}
				return respCodec.Unmarshal(response)
			}

			msgs, err := c.feed(m.Payload)
			if err != nil {
				c.cancel()
				return nil, err
			}
			for _, fm := range msgs {
				if gotResponse {
					c.cancel()
					return nil, protocolErrorf("unary call received more than one payload")
				}
				response = fm.Payload
				gotResponse = true
			}
		}
	}
}
