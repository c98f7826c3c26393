package contract

import (
	"context"

	"github.com/calyxrpc/calyx/codec"
	"github.com/calyxrpc/calyx/status"
)

type serverStreamInvoker[Req, Resp any] struct {
	reqCodec  codec.Codec[Req]
	respCodec codec.Codec[Resp]
	handler   ServerStreamHandler[Req, Resp]
}

func (si *serverStreamInvoker[Req, Resp]) Invoke(ctx context.Context, s Stream) error {
	payload, ok, err := s.Recv(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return status.ErrInvalidArgument("server-stream method: no request payload received")
	}

	req, err := si.reqCodec.Unmarshal(payload)
	if err != nil {
		return err
	}

	return si.handler(ctx, req, &senderAdapter[Resp]{s: s, codec: si.respCodec})
}

// AddServerStream registers a single-request, lazy-response-sequence
// method (spec.md §4.4 "ServerStream"): the dispatch engine decodes the
// sole request, then lets handler push any number of responses through
// Sender before the dispatch engine sends the OK trailer.
func AddServerStream[Req, Resp any](
	c *Contract,
	methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	handler ServerStreamHandler[Req, Resp],
) {
	c.register(&MethodRegistration{
		MethodName: methodName,
		Kind:       KindServerStream,
		invoke: &serverStreamInvoker[Req, Resp]{
			reqCodec:  reqCodec,
			respCodec: respCodec,
			handler:   handler,
		},
	})
}
