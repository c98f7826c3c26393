package contract

import (
	"context"

	"github.com/calyxrpc/calyx/codec"
)

type clientStreamInvoker[Req, Resp any] struct {
	reqCodec  codec.Codec[Req]
	respCodec codec.Codec[Resp]
	handler   ClientStreamHandler[Req, Resp]
}

func (ci *clientStreamInvoker[Req, Resp]) Invoke(ctx context.Context, s Stream) error {
	resp, err := ci.handler(ctx, &receiverAdapter[Req]{s: s, codec: ci.reqCodec})
	if err != nil {
		return err
	}

	out, err := ci.respCodec.Marshal(resp)
	if err != nil {
		return err
	}
	return s.Send(ctx, out)
}

// AddClientStream registers a lazy-request-sequence, single-response
// method (spec.md §4.4 "ClientStream"): handler drains Receiver until
// io.EOF and returns the one response the dispatch engine frames,
// sends, and follows with an OK trailer.
func AddClientStream[Req, Resp any](
	c *Contract,
	methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	handler ClientStreamHandler[Req, Resp],
) {
	c.register(&MethodRegistration{
		MethodName: methodName,
		Kind:       KindClientStream,
		invoke: &clientStreamInvoker[Req, Resp]{
			reqCodec:  reqCodec,
			respCodec: respCodec,
			handler:   handler,
		},
	})
}
