package contract

import (
	"context"

	"github.com/calyxrpc/calyx/codec"
)

type bidiInvoker[Req, Resp any] struct {
	reqCodec  codec.Codec[Req]
	respCodec codec.Codec[Resp]
	handler   BiDiHandler[Req, Resp]
}

func (bi *bidiInvoker[Req, Resp]) Invoke(ctx context.Context, s Stream) error {
	return bi.handler(ctx,
		&receiverAdapter[Req]{s: s, codec: bi.reqCodec},
		&senderAdapter[Resp]{s: s, codec: bi.respCodec},
	)
}

// AddBidirectional registers a method with independent lazy request
// and response sequences sharing one stream (spec.md §4.4 "BiDi"):
// handler runs its own input/output pumps against Receiver and Sender
// and returns once both sides are done.
func AddBidirectional[Req, Resp any](
	c *Contract,
	methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	handler BiDiHandler[Req, Resp],
) {
	c.register(&MethodRegistration{
		MethodName: methodName,
		Kind:       KindBiDi,
		invoke: &bidiInvoker[Req, Resp]{
			reqCodec:  reqCodec,
			respCodec: respCodec,
			handler:   handler,
		},
	})
}
