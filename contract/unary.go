package contract

import (
	"context"

	"github.com/calyxrpc/calyx/codec"
	"github.com/calyxrpc/calyx/status"
)

type unaryInvoker[Req, Resp any] struct {
	reqCodec  codec.Codec[Req]
	respCodec codec.Codec[Resp]
	handler   UnaryHandler[Req, Resp]
}

func (u *unaryInvoker[Req, Resp]) Invoke(ctx context.Context, s Stream) error {
	payload, ok, err := s.Recv(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return status.ErrInvalidArgument("unary method: no request payload received")
	}

	req, err := u.reqCodec.Unmarshal(payload)
	if err != nil {
		return err
	}

	resp, err := u.handler(ctx, req)
	if err != nil {
		return err
	}

	out, err := u.respCodec.Marshal(resp)
	if err != nil {
		return err
	}
	return s.Send(ctx, out)
}

// AddUnary registers a single-request, single-response method (spec.md
// §4.4 "Unary"): the dispatch engine awaits the first payload, decodes
// it, invokes handler, then frames and sends the single response
// before its OK trailer.
func AddUnary[Req, Resp any](
	c *Contract,
	methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	handler UnaryHandler[Req, Resp],
) {
	c.register(&MethodRegistration{
		MethodName: methodName,
		Kind:       KindUnary,
		invoke: &unaryInvoker[Req, Resp]{
			reqCodec:  reqCodec,
			respCodec: respCodec,
			handler:   handler,
		},
	})
}
