// Package endpoint provides the two facades spec.md §2 calls out as a
// component in its own right: CallerEndpoint binds a transport and a
// default caller.Options to the four call-kind entry points, and
// ResponderEndpoint binds a transport to a responder.Dispatcher and its
// registration API. Neither adds behavior beyond that binding — the
// state machines live in caller/ and responder/ — the same role
// `i2y-hyperway/rpc/service.go`'s `Service` plays as the one object an
// application holds onto, binding a gateway to registered methods.
package endpoint

import (
	"context"
	"log"

	"github.com/calyxrpc/calyx/caller"
	"github.com/calyxrpc/calyx/codec"
	"github.com/calyxrpc/calyx/contract"
	"github.com/calyxrpc/calyx/responder"
	"github.com/calyxrpc/calyx/transport"
)

// CallerEndpoint is the caller-side facade bound to one transport.
type CallerEndpoint struct {
	tr   transport.Transport
	opts caller.Options
}

// NewCallerEndpoint binds tr and the request-initial metadata opts
// every call through this endpoint will send.
func NewCallerEndpoint(tr transport.Transport, opts caller.Options) *CallerEndpoint {
	return &CallerEndpoint{tr: tr, opts: opts}
}

// Transport returns the endpoint's bound transport.
func (e *CallerEndpoint) Transport() transport.Transport { return e.tr }

// CallUnary performs a unary call through e (spec.md §4.3 "Unary
// caller"). A method on CallerEndpoint can't itself be generic — Go
// forbids a method introducing type parameters beyond its receiver's —
// so the four call-kind entry points are free functions taking the
// endpoint as their first argument, the same shape contract.AddUnary
// and friends use for registration.
func CallUnary[Req, Resp any](
	ctx context.Context,
	e *CallerEndpoint,
	serviceName, methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	req *Req,
) (*Resp, error) {
	return caller.Unary[Req, Resp](ctx, e.tr, serviceName, methodName, reqCodec, respCodec, req, e.opts)
}

// CallServerStream performs a server-stream call through e.
func CallServerStream[Req, Resp any](
	ctx context.Context,
	e *CallerEndpoint,
	serviceName, methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	req *Req,
) (*caller.ServerStreamCall[Resp], error) {
	return caller.ServerStream[Req, Resp](ctx, e.tr, serviceName, methodName, reqCodec, respCodec, req, e.opts)
}

// CallClientStream performs a client-stream call through e.
func CallClientStream[Req, Resp any](
	ctx context.Context,
	e *CallerEndpoint,
	serviceName, methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
) (*caller.ClientStreamCall[Req, Resp], error) {
	return caller.ClientStream[Req, Resp](ctx, e.tr, serviceName, methodName, reqCodec, respCodec, e.opts)
}

// CallBidi performs a bidirectional call through e.
func CallBidi[Req, Resp any](
	ctx context.Context,
	e *CallerEndpoint,
	serviceName, methodName string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
) (*caller.BidiStreamCall[Req, Resp], error) {
	return caller.BidiStream[Req, Resp](ctx, e.tr, serviceName, methodName, reqCodec, respCodec, e.opts)
}

// ResponderEndpoint is the responder-side facade bound to one
// transport, exposing only the registration API (spec.md §4.4/§4.5):
// the dispatch loop itself runs inside the bound responder.Dispatcher.
type ResponderEndpoint struct {
	d *responder.Dispatcher
}

// NewResponderEndpoint binds tr and an optional logger (nil-safe, see
// responder.New) to a fresh, unstarted dispatch engine.
func NewResponderEndpoint(tr transport.Transport, logger *log.Logger) *ResponderEndpoint {
	return &ResponderEndpoint{d: responder.New(tr, logger)}
}

// Register registers every top-level contract and starts the dispatch
// loop (spec.md §4.4 "Registering the first contract auto-starts the
// dispatch loop"). See responder.Dispatcher.Register for the
// immutability and duplicate-key rules.
func (e *ResponderEndpoint) Register(contracts ...*contract.Contract) error {
	return e.d.Register(contracts...)
}
