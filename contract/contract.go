// Package contract implements the declarative service builder (spec.md
// §4.5): a Contract accumulates method registrations via four typed
// helpers — AddUnary, AddServerStream, AddClientStream,
// AddBidirectional — plus nested subcontracts.
//
// Go disallows generic methods (a method cannot introduce type
// parameters beyond its receiver's), so the four helpers are free
// functions that type-erase a caller-supplied handler and codec pair
// into a MethodRegistration, the same shape connect-go's
// NewUnaryHandler[Req, Res any](...) factory functions use to erase a
// typed handler into its untyped Handler.
package contract

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Kind identifies which of the four call patterns a MethodRegistration
// implements (spec.md §4.4 dispatch table).
type Kind int

const (
	KindUnary Kind = iota
	KindServerStream
	KindClientStream
	KindBiDi
)

func (k Kind) String() string {
	switch k {
	case KindUnary:
		return "unary"
	case KindServerStream:
		return "server-stream"
	case KindClientStream:
		return "client-stream"
	case KindBiDi:
		return "bidi"
	default:
		return "unknown"
	}
}

// MethodRegistration is the type-erased record of one registered
// method: enough for the responder dispatch engine to route a call and
// invoke its handler without knowing Req/Resp.
type MethodRegistration struct {
	ServiceName string
	MethodName  string
	Kind        Kind
	invoke      invoker
}

// Key returns the "service.method" lookup key spec.md §4.4 uses for
// the responder's method registry.
func (m *MethodRegistration) Key() string {
	return m.ServiceName + "." + m.MethodName
}

// Invoke runs the registered handler against s, type-erased.
func (m *MethodRegistration) Invoke(ctx context.Context, s Stream) error {
	return m.invoke.Invoke(ctx, s)
}

var nameValidator = validator.New()

// nameField is validated with a single struct tag rather than
// validator.Var so the same *validator.Validate instance services both
// service and method names (hyperway's ServiceOptions.EnableValidation
// uses the struct-tag form throughout rpc/service.go).
type nameField struct {
	Name string `validate:"required,alphanum"`
}

func validateName(kind, name string) error {
	if err := nameValidator.Struct(nameField{Name: name}); err != nil {
		return registrationErrorf("invalid %s name %q: %v", kind, name, err)
	}
	return nil
}

// Contract is a builder for one service's method registrations. Build
// one with NewContract; setup runs exactly once, the first time the
// contract is flattened, and is expected to call AddUnary and friends
// against the *Contract it receives.
type Contract struct {
	serviceName string
	setup       func(*Contract)

	methods  []*MethodRegistration
	children []*Contract

	once     sync.Once
	buildErr error
}

// NewContract names the service and defers method registration to
// setup, called exactly once (spec.md §4.5 "setup() hook").
func NewContract(serviceName string, setup func(*Contract)) *Contract {
	return &Contract{serviceName: serviceName, setup: setup}
}

// ServiceName returns the contract's service name.
func (c *Contract) ServiceName() string { return c.serviceName }

// AddSubcontract attaches child as an independent serviceName root
// visible to the responder alongside c's own methods (spec.md §4.5).
func (c *Contract) AddSubcontract(child *Contract) {
	c.children = append(c.children, child)
}

func (c *Contract) register(reg *MethodRegistration) {
	if c.buildErr != nil {
		return
	}
	if err := validateName("method", reg.MethodName); err != nil {
		c.buildErr = err
		return
	}
	reg.ServiceName = c.serviceName
	c.methods = append(c.methods, reg)
}

// build runs setup exactly once, validating the service name first.
func (c *Contract) build() error {
	c.once.Do(func() {
		if err := validateName("service", c.serviceName); err != nil {
			c.buildErr = err
			return
		}
		if c.setup != nil {
			c.setup(c)
		}
	})
	return c.buildErr
}

// Flatten runs setup (once) and returns this contract's methods in
// registration order: every subcontract's methods, depth-first and in
// attachment order, followed by c's own. It performs no duplicate-key
// detection; spec.md §4.4 assigns that to the responder's registry,
// which sees the flattened list from every top-level contract it is
// given.
func (c *Contract) Flatten() ([]*MethodRegistration, error) {
	if err := c.build(); err != nil {
		return nil, err
	}

	var out []*MethodRegistration
	for _, child := range c.children {
		childMethods, err := child.Flatten()
		if err != nil {
			return nil, err
		}
		out = append(out, childMethods...)
	}
	return append(out, c.methods...), nil
}
