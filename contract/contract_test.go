package contract_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/calyxrpc/calyx/codec"
	"github.com/calyxrpc/calyx/contract"
)

// fakeStream is a minimal contract.Stream backed by an in-memory
// payload queue, standing in for the responder dispatch engine so these
// tests exercise the contract package on its own.
type fakeStream struct {
	in  [][]byte
	idx int
	out [][]byte
}

func (f *fakeStream) Recv(context.Context) ([]byte, bool, error) {
	if f.idx >= len(f.in) {
		return nil, false, nil
	}
	p := f.in[f.idx]
	f.idx++
	return p, true, nil
}

func (f *fakeStream) Send(_ context.Context, payload []byte) error {
	f.out = append(f.out, payload)
	return nil
}

func encodeString(t *testing.T, s string) []byte {
	t.Helper()
	payload, err := codec.JSONCodec[string]{}.Marshal(&s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}

func decodeString(t *testing.T, payload []byte) string {
	t.Helper()
	v, err := codec.JSONCodec[string]{}.Unmarshal(payload)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return *v
}

func TestAddUnaryInvoke(t *testing.T) {
	c := contract.NewContract("Echo", func(c *contract.Contract) {
		contract.AddUnary(c, "Say", codec.JSONCodec[string]{}, codec.JSONCodec[string]{},
			func(_ context.Context, req *string) (*string, error) {
				out := "hi " + *req
				return &out, nil
			})
	})

	methods, err := c.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(methods) != 1 || methods[0].Key() != "Echo.Say" {
		t.Fatalf("methods = %+v, want one Echo.Say", methods)
	}

	s := &fakeStream{in: [][]byte{encodeString(t, "world")}}
	if err := methods[0].Invoke(context.Background(), s); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(s.out) != 1 || decodeString(t, s.out[0]) != "hi world" {
		t.Fatalf("out = %v, want [hi world]", s.out)
	}
}

func TestAddServerStreamInvoke(t *testing.T) {
	c := contract.NewContract("Count", func(c *contract.Contract) {
		contract.AddServerStream(c, "Items", codec.JSONCodec[string]{}, codec.JSONCodec[string]{},
			func(ctx context.Context, req *string, send contract.Sender[string]) error {
				for i := 0; i < 3; i++ {
					if err := send.Send(ctx, req); err != nil {
						return err
					}
				}
				return nil
			})
	})

	methods, err := c.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	s := &fakeStream{in: [][]byte{encodeString(t, "go")}}
	if err := methods[0].Invoke(context.Background(), s); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(s.out) != 3 {
		t.Fatalf("got %d responses, want 3", len(s.out))
	}
}

func TestAddClientStreamInvoke(t *testing.T) {
	c := contract.NewContract("Agg", func(c *contract.Contract) {
		contract.AddClientStream(c, "Concat", codec.JSONCodec[string]{}, codec.JSONCodec[string]{},
			func(ctx context.Context, recv contract.Receiver[string]) (*string, error) {
				out := ""
				for {
					v, err := recv.Recv(ctx)
					if err == io.EOF {
						return &out, nil
					}
					if err != nil {
						return nil, err
					}
					out += *v
				}
			})
	})

	methods, err := c.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	s := &fakeStream{in: [][]byte{encodeString(t, "a"), encodeString(t, "b"), encodeString(t, "c")}}
	if err := methods[0].Invoke(context.Background(), s); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(s.out) != 1 || decodeString(t, s.out[0]) != "abc" {
		t.Fatalf("out = %v, want [abc]", s.out)
	}
}

func TestAddBidirectionalInvoke(t *testing.T) {
	c := contract.NewContract("Chat", func(c *contract.Contract) {
		contract.AddBidirectional(c, "Echo", codec.JSONCodec[string]{}, codec.JSONCodec[string]{},
			func(ctx context.Context, recv contract.Receiver[string], send contract.Sender[string]) error {
				for {
					v, err := recv.Recv(ctx)
					if err == io.EOF {
						return nil
					}
					if err != nil {
						return err
					}
					ack := "ack: " + *v
					if err := send.Send(ctx, &ack); err != nil {
						return err
					}
				}
			})
	})

	methods, err := c.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	s := &fakeStream{in: [][]byte{encodeString(t, "a"), encodeString(t, "b")}}
	if err := methods[0].Invoke(context.Background(), s); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(s.out) != 2 || decodeString(t, s.out[0]) != "ack: a" || decodeString(t, s.out[1]) != "ack: b" {
		t.Fatalf("out = %v", s.out)
	}
}

func TestFlattenOrderSubcontractsFirst(t *testing.T) {
	child := contract.NewContract("Child", func(c *contract.Contract) {
		contract.AddUnary(c, "A", codec.RawCodec{}, codec.RawCodec{},
			func(_ context.Context, req *[]byte) (*[]byte, error) { return req, nil })
	})
	parent := contract.NewContract("Parent", func(c *contract.Contract) {
		c.AddSubcontract(child)
		contract.AddUnary(c, "B", codec.RawCodec{}, codec.RawCodec{},
			func(_ context.Context, req *[]byte) (*[]byte, error) { return req, nil })
	})

	methods, err := parent.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(methods) != 2 || methods[0].Key() != "Child.A" || methods[1].Key() != "Parent.B" {
		t.Fatalf("methods = %+v, want [Child.A Parent.B]", methods)
	}
}

func TestInvalidServiceNameRejected(t *testing.T) {
	c := contract.NewContract("bad name", func(*contract.Contract) {})
	_, err := c.Flatten()
	var re *contract.RegistrationError
	if !errors.As(err, &re) {
		t.Fatalf("Flatten err = %v, want *contract.RegistrationError", err)
	}
}

func TestInvalidMethodNameRejected(t *testing.T) {
	c := contract.NewContract("Svc", func(c *contract.Contract) {
		contract.AddUnary(c, "bad.method", codec.RawCodec{}, codec.RawCodec{},
			func(_ context.Context, req *[]byte) (*[]byte, error) { return req, nil })
	})
	_, err := c.Flatten()
	var re *contract.RegistrationError
	if !errors.As(err, &re) {
		t.Fatalf("Flatten err = %v, want *contract.RegistrationError", err)
	}
}
