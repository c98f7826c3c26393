package responder

import (
	"context"
	"sync"

	"github.com/calyxrpc/calyx/contract"
	"github.com/calyxrpc/calyx/frame"
	"github.com/calyxrpc/calyx/transport"
)

// streamInputBuffer bounds how far the dispatch loop can run ahead of a
// slow handler before handleData's send on streamState.in suspends,
// which is the backpressure mechanism spec.md §5 describes generically
// ("the call primitive's send suspends until capacity is available").
const streamInputBuffer = 16

// streamState is the dispatch loop's own per-stream bookkeeping (spec.md
// §4.4 "streamContext: map<streamId, {methodKey, firstPayloadBuffer,
// activeHandlerHandle}>"): the resolved method, the stream's own frame
// parser (never shared across streams, per spec.md §5), and the channel
// feeding decoded payloads to the running handler goroutine.
type streamState struct {
	reg    *contract.MethodRegistration
	parser *frame.Parser
	in     chan []byte

	mu      sync.Mutex
	recvErr error

	closeOnce sync.Once
}

func newStreamState(reg *contract.MethodRegistration) *streamState {
	return &streamState{
		reg:    reg,
		parser: frame.NewParser(),
		in:     make(chan []byte, streamInputBuffer),
	}
}

// fail records a terminal error for the handler to observe on its next
// Recv and unblocks it immediately, instead of waiting for more input
// that will never come.
func (s *streamState) fail(err error) {
	s.mu.Lock()
	s.recvErr = err
	s.mu.Unlock()
	s.closeIn()
}

func (s *streamState) closeIn() {
	s.closeOnce.Do(func() { close(s.in) })
}

// dispatchStream adapts one stream's wire traffic to contract.Stream,
// the narrow byte-level interface a MethodRegistration's handler runs
// against.
type dispatchStream struct {
	tr transport.Transport
	id transport.StreamID
	st *streamState
}

func (d *dispatchStream) Recv(ctx context.Context) ([]byte, bool, error) {
	select {
	case payload, ok := <-d.st.in:
		if !ok {
			d.st.mu.Lock()
			err := d.st.recvErr
			d.st.mu.Unlock()
			return nil, false, err
		}
		return payload, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (d *dispatchStream) Send(ctx context.Context, payload []byte) error {
	body, err := frame.Encode(payload, false)
	if err != nil {
		return err
	}
	return d.tr.SendMessage(ctx, d.id, body, false)
}
