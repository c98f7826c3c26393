// Package responder implements the dispatch engine (spec.md §4.4): a
// single event loop over a transport.Transport's Incoming() feed that
// resolves each stream's first metadata event to a registered method
// and drives that method's handler to completion, emitting response-
// initial metadata, framed response payloads, and a final status
// trailer.
//
// It deliberately never calls Transport.MessagesForStream: the engine
// learns a stream's id from the very first event it sees for that
// stream, so subscribing to a per-stream channel afterward would race
// against a concurrent publish to that same id (see transport/demux.go)
// and could silently drop messages published in the gap. Reading
// Incoming() directly and demultiplexing with its own streamContext map
// (here: Dispatcher.streams) sidesteps the race entirely.
package responder

import (
	"context"
	"log"
	"sync"

	"github.com/calyxrpc/calyx/contract"
	"github.com/calyxrpc/calyx/metadata"
	"github.com/calyxrpc/calyx/status"
	"github.com/calyxrpc/calyx/transport"
)

// Dispatcher is one responder bound to one transport.
type Dispatcher struct {
	tr     transport.Transport
	logger *log.Logger

	mu      sync.Mutex
	methods map[string]*contract.MethodRegistration
	streams map[transport.StreamID]*streamState
	started bool
}

// New creates a Dispatcher bound to tr. logger is optional (nil-safe,
// like hyperway's LoggingInterceptor.Logger field) and records dispatch
// failures: malformed :path values, unexpected trailers, malformed
// frames, failed handlers (decode failures included), recovered handler
// panics, and failed sends of headers or trailers. The dispatch engine
// never fails a call for lack of a logger.
func New(tr transport.Transport, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		tr:      tr,
		logger:  logger,
		methods: make(map[string]*contract.MethodRegistration),
		streams: make(map[transport.StreamID]*streamState),
	}
}

func (d *Dispatcher) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

// Register flattens each contract (subcontracts first, depth-first,
// then each contract's own methods) and adds the combined method list
// to the registry, rejecting any duplicate service.method key (spec.md
// §4.4 "fail-fast"). The registry is immutable once the dispatch loop
// has started (spec.md §5 "Shared state discipline"), so Register may
// only be called once, with every top-level contract the endpoint
// needs; it starts the dispatch loop itself before returning.
func (d *Dispatcher) Register(contracts ...*contract.Contract) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return contract.NewRegistrationError("responder: registry is immutable once the dispatch loop has started")
	}

	var flattened []*contract.MethodRegistration
	for _, c := range contracts {
		methods, err := c.Flatten()
		if err != nil {
			return err
		}
		flattened = append(flattened, methods...)
	}

	for _, m := range flattened {
		if _, exists := d.methods[m.Key()]; exists {
			return contract.NewRegistrationError("duplicate method registration: %s", m.Key())
		}
	}
	for _, m := range flattened {
		d.methods[m.Key()] = m
	}

	d.started = true
	go d.run()
	return nil
}

func (d *Dispatcher) run() {
	for m := range d.tr.Incoming() {
		d.handleEvent(m)
	}
}

func (d *Dispatcher) handleEvent(m transport.Message) {
	if m.IsMetadata() {
		d.handleMetadata(m)
		return
	}
	d.handleData(m)
}

// handleMetadata implements spec.md §4.4 event-handling step 1.
func (d *Dispatcher) handleMetadata(m transport.Message) {
	if _, isTrailer := m.Metadata.GRPCStatus(); isTrailer {
		d.logf("responder: unexpected trailer on stream %d, dropping", m.StreamID)
		return
	}

	path, _ := m.Metadata.Get(metadata.HeaderPath)
	serviceName, methodName, ok := metadata.ParsePath(path)
	if !ok {
		d.logf("responder: malformed :path %q on stream %d, dropping", path, m.StreamID)
		return
	}

	key := serviceName + "." + methodName
	d.mu.Lock()
	reg, ok := d.methods[key]
	d.mu.Unlock()
	if !ok {
		d.finishWithTrailer(m.StreamID, status.Unimplemented, "unknown method "+key)
		return
	}

	st := newStreamState(reg)
	d.mu.Lock()
	d.streams[m.StreamID] = st
	d.mu.Unlock()

	// Response headers must precede every response payload and the
	// trailer (spec.md §5); sending them here, before the handler
	// goroutine exists, guarantees that ordering.
	if err := d.tr.SendMetadata(context.Background(), m.StreamID, metadata.ResponseInitial(), false); err != nil {
		d.logf("responder: sending response-initial metadata for stream %d: %v", m.StreamID, err)
		d.mu.Lock()
		delete(d.streams, m.StreamID)
		d.mu.Unlock()
		d.tr.ReleaseStreamId(m.StreamID)
		return
	}

	go d.runHandler(m.StreamID, st)

	if m.IsEndOfStream {
		st.closeIn()
	}
}

// handleData implements spec.md §4.4 event-handling steps 2 and 3.
func (d *Dispatcher) handleData(m transport.Message) {
	d.mu.Lock()
	st, ok := d.streams[m.StreamID]
	d.mu.Unlock()
	if !ok {
		d.finishWithTrailer(m.StreamID, status.Internal, "data received before method resolved")
		return
	}

	if len(m.Payload) > 0 {
		msgs, err := st.parser.Feed(m.Payload)
		if err != nil {
			d.logf("responder: malformed frame on stream %d: %v", m.StreamID, err)
			st.fail(err)
			return
		}
		for _, fm := range msgs {
			st.in <- fm.Payload
		}
	}

	if m.IsEndOfStream {
		st.closeIn()
	}
}

// runHandler drives one resolved method's handler to completion and
// emits the final trailer. It owns the streamContext entry's cleanup
// regardless of outcome.
func (d *Dispatcher) runHandler(id transport.StreamID, st *streamState) {
	s := &dispatchStream{tr: d.tr, id: id, st: st}

	err := d.invokeSafely(context.Background(), st.reg, s)

	d.mu.Lock()
	delete(d.streams, id)
	d.mu.Unlock()

	if err != nil {
		code, msg := trailerForError(err)
		d.logf("responder: %s failed: %v", st.reg.Key(), err)
		d.finishWithTrailer(id, code, msg)
		return
	}
	d.finishWithTrailer(id, status.OK, "")
}

// invokeSafely recovers a handler panic into an INTERNAL error instead
// of crashing the stream's goroutine (spec.md §4.4 "Panic recovery").
func (d *Dispatcher) invokeSafely(ctx context.Context, reg *contract.MethodRegistration, s contract.Stream) (err error) {
	defer func() {
		if p := recover(); p != nil {
			d.logf("responder: panic in %s handler: %v", reg.Key(), p)
			err = status.Newf(status.Internal, "panic: %v", p)
		}
	}()
	return reg.Invoke(ctx, s)
}

func (d *Dispatcher) finishWithTrailer(id transport.StreamID, code status.Code, msg string) {
	if err := d.tr.SendMetadata(context.Background(), id, metadata.Trailer(int(code), msg), true); err != nil {
		d.logf("responder: sending trailer for stream %d: %v", id, err)
	}
	d.tr.ReleaseStreamId(id)
}
