package transport

import "sync"

// Parity selects which half of the id space a registry allocates from:
// odd ids for the initiating side, even ids for the accepting side
// (spec.md §3 "Stream" — a convention, not a hard requirement, but one
// every transport in this module follows so two registries on either
// end of a pair never collide).
type Parity int

const (
	ParityOdd Parity = iota
	ParityEven
)

// state is the per-stream lifecycle state, grounded on the
// idle/open/half-closed/closed enum used by HTTP/2-style multiplexers
// (other_examples h2s multiplexer) rather than a single "open" bool.
type state int

const (
	stateIdle state = iota
	stateOpen
	stateHalfClosedLocal
	stateHalfClosedRemote
	stateClosed
)

type streamEntry struct {
	state state
}

// Registry owns stream id allocation and lifecycle tracking for one
// side of a Transport. It is not safe to share across transports; each
// Transport owns exactly one Registry per spec.md §3 "Ownership".
type Registry struct {
	mu      sync.Mutex
	parity  Parity
	next    uint64
	entries map[StreamID]*streamEntry
	// released records every id passed to Release. Allocate does not
	// consult it: ids come only from the monotonic next counter.
	released map[StreamID]bool
}

// NewRegistry creates a Registry allocating ids of the given parity,
// starting from the lowest id in that partition (1 for odd, 2 for
// even).
func NewRegistry(parity Parity) *Registry {
	start := uint64(1)
	if parity == ParityEven {
		start = 2
	}
	return &Registry{
		parity:   parity,
		next:     start,
		entries:  make(map[StreamID]*streamEntry),
		released: make(map[StreamID]bool),
	}
}

// Allocate returns a currently-unused id from this registry's
// partition and marks it open.
func (r *Registry) Allocate() StreamID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := StreamID(r.next)
	r.next += 2
	r.entries[id] = &streamEntry{state: stateOpen}
	return id
}

// Observe records that id was allocated by the remote side (the
// responder learns of a stream id only when the caller's first
// metadata event arrives).
func (r *Registry) Observe(id StreamID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; !exists {
		r.entries[id] = &streamEntry{state: stateOpen}
	}
}

// MarkLocalEOS records that this side has half-closed id, and reports
// whether the stream is now fully closed (both sides EOS).
func (r *Registry) MarkLocalEOS(id StreamID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	switch e.state {
	case stateOpen:
		e.state = stateHalfClosedLocal
	case stateHalfClosedRemote:
		e.state = stateClosed
	}
	return e.state == stateClosed
}

// MarkRemoteEOS records that the peer has half-closed id, and reports
// whether the stream is now fully closed.
func (r *Registry) MarkRemoteEOS(id StreamID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	switch e.state {
	case stateOpen:
		e.state = stateHalfClosedRemote
	case stateHalfClosedLocal:
		e.state = stateClosed
	}
	return e.state == stateClosed
}

// IsLocalHalfClosed reports whether this side may no longer send on id.
func (r *Registry) IsLocalHalfClosed(id StreamID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	return e.state == stateHalfClosedLocal || e.state == stateClosed
}

// Known reports whether id has an entry (allocated locally or observed
// from the peer) and has not yet been released.
func (r *Registry) Known(id StreamID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Release frees id for bookkeeping purposes and removes it from the
// active set. Per spec.md §9, this module never reuses an id — Release
// only stops tracking it — since ids are issued monotonically and
// wraparound at 2^64 is not a practical concern.
func (r *Registry) Release(id StreamID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	r.released[id] = true
}
