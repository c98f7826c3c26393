package transport

import "sync"

// demuxBuffer is the per-stream and "all streams" channel buffer size.
// Generous enough that ordinary test traffic never has to block, while
// a genuinely slow consumer suspends the publisher instead of losing
// events once the buffer fills.
const demuxBuffer = 64

// feed is one channel a Demux fans events into, plus the bookkeeping
// needed to close it safely while a Publish might be mid-send: close
// only ever happens after every in-flight publish attempt against this
// feed has returned (spec.md §4.2 requires per-stream ordering to
// survive a slow consumer, and a send racing a close would panic).
type feed struct {
	ch      chan Message
	cancel  chan struct{} // closed to wake a blocked publish, never sent to
	mu      sync.Mutex
	wg      sync.WaitGroup
	closed  bool
	relOnce sync.Once
}

func newFeed() *feed {
	return &feed{
		ch:     make(chan Message, demuxBuffer),
		cancel: make(chan struct{}),
	}
}

// publish delivers m, blocking until there is room rather than dropping
// it, unless the feed is closed or cancel fires while waiting (spec.md
// §5: backpressure suspends the publisher, it does not discard events).
func (f *feed) publish(m Message) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	select {
	case f.ch <- m:
		f.mu.Unlock()
		return
	default:
	}
	f.wg.Add(1)
	f.mu.Unlock()
	defer f.wg.Done()

	select {
	case f.ch <- m:
	case <-f.cancel:
	}
}

// release closes the feed once every in-flight publish has finished.
func (f *feed) release() {
	f.relOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.cancel)
		f.wg.Wait()
		close(f.ch)
	})
}

// Demux fans out a single raw event feed to an "all streams" channel
// and to per-stream channels created on demand. A Transport owns
// exactly one Demux; it is the concrete form of spec.md §3's "the
// transport exclusively owns ... the demultiplexing fan-out."
type Demux struct {
	mu       sync.Mutex
	all      *feed
	subs     map[StreamID]*feed
	released map[StreamID]bool
	closed   bool
}

// NewDemux creates an empty Demux.
func NewDemux() *Demux {
	return &Demux{
		all:      newFeed(),
		subs:     make(map[StreamID]*feed),
		released: make(map[StreamID]bool),
	}
}

// Publish fans m out to the "all" channel and, if one has been
// requested via ForStream and not yet released, to id's per-stream
// channel. Safe to call from any goroutine. Publish blocks the caller
// while either feed is full rather than dropping m, preserving
// per-stream ordering (spec.md §4.2 "metadata-0, data-1, …, trailer")
// and the trailer-terminates-stream invariant under a slow consumer.
// An already-released stream has no per-stream feed left to target, so
// publishing to it after release is a (correct) no-op, not a drop.
func (d *Demux) Publish(m Message) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	all := d.all
	sub := d.subs[m.StreamID]
	d.mu.Unlock()

	all.publish(m)
	if sub != nil {
		sub.publish(m)
	}
}

// All returns the "all streams" channel.
func (d *Demux) All() <-chan Message {
	return d.all.ch
}

// ForStream returns (creating if necessary) the per-stream channel for
// id.
func (d *Demux) ForStream(id StreamID) <-chan Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.released[id] {
		ch := make(chan Message)
		close(ch)
		return ch
	}
	sub, ok := d.subs[id]
	if !ok {
		sub = newFeed()
		d.subs[id] = sub
	}
	return sub.ch
}

// ReleaseStream closes id's per-stream channel and remembers id as
// released, so that any later ForStream(id) call immediately yields an
// empty (closed) sequence rather than a channel that blocks forever
// (spec.md §8 testable property 5: "a subsequent messagesForStream(sid)
// yields an empty sequence").
func (d *Demux) ReleaseStream(id StreamID) {
	d.mu.Lock()
	d.released[id] = true
	sub, ok := d.subs[id]
	delete(d.subs, id)
	d.mu.Unlock()
	if ok {
		sub.release()
	}
}

// Close closes the "all" channel and every per-stream channel; no
// further Publish has any effect.
func (d *Demux) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	subs := d.subs
	d.subs = make(map[StreamID]*feed)
	d.mu.Unlock()

	d.all.release()
	for _, sub := range subs {
		sub.release()
	}
}
