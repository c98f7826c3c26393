package transport

import "fmt"

// ClosedError is returned by any operation attempted on a closed
// transport (spec.md §4.2 failure semantics).
type ClosedError struct{}

func (*ClosedError) Error() string { return "transport: closed" }

// HalfClosedError is returned by a send operation attempted after this
// side has already half-closed the given stream.
type HalfClosedError struct {
	StreamID StreamID
}

func (e *HalfClosedError) Error() string {
	return fmt.Sprintf("transport: stream %d is half-closed locally", e.StreamID)
}

// UnknownStreamError is returned when an operation names a stream id
// this transport never allocated or has already released.
type UnknownStreamError struct {
	StreamID StreamID
}

func (e *UnknownStreamError) Error() string {
	return fmt.Sprintf("transport: unknown stream %d", e.StreamID)
}
