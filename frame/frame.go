// Package frame implements the gRPC-compatible message framing used by
// every transport in this module: a 1-byte compression flag followed by
// a 4-byte big-endian length, followed by that many bytes of payload.
package frame

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size in bytes of the frame prefix (flag + length).
const HeaderSize = 5

// MaxPayloadLength is the largest payload a frame can carry (the length
// field is a uint32).
const MaxPayloadLength = 1<<32 - 1

// Error reports a malformed frame: a prefix shorter than HeaderSize, a
// compressed frame a Parser does not accept, or a payload too large to
// encode. Lengths are not bounded beyond what the uint32 field holds.
type Error struct {
	reason string
}

func (e *Error) Error() string { return "frame: " + e.reason }

func newError(format string, args ...any) *Error {
	return &Error{reason: fmt.Sprintf(format, args...)}
}

// Encode emits a complete frame for payload: [flag][len_be_u32][payload].
// compressed sets the flag byte; the spec exposes the flag without
// mandating a compression codec (spec.md §1, §3).
func Encode(payload []byte, compressed bool) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, newError("payload too large: %d bytes", len(payload))
	}

	out := make([]byte, HeaderSize+len(payload))
	if compressed {
		out[0] = 1
	}
	binary.BigEndian.PutUint32(out[1:HeaderSize], uint32(len(payload))) //nolint:gosec // bounds checked above
	copy(out[HeaderSize:], payload)
	return out, nil
}

// ParseHeader decodes the 5-byte frame prefix. first must be at least
// HeaderSize bytes; only the first HeaderSize are consulted.
func ParseHeader(first []byte) (compressed bool, length uint32, err error) {
	if len(first) < HeaderSize {
		return false, 0, newError("short header: got %d bytes, want %d", len(first), HeaderSize)
	}
	compressed = first[0] == 1
	length = binary.BigEndian.Uint32(first[1:HeaderSize])
	return compressed, length, nil
}
