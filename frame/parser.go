package frame

// Message is one fully decoded application message extracted from the
// wire, together with the compression flag it carried.
type Message struct {
	Compressed bool
	Payload    []byte
}

// Parser extracts whole application messages from arbitrarily chunked
// byte fragments, per-stream. It tolerates split frames (fed byte by
// byte) and coalesced frames (many frames in one Feed call) identically:
// Parser.Feed(A) + Parser.Feed(B) yields the same ordered payload list
// as a fresh parser fed A++B (spec.md §4.1 associativity invariant).
//
// AllowCompressed controls whether a frame with the compression flag
// set is accepted; the core does not mandate a compression codec
// (spec.md §1), so by default such a frame is rejected with a
// decoding error rather than silently handed to the caller.
type Parser struct {
	AllowCompressed bool

	buf         []byte
	haveHeader  bool
	compressed  bool
	expectedLen uint32
}

// NewParser returns a parser that rejects compressed frames.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends chunk to the internal buffer and extracts every complete
// frame now available, resetting per-frame state after each emission.
// It returns zero or more complete message payloads, in order.
func (p *Parser) Feed(chunk []byte) ([]Message, error) {
	if len(chunk) > 0 {
		p.buf = append(p.buf, chunk...)
	}

	var out []Message
	for {
		if !p.haveHeader {
			if len(p.buf) < HeaderSize {
				return out, nil
			}
			compressed, length, err := ParseHeader(p.buf[:HeaderSize])
			if err != nil {
				return out, err
			}
			if compressed && !p.AllowCompressed {
				return out, newError("compressed frame rejected (no compression codec configured)")
			}
			p.compressed = compressed
			p.expectedLen = length
			p.haveHeader = true
			p.buf = p.buf[HeaderSize:]
		}

		if uint32(len(p.buf)) < p.expectedLen {
			return out, nil
		}

		payload := make([]byte, p.expectedLen)
		copy(payload, p.buf[:p.expectedLen])
		p.buf = p.buf[p.expectedLen:]

		out = append(out, Message{Compressed: p.compressed, Payload: payload})

		// Reset per-frame state; shrink the retained buffer to what's
		// left so we never hold more than the current partial frame.
		p.haveHeader = false
		p.compressed = false
		p.expectedLen = 0
		if len(p.buf) == 0 {
			p.buf = nil
		}
	}
}

// Reset clears all buffered state, for reuse across streams.
func (p *Parser) Reset() {
	p.buf = nil
	p.haveHeader = false
	p.compressed = false
	p.expectedLen = 0
}
