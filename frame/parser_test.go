package frame

import (
	"bytes"
	"testing"
)

func payloads(msgs []Message) [][]byte {
	out := make([][]byte, len(msgs))
	for i, m := range msgs {
		out[i] = m.Payload
	}
	return out
}

func concat(frames ...[]byte) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

func TestParserOneFramePerFeed(t *testing.T) {
	p := NewParser()
	f1 := mustEncode(t, []byte("hello"), false)

	msgs, err := p.Feed(f1)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(msgs) != 1 || string(msgs[0].Payload) != "hello" {
		t.Fatalf("got %v, want one message 'hello'", payloads(msgs))
	}
}

func TestParserByteByByte(t *testing.T) {
	p := NewParser()
	whole := mustEncode(t, []byte("fragmented"), false)

	var got []Message
	for _, b := range whole {
		msgs, err := p.Feed([]byte{b})
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		got = append(got, msgs...)
	}

	if len(got) != 1 || string(got[0].Payload) != "fragmented" {
		t.Fatalf("got %v, want one message 'fragmented'", payloads(got))
	}
}

func TestParserCoalescedFrames(t *testing.T) {
	p := NewParser()
	var frames [][]byte
	want := []string{"a", "bb", "ccc", "dddd", "eeeee", "f", "g", "h", "i", "j"}
	for _, w := range want {
		frames = append(frames, mustEncode(t, []byte(w), false))
	}

	msgs, err := p.Feed(concat(frames...))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if string(msgs[i].Payload) != w {
			t.Errorf("message %d = %q, want %q", i, msgs[i].Payload, w)
		}
	}
}

func TestParserAssociativity(t *testing.T) {
	frameA := mustEncode(t, []byte("first"), false)
	frameB := mustEncode(t, []byte("second"), false)
	// Split frameB in half mid-frame to exercise split-across-Feed-calls.
	mid := len(frameB) / 2
	a, b1, b2 := frameA, frameB[:mid], frameB[mid:]

	p1 := NewParser()
	m1, err := p1.Feed(a)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := p1.Feed(b1)
	if err != nil {
		t.Fatal(err)
	}
	m3, err := p1.Feed(b2)
	if err != nil {
		t.Fatal(err)
	}
	split := append(append(append([]Message{}, m1...), m2...), m3...)

	p2 := NewParser()
	whole, err := p2.Feed(concat(a, b1, b2))
	if err != nil {
		t.Fatal(err)
	}

	if len(split) != len(whole) {
		t.Fatalf("split produced %d messages, whole produced %d", len(split), len(whole))
	}
	for i := range split {
		if !bytes.Equal(split[i].Payload, whole[i].Payload) {
			t.Errorf("message %d differs: %q vs %q", i, split[i].Payload, whole[i].Payload)
		}
	}
}

func TestParserRejectsCompressedByDefault(t *testing.T) {
	p := NewParser()
	f := mustEncode(t, []byte("x"), true)
	if _, err := p.Feed(f); err == nil {
		t.Fatal("expected error for compressed frame with AllowCompressed=false")
	}
}

func TestParserAllowsCompressedWhenEnabled(t *testing.T) {
	p := NewParser()
	p.AllowCompressed = true
	f := mustEncode(t, []byte("x"), true)
	msgs, err := p.Feed(f)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].Compressed {
		t.Fatal("expected one compressed message")
	}
}

func TestParserEmptyPayloadFrame(t *testing.T) {
	p := NewParser()
	f := mustEncode(t, nil, false)
	msgs, err := p.Feed(f)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(msgs) != 1 || len(msgs[0].Payload) != 0 {
		t.Fatalf("got %v, want one empty message", payloads(msgs))
	}
}
