package frame

import (
	"bytes"
	"testing"
)

func mustEncode(t *testing.T, payload []byte, compressed bool) []byte {
	t.Helper()
	f, err := Encode(payload, compressed)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return f
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := [][]byte{
		nil,
		{},
		[]byte("hi"),
		bytes.Repeat([]byte{0xAB}, 10_000),
	}

	for _, payload := range tests {
		f := mustEncode(t, payload, false)
		if len(f) != HeaderSize+len(payload) {
			t.Fatalf("frame length = %d, want %d", len(f), HeaderSize+len(payload))
		}
		compressed, length, err := ParseHeader(f)
		if err != nil {
			t.Fatalf("ParseHeader: %v", err)
		}
		if compressed {
			t.Error("expected uncompressed flag")
		}
		if int(length) != len(payload) {
			t.Errorf("length = %d, want %d", length, len(payload))
		}
		got := f[HeaderSize:]
		if !bytes.Equal(got, payload) && !(len(got) == 0 && len(payload) == 0) {
			t.Errorf("payload mismatch: got %v want %v", got, payload)
		}
	}
}

func TestEncodeCompressedFlag(t *testing.T) {
	f := mustEncode(t, []byte("x"), true)
	compressed, _, err := ParseHeader(f)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if !compressed {
		t.Error("expected compressed flag to be set")
	}
}

func TestParseHeaderShort(t *testing.T) {
	_, _, err := ParseHeader([]byte{0, 0, 0})
	if err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestEncodeTooLarge(t *testing.T) {
	// Can't actually allocate 4GiB in a test; instead exercise the
	// error path through a fake oversized slice length via a small
	// helper that bypasses allocation would be needed for a true
	// MaxPayloadLength+1 test, so this only checks the boundary
	// constant is sane.
	if MaxPayloadLength != 1<<32-1 {
		t.Fatalf("MaxPayloadLength = %d, want %d", MaxPayloadLength, uint32(1<<32-1))
	}
}
