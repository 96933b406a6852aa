package quicnet

import (
	"bytes"
	"testing"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("hello"),
		bytes.Repeat([]byte{0xAB}, 4096),
	}
	for _, data := range cases {
		var buf bytes.Buffer
		if err := writeFrame(&buf, data); err != nil {
			t.Fatalf("writeFrame(%d bytes): %v", len(data), err)
		}
		got, err := readFrame(&buf)
		if err != nil {
			t.Fatalf("readFrame: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
		}
	}
}

func TestReadFrame_OversizedLengthRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0x7F}) // huge LE length prefix
	if _, err := readFrame(&buf); err == nil {
		t.Fatal("expected error for oversized frame length")
	}
}
