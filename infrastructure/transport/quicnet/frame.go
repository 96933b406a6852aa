package quicnet

import (
	"encoding/binary"
	"fmt"
	"io"

	"rush/application"
	"rush/domain/codec"
)

// writeFrame writes data as a uint32 little-endian length prefix followed
// by the payload, so QUIC's byte-stream abstraction yields back the
// message boundaries the codec relies on.
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > codec.MaxMessageSize {
		return fmt.Errorf("frame of %d bytes exceeds max message size", len(data))
	}
	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// readFrame reads one length-prefixed frame written by writeFrame.
func readFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(header[:])
	if n > codec.MaxMessageSize {
		return nil, fmt.Errorf("frame length %d exceeds max message size", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeChannelHeader writes a single byte identifying the logical channel
// a freshly opened stream carries. It is written exactly once, immediately
// after the stream is opened and before any frame, so the accepting side
// can recover which application.Channel an incoming stream maps to.
func writeChannelHeader(w io.Writer, channel application.Channel) error {
	_, err := w.Write([]byte{byte(channel)})
	return err
}

// readChannelHeader reads the one-byte channel header written by
// writeChannelHeader.
func readChannelHeader(r io.Reader) (application.Channel, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return application.Channel(b[0]), nil
}
