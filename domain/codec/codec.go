// Package codec serializes and deserializes the tagged-union wire packets
// defined in domain/protocol: one discriminant byte, then little-endian
// fixed or length-prefixed fields, in the same length-prefixed-buffer
// style as udp_wire.go.
package codec

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"rush/domain/protocol"
)

// MaxMessageSize bounds any single deserialized message; inputs larger than
// this are rejected as too large before any parsing or allocation.
const MaxMessageSize = 1 << 20 // 1 MiB

func codecErr(format string, args ...any) error {
	return protocol.NewTunnelError(protocol.KindCodec, fmt.Errorf(format, args...))
}

// Serialize converts p into its wire representation. Serialization never
// fails for in-range inputs.
func Serialize(p protocol.Packet) ([]byte, error) {
	switch v := p.(type) {
	case protocol.Handshake:
		buf := make([]byte, 1+protocol.PublicKeySize)
		buf[0] = byte(protocol.TagHandshake)
		copy(buf[1:], v.PublicKey[:])
		return buf, nil

	case protocol.Bytes:
		return serializeBuf(protocol.TagBytes, v.Payload), nil
	case protocol.Disconnect:
		return serializeBuf(protocol.TagDisconnect, v.Payload), nil
	case protocol.Signal:
		return serializeBuf(protocol.TagSignal, v.Payload), nil
	case protocol.AuthResponse:
		return serializeBuf(protocol.TagAuthResponse, v.Payload), nil

	case protocol.AuthRequest:
		user := []byte(v.Username)
		pass := []byte(v.Password)
		buf := make([]byte, 1+4+len(user)+4+len(pass))
		buf[0] = byte(protocol.TagAuthRequest)
		off := 1
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(user)))
		off += 4
		off += copy(buf[off:], user)
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(pass)))
		off += 4
		copy(buf[off:], pass)
		return buf, nil

	case protocol.Resize:
		buf := make([]byte, 1+8)
		buf[0] = byte(protocol.TagResize)
		binary.LittleEndian.PutUint16(buf[1:], v.Rows)
		binary.LittleEndian.PutUint16(buf[3:], v.Cols)
		binary.LittleEndian.PutUint16(buf[5:], v.XPixels)
		binary.LittleEndian.PutUint16(buf[7:], v.YPixels)
		return buf, nil

	default:
		return nil, codecErr("serialize: unsupported packet type %T", p)
	}
}

func serializeBuf(tag protocol.Tag, payload []byte) []byte {
	buf := make([]byte, 1+4+len(payload))
	buf[0] = byte(tag)
	binary.LittleEndian.PutUint32(buf[1:], uint32(len(payload)))
	copy(buf[5:], payload)
	return buf
}

// Deserialize parses buf into a Packet. Unknown discriminants, truncated
// buffers, overflowing length prefixes, and invalid UTF-8 in string fields
// are all hard errors — never a silently-dropped or best-effort parse.
func Deserialize(buf []byte) (protocol.Packet, error) {
	if len(buf) > MaxMessageSize {
		return nil, codecErr("deserialize: message too large (%d bytes)", len(buf))
	}
	if len(buf) < 1 {
		return nil, codecErr("deserialize: empty buffer")
	}
	tag := protocol.Tag(buf[0])
	body := buf[1:]

	switch tag {
	case protocol.TagHandshake:
		if len(body) != protocol.PublicKeySize {
			return nil, codecErr("deserialize: handshake public key length mismatch (%d != %d)",
				len(body), protocol.PublicKeySize)
		}
		var pk [32]byte
		copy(pk[:], body)
		return protocol.Handshake{PublicKey: pk}, nil

	case protocol.TagBytes:
		payload, err := readBuf(body)
		if err != nil {
			return nil, err
		}
		return protocol.Bytes{Payload: payload}, nil

	case protocol.TagDisconnect:
		payload, err := readBuf(body)
		if err != nil {
			return nil, err
		}
		return protocol.Disconnect{Payload: payload}, nil

	case protocol.TagSignal:
		payload, err := readBuf(body)
		if err != nil {
			return nil, err
		}
		return protocol.Signal{Payload: payload}, nil

	case protocol.TagAuthResponse:
		payload, err := readBuf(body)
		if err != nil {
			return nil, err
		}
		return protocol.AuthResponse{Payload: payload}, nil

	case protocol.TagAuthRequest:
		if len(body) < 4 {
			return nil, codecErr("deserialize: truncated AuthRequest")
		}
		userLen := binary.LittleEndian.Uint32(body)
		body = body[4:]
		if uint64(userLen) > uint64(len(body)) {
			return nil, codecErr("deserialize: AuthRequest username length overflow")
		}
		userBytes := body[:userLen]
		body = body[userLen:]

		if len(body) < 4 {
			return nil, codecErr("deserialize: truncated AuthRequest password length")
		}
		passLen := binary.LittleEndian.Uint32(body)
		body = body[4:]
		if uint64(passLen) > uint64(len(body)) {
			return nil, codecErr("deserialize: AuthRequest password length overflow")
		}
		passBytes := body[:passLen]

		if !utf8.Valid(userBytes) || !utf8.Valid(passBytes) {
			return nil, codecErr("deserialize: AuthRequest field is not valid UTF-8")
		}

		return protocol.AuthRequest{Username: string(userBytes), Password: string(passBytes)}, nil

	case protocol.TagResize:
		if len(body) != 8 {
			return nil, codecErr("deserialize: truncated Resize (%d != 8)", len(body))
		}
		return protocol.Resize{
			Rows:    binary.LittleEndian.Uint16(body[0:2]),
			Cols:    binary.LittleEndian.Uint16(body[2:4]),
			XPixels: binary.LittleEndian.Uint16(body[4:6]),
			YPixels: binary.LittleEndian.Uint16(body[6:8]),
		}, nil

	default:
		return nil, codecErr("deserialize: unknown discriminant %d", buf[0])
	}
}

func readBuf(body []byte) ([]byte, error) {
	if len(body) < 4 {
		return nil, codecErr("deserialize: truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(body)
	body = body[4:]
	if uint64(n) > uint64(len(body)) {
		return nil, codecErr("deserialize: length-prefix overflow (%d > %d available)", n, len(body))
	}
	payload := make([]byte, n)
	copy(payload, body[:n])
	return payload, nil
}

// IsPlaintext reports whether tag is ever sent unencrypted. Only the
// initial Handshake packet travels outside the AEAD channel.
func IsPlaintext(tag protocol.Tag) bool {
	return tag == protocol.TagHandshake
}
