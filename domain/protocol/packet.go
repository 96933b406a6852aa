// Package protocol defines the wire-level packet union, the per-peer state
// machine vocabulary, and the typed error kinds shared by the client and
// server tunnel drivers.
package protocol

// Tag is the wire discriminant for a Packet. Unknown tags are a hard
// deserialize error, never silently dropped.
type Tag byte

const (
	TagHandshake Tag = iota
	TagBytes
	TagDisconnect
	TagSignal
	TagAuthRequest
	TagAuthResponse
	TagResize
)

func (t Tag) String() string {
	switch t {
	case TagHandshake:
		return "Handshake"
	case TagBytes:
		return "Bytes"
	case TagDisconnect:
		return "Disconnect"
	case TagSignal:
		return "Signal"
	case TagAuthRequest:
		return "AuthRequest"
	case TagAuthResponse:
		return "AuthResponse"
	case TagResize:
		return "Resize"
	default:
		return "Unknown"
	}
}

// Packet is the tagged union carried over the encrypted channel (Handshake
// is the sole exception: it travels in the clear, see codec.IsPlaintext).
type Packet interface {
	Tag() Tag
}

// PublicKeySize is the X25519 public key length in bytes.
const PublicKeySize = 32

// Handshake carries an ephemeral X25519 public key. It is the only packet
// variant ever sent unencrypted.
type Handshake struct {
	PublicKey [PublicKeySize]byte
}

func (Handshake) Tag() Tag { return TagHandshake }

// Bytes carries raw PTY/stdin payload data.
type Bytes struct {
	Payload []byte
}

func (Bytes) Tag() Tag { return TagBytes }

// Disconnect carries a human-readable teardown reason.
type Disconnect struct {
	Payload []byte
}

func (Disconnect) Tag() Tag { return TagDisconnect }

// Signal carries a short RFC-style signal name, see IsValidSignalName.
type Signal struct {
	Payload []byte
}

func (Signal) Tag() Tag { return TagSignal }

// AuthRequest carries a username/password pair for PAM verification.
// Neither field may contain a NUL byte; both are UTF-8.
type AuthRequest struct {
	Username string
	Password string
}

func (AuthRequest) Tag() Tag { return TagAuthRequest }

// AuthResponse carries "OK\x00" on success or a human-readable error.
type AuthResponse struct {
	Payload []byte
}

func (AuthResponse) Tag() Tag { return TagAuthResponse }

// Resize carries a terminal window size change.
type Resize struct {
	Rows, Cols, XPixels, YPixels uint16
}

func (Resize) Tag() Tag { return TagResize }
