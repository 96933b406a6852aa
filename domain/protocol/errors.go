package protocol

import "fmt"

// ErrorKind classifies a TunnelError by behavior, not by a 1:1 mirror of a
// Go type: several concrete causes (a bad tag, a truncated buffer, invalid
// UTF-8) all surface as KindCodec.
type ErrorKind int

const (
	KindTransportInit ErrorKind = iota
	KindTransportPeer
	KindCodec
	KindAead
	KindKeyAgreement
	KindTimeout
	KindAuthFailure
	KindPtySpawn
	KindIoEOF
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransportInit:
		return "TransportInit"
	case KindTransportPeer:
		return "TransportPeer"
	case KindCodec:
		return "Codec"
	case KindAead:
		return "Aead"
	case KindKeyAgreement:
		return "KeyAgreement"
	case KindTimeout:
		return "Timeout"
	case KindAuthFailure:
		return "AuthFailure"
	case KindPtySpawn:
		return "PtySpawn"
	case KindIoEOF:
		return "IoEof"
	default:
		return "Unknown"
	}
}

// TunnelError is the single typed error carried by every fallible core
// operation. Callers needing the kind use errors.As; callers needing a
// specific cause use errors.Is/errors.Unwrap against Err.
type TunnelError struct {
	Kind ErrorKind
	Err  error
}

func NewTunnelError(kind ErrorKind, err error) *TunnelError {
	return &TunnelError{Kind: kind, Err: err}
}

func (e *TunnelError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *TunnelError) Unwrap() error { return e.Err }

// Retryable reports whether this error should count against a state's
// retry counter rather than surfacing as a fatal disconnect outright.
func (e *TunnelError) Retryable() bool {
	return e.Kind == KindCodec || e.Kind == KindAead
}
