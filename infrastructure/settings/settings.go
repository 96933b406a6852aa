// Package settings collects the tunnel's tunable constants: small typed
// constants rather than a config-file framework.
package settings

import "time"

const (
	// DefaultPort is the TCP-equivalent default listening port.
	DefaultPort = 6969

	// HandshakeMaxRetries bounds retryable failures in the Handshake state.
	HandshakeMaxRetries = 3
	// HandshakeDeadline bounds total time spent in the Handshake state.
	HandshakeDeadline = 500 * time.Millisecond

	// ConnConfirmDeadline bounds total time spent in the ConnConfirm state.
	ConnConfirmDeadline = 250 * time.Millisecond

	// AuthMaxRetries bounds password re-prompts in the Auth state.
	AuthMaxRetries = 1

	// PTYReadBufferSize is the PTY pump's per-read buffer size.
	PTYReadBufferSize = 4096
	// StdinReadBufferSize is the client input pump's per-read buffer size.
	StdinReadBufferSize = 4096

	// EventQueueCapacity bounds the transport's buffered event channel.
	EventQueueCapacity = 256

	// DefaultWindowRows/DefaultWindowCols are the PTY's initial window size
	// before the client's first Resize arrives.
	DefaultWindowRows = 24
	DefaultWindowCols = 80
)
