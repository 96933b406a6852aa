// Package mode distinguishes the two roles this binary can run as.
package mode

type Mode int

const (
	Unknown Mode = iota
	// Client mode dials a server and attaches a local terminal to it.
	Client
	// Server mode listens for clients and spawns a PTY per authenticated peer.
	Server
)

func (m Mode) String() string {
	switch m {
	case Client:
		return "client"
	case Server:
		return "server"
	default:
		return "unknown"
	}
}
