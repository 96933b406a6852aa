// Package session implements the per-peer connection state machines that
// drive a tunnel peer through handshake, confirmation, authentication, and
// the connected pump. It depends on the application package's
// pluggable-capability interfaces, the domain/protocol vocabulary and
// domain/codec, and on infrastructure/settings for its constants, never on
// a concrete infrastructure binding.
package session

import (
	"rush/application"
	"rush/domain/protocol"
)

// Transition is the sum type a state-machine step returns: Keep, To a new
// state, Establish a cipher, ActivateSession, or Disconnect with a reason.
type Transition struct {
	Kind   protocol.TransitionKind
	Next   protocol.State
	Cipher application.Cipher
	Reason string
}

// Keep means stay in the current state.
func Keep() Transition {
	return Transition{Kind: protocol.TransitionKeep}
}

// To moves to next with no other side effect.
func To(next protocol.State) Transition {
	return Transition{Kind: protocol.TransitionTo, Next: next}
}

// Establish installs cipher and moves to next (ConnConfirm, on both sides).
func Establish(cipher application.Cipher, next protocol.State) Transition {
	return Transition{Kind: protocol.TransitionEstablish, Next: next, Cipher: cipher}
}

// ActivateSession enters StateConnected.
func ActivateSession() Transition {
	return Transition{Kind: protocol.TransitionActivateSession, Next: protocol.StateConnected}
}

// Disconnect tears the peer down, sending reason encrypted first when a
// cipher is already installed.
func Disconnect(reason string) Transition {
	return Transition{Kind: protocol.TransitionDisconnect, Reason: reason}
}
