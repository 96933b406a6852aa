package protocol

// State is a per-peer connection stage. Exactly one is active at a time;
// the cipher is absent in StateHandshake and present in every later stage.
type State int

const (
	StateHandshake State = iota
	StateConnConfirm
	StateAuth
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateConnConfirm:
		return "ConnConfirm"
	case StateAuth:
		return "Auth"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// TransitionKind enumerates the shapes a state-machine step may return, in
// place of a polymorphic state/dispatch pair.
type TransitionKind int

const (
	// TransitionKeep means stay in the current state; nothing else changes.
	TransitionKeep TransitionKind = iota
	// TransitionTo moves to a new State with no other side effect.
	TransitionTo
	// TransitionEstablish installs a freshly agreed cipher and moves on.
	TransitionEstablish
	// TransitionActivateSession enters StateConnected and starts the pumps.
	TransitionActivateSession
	// TransitionDisconnect tears the peer down, optionally sending an
	// encrypted Disconnect frame carrying Reason first.
	TransitionDisconnect
)
