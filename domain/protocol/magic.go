package protocol

// Confirm-magic byte strings exchanged as Bytes/AuthResponse payloads after
// key agreement. Comparison is exact-bytes, including the trailing NUL;
// the wire format never trims it.
var (
	ConfirmMagic = []byte("CONFIRM\x00")
	OKMagic      = []byte("OK\x00")
)

// Disconnect reasons used verbatim by both state machines.
const (
	ReasonMaxRetriesExceeded   = "Maximum retries exceeded"
	ReasonTimeoutReached       = "Timeout reached"
	ReasonConnectionCompromise = "Connection is compromised"
)
