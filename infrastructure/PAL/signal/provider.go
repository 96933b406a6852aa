// Package signal abstracts platform-specific OS signal sets.
package signal

import "os"

// Provider supplies the platform's process-shutdown signal set.
type Provider interface {
	ShutdownSignals() []os.Signal
}
