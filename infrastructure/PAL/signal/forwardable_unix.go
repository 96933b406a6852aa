//go:build !windows

package signal

import (
	"os"
	"syscall"
)

// ForwardableSignals maps the closed set of signal names the wire protocol
// understands (protocol.IsValidSignalName) to the OS signals the client
// subscribes to for forwarding to the remote PTY.
var ForwardableSignals = map[os.Signal]string{
	syscall.SIGHUP:  "HUP",
	syscall.SIGINT:  "INT",
	syscall.SIGQUIT: "QUIT",
	syscall.SIGTERM: "TERM",
	syscall.SIGUSR1: "USR1",
	syscall.SIGUSR2: "USR2",
}

// ForwardableSignalList is ForwardableSignals' keys, for signal.Notify.
func ForwardableSignalList() []os.Signal {
	sigs := make([]os.Signal, 0, len(ForwardableSignals))
	for s := range ForwardableSignals {
		sigs = append(sigs, s)
	}
	return sigs
}
