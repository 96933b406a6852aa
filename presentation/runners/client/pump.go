package client

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	palsignal "rush/infrastructure/PAL/signal"
	"rush/infrastructure/settings"
	"rush/presentation/pump"
)

// errEOT stops the stdin pump without itself counting as a send failure the
// runner needs to log; an EOT byte is the user's own way to hang up.
var errEOT = errors.New("client: end of transmission")

// ioSession is the set of callbacks the stdin/signal pumps drive once a
// peer reaches Connected. They close over the peer's cipher and transport
// so the pumps never need the state machine itself.
type ioSession struct {
	sendBytes  func(data []byte) error
	sendSignal func(name string) error
	sendResize func(rows, cols, x, y uint16) error
	windowSize func() (rows, cols, x, y uint16, err error)
	onEOT      func()
}

// runIOPumps starts the stdin and signal forwarding loops for one Connected
// peer and blocks until ctx is cancelled or stdin hits EOF/EOT. After a
// cancel it also waits for the pending stdin read to return.
func runIOPumps(ctx context.Context, io ioSession) {
	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, append(palsignal.ForwardableSignalList(), syscall.SIGWINCH)...)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		pump.ReadLoop(pumpCtx, os.Stdin, settings.StdinReadBufferSize, stdinSend(io))
	}()

	for {
		select {
		case <-pumpCtx.Done():
			<-done
			return
		case <-done:
			return
		case sig := <-sigCh:
			if sig == syscall.SIGWINCH {
				rows, cols, x, y, err := io.windowSize()
				if err == nil {
					_ = io.sendResize(rows, cols, x, y)
				}
				continue
			}
			name, ok := palsignal.ForwardableSignals[sig]
			if !ok {
				continue
			}
			_ = io.sendSignal(name)
		}
	}
}

// stdinSend interprets a single stdin read: a lone control byte becomes a
// Signal or triggers graceful teardown, everything else is raw PTY input.
func stdinSend(io ioSession) func([]byte) error {
	const (
		ctrlC         = 0x03 // INT
		ctrlBackslash = 0x1C // QUIT
		ctrlD         = 0x04 // EOT
	)
	return func(data []byte) error {
		if len(data) == 1 {
			switch data[0] {
			case ctrlC:
				return io.sendSignal("INT")
			case ctrlBackslash:
				return io.sendSignal("QUIT")
			case ctrlD:
				io.onEOT()
				return errEOT
			}
		}
		return io.sendBytes(data)
	}
}
