// Package client wires the client-side state machine to the concrete QUIC
// transport, X25519/XChaCha20 cryptography, and the local terminal, and
// drives the poll loop that turns transport events into state transitions.
package client

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"rush/application"
	"rush/application/session"
	"rush/domain/protocol"
	"rush/infrastructure/cryptography/aead"
	"rush/infrastructure/cryptography/keyagreement"
	"rush/infrastructure/settings"
	"rush/infrastructure/terminal"
	"rush/infrastructure/transport/quicnet"
)

// Config is everything the runner needs to dial a server and attach a
// local terminal to the resulting session.
type Config struct {
	Username string
	Host     string // host, or host:port
	Logger   application.Logger
}

// Run dials cfg.Host, authenticates as cfg.Username, and attaches the
// local terminal until the session ends or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	addr := cfg.Host
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, settings.DefaultPort)
	}

	transportHost := quicnet.NewClient(quicnet.ClientTLSConfig())
	defer transportHost.Close()

	rawGuard := terminal.NewRawModeGuard(int(os.Stdin.Fd()))
	defer rawGuard.Disable()

	machine := session.NewClientMachine(session.ClientDeps{
		Transport:      transportHost,
		KeyAgreement:   keyagreement.X25519{},
		CipherFactory:  aead.NewFactory(),
		Logger:         cfg.Logger,
		Stdout:         os.Stdout,
		PasswordPrompt: promptPassword,
		WindowSize:     queryWindowSize,
	}, cfg.Username)

	svcCtx, cancelSvc := context.WithCancel(ctx)
	defer cancelSvc()
	svcDone := make(chan error, 1)
	go func() { svcDone <- transportHost.Service(svcCtx) }()

	if err := transportHost.Connect(ctx, addr); err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}

	ioCtx, cancelIO := context.WithCancel(ctx)
	defer cancelIO()
	ioStarted := false

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case svcErr := <-svcDone:
			return svcErr
		case <-ticker.C:
			if machine.Context() != nil {
				if tr := machine.CheckDeadline(time.Now()); tr.Kind == protocol.TransitionDisconnect {
					teardown(transportHost, machine, tr.Reason)
					cancelIO()
					return fmt.Errorf("session ended: %s", tr.Reason)
				}
			}

			ev, ok := transportHost.Recv()
			if !ok {
				continue
			}
			switch ev.Kind {
			case application.EventConnect:
				if _, err := machine.Start(ev.Peer); err != nil {
					return err
				}
			case application.EventReceive:
				tr := machine.HandleEvent(ev)
				if tr.Kind == protocol.TransitionDisconnect {
					teardown(transportHost, machine, tr.Reason)
					cancelIO()
					return fmt.Errorf("session ended: %s", tr.Reason)
				}
				if tr.Kind == protocol.TransitionActivateSession && !ioStarted {
					ioStarted = true
					if err := rawGuard.Enable(); err != nil {
						cfg.Logger.Printf("enter raw mode failed: %v", err)
					}
					go func() {
						runIOPumps(ioCtx, newIOSession(transportHost, machine))
						_ = rawGuard.Disable()
					}()
				}
			case application.EventDisconnect:
				cancelIO()
				return nil
			}
		}
	}
}

func teardown(t application.Transport, m *session.ClientMachine, reason string) {
	ctx := m.Context()
	var cipher application.Cipher
	if ctx != nil {
		cipher = ctx.Cipher
	}
	peer := application.PeerID(0)
	if ctx != nil {
		peer = ctx.Peer
	}
	session.Teardown(t, peer, cipher, reason)
}

func newIOSession(t application.Transport, m *session.ClientMachine) ioSession {
	ctx := m.Context()
	return ioSession{
		sendBytes: func(data []byte) error {
			return session.SendEncrypted(t, ctx.Cipher, ctx.Peer, protocol.Bytes{Payload: data}, application.ChannelData)
		},
		sendSignal: func(name string) error {
			return session.SendEncrypted(t, ctx.Cipher, ctx.Peer, protocol.Signal{Payload: []byte(name)}, application.ChannelSignal)
		},
		sendResize: func(rows, cols, x, y uint16) error {
			return session.SendEncrypted(t, ctx.Cipher, ctx.Peer, protocol.Resize{Rows: rows, Cols: cols, XPixels: x, YPixels: y}, application.ChannelSignal)
		},
		windowSize: queryWindowSize,
		onEOT: func() {
			session.Teardown(t, ctx.Peer, ctx.Cipher, "client disconnected")
		},
	}
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func queryWindowSize() (rows, cols, xPixels, yPixels uint16, err error) {
	width, height, sizeErr := term.GetSize(int(os.Stdout.Fd()))
	if sizeErr != nil {
		return settings.DefaultWindowRows, settings.DefaultWindowCols, 0, 0, nil
	}
	return uint16(height), uint16(width), 0, 0, nil
}
