// Package server wires the server-side state machine to the concrete QUIC
// transport, PAM authentication, and PTY spawning, and drives the
// multi-peer poll loop that turns transport events into state transitions.
package server

import (
	"context"
	"fmt"
	"time"

	"rush/application"
	"rush/application/session"
	"rush/domain/protocol"
	"rush/infrastructure/auth/pam"
	"rush/infrastructure/cryptography/aead"
	"rush/infrastructure/cryptography/keyagreement"
	"rush/infrastructure/pty"
	"rush/infrastructure/settings"
	"rush/infrastructure/transport/quicnet"
	"rush/presentation/pump"
)

// Config is everything the runner needs to listen for peers and spawn
// authenticated PTY sessions for them.
type Config struct {
	ListenAddr string
	Logger     application.Logger
}

// Run listens on cfg.ListenAddr and services peers until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	tlsConfig, err := quicnet.GenerateSelfSignedTLSConfig()
	if err != nil {
		return fmt.Errorf("generate server tls config: %w", err)
	}

	transportHost := quicnet.NewServer(tlsConfig, cfg.ListenAddr)
	defer transportHost.Close()

	svcDone := make(chan error, 1)
	go func() { svcDone <- transportHost.Service(ctx) }()

	authenticator := pam.NewAuthenticator()
	ptyFactory := pty.NewFactory()

	machines := session.NewRegistry[*session.ServerMachine]()

	closePeer := func(peer application.PeerID) {
		m, ok := machines.Get(peer)
		if !ok {
			return
		}
		if pc := m.Context(); pc != nil && pc.PumpCancel != nil {
			pc.PumpCancel()
		}
		if pc := m.Context(); pc != nil && pc.PTY != nil {
			_ = pc.PTY.Close()
		}
		machines.Delete(peer)
	}

	startPump := func(peer application.PeerID, cipher application.Cipher, ptySession application.PTYSession) func() {
		pumpCtx, cancel := context.WithCancel(ctx)
		go pump.ReadLoop(pumpCtx, ptySession, settings.PTYReadBufferSize, func(data []byte) error {
			return session.SendEncrypted(transportHost, cipher, peer, protocol.Bytes{Payload: data}, application.ChannelData)
		})
		return cancel
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			var peers []application.PeerID
			machines.Range(func(peer application.PeerID, _ *session.ServerMachine) {
				peers = append(peers, peer)
			})
			for _, peer := range peers {
				closePeer(peer)
			}
			return nil
		case svcErr := <-svcDone:
			return svcErr
		case <-ticker.C:
			now := time.Now()
			var expired []application.PeerID
			machines.Range(func(peer application.PeerID, m *session.ServerMachine) {
				if tr := m.CheckDeadline(now); tr.Kind == protocol.TransitionDisconnect {
					session.Teardown(transportHost, peer, m.Context().Cipher, tr.Reason)
					expired = append(expired, peer)
				}
			})
			for _, peer := range expired {
				closePeer(peer)
			}

			ev, ok := transportHost.Recv()
			if !ok {
				continue
			}
			switch ev.Kind {
			case application.EventConnect:
				m := session.NewServerMachine(session.ServerDeps{
					Transport:     transportHost,
					KeyAgreement:  keyagreement.X25519{},
					CipherFactory: aead.NewFactory(),
					Authenticator: authenticator,
					PTYFactory:    ptyFactory,
					Logger:        cfg.Logger,
					StartPump:     startPump,
				})
				if _, err := m.Start(ev.Peer); err != nil {
					cfg.Logger.Printf("peer %d: start failed: %v", ev.Peer, err)
					continue
				}
				machines.Add(ev.Peer, m)
			case application.EventReceive:
				m, ok := machines.Get(ev.Peer)
				if !ok {
					continue
				}
				tr := m.HandleEvent(ev)
				if tr.Kind == protocol.TransitionDisconnect {
					session.Teardown(transportHost, ev.Peer, m.Context().Cipher, tr.Reason)
					closePeer(ev.Peer)
				}
			case application.EventDisconnect:
				closePeer(ev.Peer)
			}
		}
	}
}
