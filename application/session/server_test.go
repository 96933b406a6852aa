package session

import (
	"testing"

	"rush/application"
	"rush/domain/codec"
	"rush/domain/protocol"
)

func newServerMachine(transport *fakeTransport, logger *fakeLogger, pty *fakePTY, authOK bool) *ServerMachine {
	allow := map[string]string{}
	if authOK {
		allow["alice"] = "pw"
	}
	return NewServerMachine(ServerDeps{
		Transport:     transport,
		KeyAgreement:  fakeKeyAgreement{},
		CipherFactory: fakeCipherFactory{key: 0x5A},
		Authenticator: fakeAuthenticator{allow: allow},
		PTYFactory:    fakePTYFactory{session: pty},
		Logger:        logger,
		StartPump: func(_ application.PeerID, _ application.Cipher, _ application.PTYSession) func() {
			return func() {}
		},
	})
}

func TestServerMachine_FullHandshakeToConnected(t *testing.T) {
	transport := &fakeTransport{}
	pty := &fakePTY{}
	server := newServerMachine(transport, &fakeLogger{}, pty, true)

	_, err := server.Start(application.PeerID(1))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	clientHS, _ := codec.Serialize(protocol.Handshake{PublicKey: [32]byte{7}})
	tr := server.HandleEvent(application.Event{Data: clientHS})
	if tr.Kind != protocol.TransitionEstablish || tr.Next != protocol.StateConnConfirm {
		t.Fatalf("expected Establish->ConnConfirm, got %+v", tr)
	}
	server.Context().Cipher = tr.Cipher
	server.Context().Stage = protocol.StateConnConfirm

	confirm := encryptFor(t, 0x5A, protocol.Bytes{Payload: protocol.ConfirmMagic})
	tr = server.HandleEvent(application.Event{Data: confirm})
	if tr.Kind != protocol.TransitionTo || tr.Next != protocol.StateAuth {
		t.Fatalf("expected To(Auth), got %+v", tr)
	}
	last := transport.last()
	plain, _ := fakeCipher{key: 0x5A}.Decrypt(last.Data)
	pkt, _ := codec.Deserialize(plain)
	if b, ok := pkt.(protocol.Bytes); !ok || string(b.Payload) != string(protocol.OKMagic) {
		t.Fatalf("expected OK magic reply, got %+v", pkt)
	}
	server.Context().Stage = protocol.StateAuth

	authReq := encryptFor(t, 0x5A, protocol.AuthRequest{Username: "alice", Password: "pw"})
	tr = server.HandleEvent(application.Event{Data: authReq})
	if tr.Kind != protocol.TransitionActivateSession {
		t.Fatalf("expected ActivateSession, got %+v", tr)
	}
	server.Context().Stage = protocol.StateConnected

	shellOutput := encryptFor(t, 0x5A, protocol.Bytes{Payload: []byte("ls\n")})
	tr = server.HandleEvent(application.Event{Data: shellOutput})
	if tr.Kind != protocol.TransitionKeep {
		t.Fatalf("expected Keep on data frame, got %+v", tr)
	}
	if len(pty.writes) != 1 || string(pty.writes[0]) != "ls\n" {
		t.Fatalf("expected pty write \"ls\\n\", got %v", pty.writes)
	}
}

func TestServerMachine_AuthFailureRetriesThenDisconnects(t *testing.T) {
	transport := &fakeTransport{}
	pty := &fakePTY{}
	server := newServerMachine(transport, &fakeLogger{}, pty, false)
	_, _ = server.Start(application.PeerID(1))
	server.Context().Cipher = fakeCipher{key: 0x5A}
	server.Context().Stage = protocol.StateAuth

	authReq := encryptFor(t, 0x5A, protocol.AuthRequest{Username: "alice", Password: "wrong"})

	tr := server.HandleEvent(application.Event{Data: authReq})
	if tr.Kind != protocol.TransitionKeep {
		t.Fatalf("first failure should retry (Keep), got %+v", tr)
	}
	if server.Context().Stage != protocol.StateAuth {
		t.Fatalf("expected to remain in Auth after first failure, got %v", server.Context().Stage)
	}

	tr = server.HandleEvent(application.Event{Data: authReq})
	if tr.Kind != protocol.TransitionDisconnect {
		t.Fatalf("second failure should disconnect (AuthMaxRetries=1), got %+v", tr)
	}
}

func TestServerMachine_AuthFailureThenSuccessActivatesSession(t *testing.T) {
	transport := &fakeTransport{}
	pty := &fakePTY{}
	server := newServerMachine(transport, &fakeLogger{}, pty, true)
	_, _ = server.Start(application.PeerID(1))
	server.Context().Cipher = fakeCipher{key: 0x5A}
	server.Context().Stage = protocol.StateAuth

	wrongReq := encryptFor(t, 0x5A, protocol.AuthRequest{Username: "alice", Password: "wrong"})
	tr := server.HandleEvent(application.Event{Data: wrongReq})
	if tr.Kind != protocol.TransitionKeep {
		t.Fatalf("first failure should retry (Keep), got %+v", tr)
	}

	rightReq := encryptFor(t, 0x5A, protocol.AuthRequest{Username: "alice", Password: "pw"})
	tr = server.HandleEvent(application.Event{Data: rightReq})
	if tr.Kind != protocol.TransitionActivateSession {
		t.Fatalf("expected ActivateSession on the retried attempt, got %+v", tr)
	}
}

func TestServerMachine_SignalAndResizeDispatch(t *testing.T) {
	transport := &fakeTransport{}
	pty := &fakePTY{}
	server := newServerMachine(transport, &fakeLogger{}, pty, true)
	_, _ = server.Start(application.PeerID(1))
	server.Context().Cipher = fakeCipher{key: 0x5A}
	server.Context().Stage = protocol.StateConnected
	server.Context().PTY = pty
	server.Context().Username = "alice"

	sig := encryptFor(t, 0x5A, protocol.Signal{Payload: []byte("INT")})
	server.HandleEvent(application.Event{Data: sig})
	if len(pty.signals) != 1 || pty.signals[0] != "INT" {
		t.Fatalf("expected INT signal delivered, got %v", pty.signals)
	}

	resize := encryptFor(t, 0x5A, protocol.Resize{Rows: 24, Cols: 80})
	server.HandleEvent(application.Event{Data: resize})
	if len(pty.resizes) != 1 || pty.resizes[0][0] != 24 || pty.resizes[0][1] != 80 {
		t.Fatalf("expected 24x80 resize delivered, got %v", pty.resizes)
	}
}
