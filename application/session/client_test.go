package session

import (
	"testing"
	"time"

	"rush/application"
	"rush/domain/codec"
	"rush/domain/protocol"
)

func newClientMachine(transport *fakeTransport, logger *fakeLogger, password string, windowErr error) *ClientMachine {
	return NewClientMachine(ClientDeps{
		Transport:      transport,
		KeyAgreement:   fakeKeyAgreement{},
		CipherFactory:  fakeCipherFactory{key: 0x5A},
		Logger:         logger,
		Stdout:         &discardWriter{},
		PasswordPrompt: func() (string, error) { return password, nil },
		WindowSize: func() (uint16, uint16, uint16, uint16, error) {
			return 24, 80, 0, 0, windowErr
		},
	}, "alice")
}

type discardWriter struct{ written []byte }

func (w *discardWriter) Write(p []byte) (int, error) {
	w.written = append(w.written, p...)
	return len(p), nil
}

func encryptFor(t *testing.T, key byte, pkt protocol.Packet) []byte {
	t.Helper()
	plain, err := codec.Serialize(pkt)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	c := fakeCipher{key: key}
	ct, _ := c.Encrypt(plain)
	return ct
}

func TestClientMachine_FullHandshakeToConnected(t *testing.T) {
	transport := &fakeTransport{}
	client := newClientMachine(transport, &fakeLogger{}, "pw", nil)

	peer := application.PeerID(1)
	if _, err := client.Start(peer); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := transport.last(); got.Data[0] != byte(protocol.TagHandshake) {
		t.Fatalf("expected Handshake sent first, got tag %d", got.Data[0])
	}

	// Server's Handshake reply, in the clear.
	serverHS, _ := codec.Serialize(protocol.Handshake{PublicKey: [32]byte{9}})
	tr := client.HandleEvent(application.Event{Data: serverHS})
	if tr.Kind != protocol.TransitionEstablish || tr.Next != protocol.StateConnConfirm {
		t.Fatalf("expected Establish->ConnConfirm, got %+v", tr)
	}
	client.Context().Cipher = tr.Cipher
	client.Context().Stage = protocol.StateConnConfirm

	okFrame := encryptFor(t, 0x5A, protocol.Bytes{Payload: protocol.OKMagic})
	tr = client.HandleEvent(application.Event{Data: okFrame})
	if tr.Kind != protocol.TransitionTo || tr.Next != protocol.StateAuth {
		t.Fatalf("expected To(Auth), got %+v", tr)
	}
	client.Context().Stage = protocol.StateAuth

	authOK := encryptFor(t, 0x5A, protocol.AuthResponse{Payload: protocol.OKMagic})
	tr = client.HandleEvent(application.Event{Data: authOK})
	if tr.Kind != protocol.TransitionActivateSession {
		t.Fatalf("expected ActivateSession, got %+v", tr)
	}

	last := transport.last()
	if last.Channel != application.ChannelSignal {
		t.Fatalf("expected initial resize on the signal channel, got %d", last.Channel)
	}
}

func TestClientMachine_AuthFailureRetriesThenDisconnects(t *testing.T) {
	transport := &fakeTransport{}
	client := newClientMachine(transport, &fakeLogger{}, "pw", nil)
	_, _ = client.Start(application.PeerID(1))
	client.Context().Cipher = fakeCipher{key: 0x5A}
	client.Context().Stage = protocol.StateAuth

	fail := encryptFor(t, 0x5A, protocol.AuthResponse{Payload: []byte("nope\x00")})

	tr := client.HandleEvent(application.Event{Data: fail})
	if tr.Kind != protocol.TransitionKeep {
		t.Fatalf("first failure should retry (Keep), got %+v", tr)
	}

	tr = client.HandleEvent(application.Event{Data: fail})
	if tr.Kind != protocol.TransitionDisconnect {
		t.Fatalf("second failure should disconnect (AuthMaxRetries=1), got %+v", tr)
	}
}

func TestClientMachine_HandshakeTimeoutDisconnects(t *testing.T) {
	transport := &fakeTransport{}
	client := newClientMachine(transport, &fakeLogger{}, "pw", nil)
	_, _ = client.Start(application.PeerID(1))
	client.Context().Deadline = time.Now().Add(-time.Millisecond)

	tr := client.CheckDeadline(time.Now())
	if tr.Kind != protocol.TransitionDisconnect || tr.Reason != protocol.ReasonTimeoutReached {
		t.Fatalf("expected timeout disconnect, got %+v", tr)
	}
}

func TestClientMachine_HandshakeRetriesExceedMax(t *testing.T) {
	transport := &fakeTransport{}
	client := newClientMachine(transport, &fakeLogger{}, "pw", nil)
	_, _ = client.Start(application.PeerID(1))

	var tr Transition
	for i := 0; i < 10; i++ {
		tr = client.HandleEvent(application.Event{Data: []byte{0xFF}})
		if tr.Kind == protocol.TransitionDisconnect {
			break
		}
	}
	if tr.Kind != protocol.TransitionDisconnect || tr.Reason != protocol.ReasonMaxRetriesExceeded {
		t.Fatalf("expected max-retries disconnect, got %+v", tr)
	}
}
