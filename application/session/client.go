package session

import (
	"fmt"
	"io"
	"time"

	"rush/application"
	"rush/domain/codec"
	"rush/domain/protocol"
	"rush/infrastructure/settings"
)

// ClientDeps collects the client machine's pluggable collaborators.
type ClientDeps struct {
	Transport      application.Transport
	KeyAgreement   application.KeyAgreement
	CipherFactory  application.CipherFactory
	Logger         application.Logger
	Stdout         io.Writer
	PasswordPrompt func() (string, error)
	WindowSize     func() (rows, cols, xPixels, yPixels uint16, err error)
}

// ClientMachine drives one peer through Handshake -> ConnConfirm -> Auth ->
// Connected.
type ClientMachine struct {
	deps     ClientDeps
	ctx      *PeerContext
	username string
}

func NewClientMachine(deps ClientDeps, username string) *ClientMachine {
	return &ClientMachine{deps: deps, username: username}
}

// Start is driven by the runner on EventConnect: it sends the client's
// ephemeral public key in the clear and arms the Handshake deadline.
func (m *ClientMachine) Start(peer application.PeerID) (Transition, error) {
	own, err := m.deps.KeyAgreement.Generate()
	if err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise), err
	}
	m.ctx = &PeerContext{
		Peer:     peer,
		Stage:    protocol.StateHandshake,
		KeyPair:  own,
		Deadline: time.Now().Add(settings.HandshakeDeadline),
	}

	payload, err := codec.Serialize(protocol.Handshake{PublicKey: own.Public})
	if err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise), err
	}
	if err := m.deps.Transport.Send(peer, payload, application.ChannelData, application.Reliable); err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise), err
	}
	return Keep(), nil
}

// CheckDeadline must be polled by the runner once per event-loop tick; it
// is how the state machine observes elapsed wall-clock without blocking.
func (m *ClientMachine) CheckDeadline(now time.Time) Transition {
	if m.ctx.Stage == protocol.StateConnected {
		return Keep()
	}
	if now.After(m.ctx.Deadline) {
		return Disconnect(protocol.ReasonTimeoutReached)
	}
	return Keep()
}

// HandleEvent processes one EventReceive for this peer, applying the
// resulting Transition's stage/cipher change to the peer's context before
// returning it so the runner only needs to act on side effects (raw mode,
// pump start, teardown).
func (m *ClientMachine) HandleEvent(ev application.Event) Transition {
	var tr Transition
	switch m.ctx.Stage {
	case protocol.StateHandshake:
		tr = m.handleHandshake(ev)
	case protocol.StateConnConfirm:
		tr = m.handleConnConfirm(ev)
	case protocol.StateAuth:
		tr = m.handleAuth(ev)
	case protocol.StateConnected:
		tr = m.handleConnected(ev)
	default:
		tr = Keep()
	}
	applyTransition(m.ctx, tr)
	return tr
}

// applyTransition mutates ctx per tr.Kind. TransitionDisconnect is left to
// the runner: it needs ctx's current Cipher to send the encrypted teardown
// frame before anything is torn down.
func applyTransition(ctx *PeerContext, tr Transition) {
	switch tr.Kind {
	case protocol.TransitionTo, protocol.TransitionActivateSession:
		ctx.Stage = tr.Next
	case protocol.TransitionEstablish:
		ctx.Stage = tr.Next
		ctx.Cipher = tr.Cipher
	}
}

func (m *ClientMachine) handleHandshake(ev application.Event) Transition {
	pkt, err := codec.Deserialize(ev.Data)
	if err != nil {
		return m.retryOrDisconnect()
	}
	hs, ok := pkt.(protocol.Handshake)
	if !ok {
		return m.retryOrDisconnect()
	}

	keys, err := m.deps.KeyAgreement.DeriveSessionKeys(m.ctx.KeyPair, hs.PublicKey, application.RoleClient)
	if err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise)
	}
	cipher, err := m.deps.CipherFactory.FromSessionKeys(keys)
	if err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise)
	}
	m.ctx.Cipher = cipher

	if err := m.sendEncrypted(protocol.Bytes{Payload: protocol.ConfirmMagic}, application.ChannelData); err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise)
	}
	m.ctx.Deadline = time.Now().Add(settings.ConnConfirmDeadline)
	return Establish(cipher, protocol.StateConnConfirm)
}

func (m *ClientMachine) handleConnConfirm(ev application.Event) Transition {
	pkt, err := m.decryptAndDeserialize(ev.Data)
	if err != nil {
		return Keep()
	}
	switch p := pkt.(type) {
	case protocol.Disconnect:
		return Disconnect(string(p.Payload))
	case protocol.Bytes:
		if !bytesEqual(p.Payload, protocol.OKMagic) {
			return Keep()
		}
	default:
		return Keep()
	}

	password, err := m.deps.PasswordPrompt()
	if err != nil {
		return Disconnect("Failed to read password")
	}
	if err := m.sendEncrypted(protocol.AuthRequest{Username: m.username, Password: password}, application.ChannelData); err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise)
	}
	m.ctx.Deadline = time.Now().Add(settings.ConnConfirmDeadline)
	return To(protocol.StateAuth)
}

func (m *ClientMachine) handleAuth(ev application.Event) Transition {
	pkt, err := m.decryptAndDeserialize(ev.Data)
	if err != nil {
		return Keep()
	}
	switch p := pkt.(type) {
	case protocol.Disconnect:
		return Disconnect(string(p.Payload))
	case protocol.AuthResponse:
		if bytesEqual(p.Payload, protocol.OKMagic) {
			m.sendInitialResize()
			return ActivateSession()
		}
		m.deps.Logger.Printf("authentication failed: %s", p.Payload)
		if m.ctx.AuthRetries >= settings.AuthMaxRetries {
			return Disconnect("Maximum retries exceeded")
		}
		m.ctx.AuthRetries++
		password, err := m.deps.PasswordPrompt()
		if err != nil {
			return Disconnect("Failed to read password")
		}
		if err := m.sendEncrypted(protocol.AuthRequest{Username: m.username, Password: password}, application.ChannelData); err != nil {
			return Disconnect(protocol.ReasonConnectionCompromise)
		}
		return Keep()
	default:
		return Keep()
	}
}

func (m *ClientMachine) handleConnected(ev application.Event) Transition {
	pkt, err := m.decryptAndDeserialize(ev.Data)
	if err != nil {
		return Keep()
	}
	switch p := pkt.(type) {
	case protocol.Bytes:
		_, _ = m.deps.Stdout.Write(p.Payload)
		return Keep()
	case protocol.Disconnect:
		return Disconnect(string(p.Payload))
	default:
		return Keep()
	}
}

func (m *ClientMachine) sendInitialResize() {
	rows, cols, x, y, err := m.deps.WindowSize()
	if err != nil {
		m.deps.Logger.Printf("window size query failed: %v", err)
		return
	}
	if err := m.sendEncrypted(protocol.Resize{Rows: rows, Cols: cols, XPixels: x, YPixels: y}, application.ChannelSignal); err != nil {
		m.deps.Logger.Printf("initial resize send failed: %v", err)
	}
}

func (m *ClientMachine) retryOrDisconnect() Transition {
	m.ctx.Retries++
	if m.ctx.Retries > settings.HandshakeMaxRetries {
		return Disconnect(protocol.ReasonMaxRetriesExceeded)
	}
	return Keep()
}

func (m *ClientMachine) sendEncrypted(pkt protocol.Packet, channel application.Channel) error {
	return SendEncrypted(m.deps.Transport, m.ctx.Cipher, m.ctx.Peer, pkt, channel)
}

func (m *ClientMachine) decryptAndDeserialize(frame []byte) (protocol.Packet, error) {
	return DecryptAndDeserialize(m.ctx.Cipher, frame)
}

// Context exposes the peer's mutable state to the runner for teardown and
// retry bookkeeping. The runner never mutates it directly.
func (m *ClientMachine) Context() *PeerContext { return m.ctx }

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func SendEncrypted(t application.Transport, cipher application.Cipher, peer application.PeerID, pkt protocol.Packet, channel application.Channel) error {
	plaintext, err := codec.Serialize(pkt)
	if err != nil {
		return err
	}
	ciphertext, err := cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", pkt.Tag(), err)
	}
	return t.Send(peer, ciphertext, channel, application.Reliable)
}

func DecryptAndDeserialize(cipher application.Cipher, frame []byte) (protocol.Packet, error) {
	plaintext, err := cipher.Decrypt(frame)
	if err != nil {
		return nil, err
	}
	return codec.Deserialize(plaintext)
}
