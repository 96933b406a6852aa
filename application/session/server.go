package session

import (
	"time"

	"rush/application"
	"rush/domain/codec"
	"rush/domain/protocol"
	"rush/infrastructure/settings"
)

// ServerDeps collects the server machine's pluggable collaborators.
type ServerDeps struct {
	Transport     application.Transport
	KeyAgreement  application.KeyAgreement
	CipherFactory application.CipherFactory
	Authenticator application.Authenticator
	PTYFactory    application.PTYFactory
	Logger        application.Logger

	// StartPump is invoked once Connected is entered with an authenticated
	// PTYSession; the runner wires this to the PTY read pump and returns a
	// cancel function stored on the PeerContext.
	StartPump func(peer application.PeerID, cipher application.Cipher, pty application.PTYSession) (cancel func())
}

// ServerMachine mirrors ClientMachine on the server side: Handshake ->
// ConnConfirm -> Auth (PAM + PTY spawn) -> Connected.
type ServerMachine struct {
	deps ServerDeps
	ctx  *PeerContext
}

func NewServerMachine(deps ServerDeps) *ServerMachine {
	return &ServerMachine{deps: deps}
}

// Start is driven by the runner on EventConnect: it arms the Handshake
// deadline and waits for the client's public key (the server never speaks
// first).
func (m *ServerMachine) Start(peer application.PeerID) (Transition, error) {
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
	return Keep(), nil
}

func (m *ServerMachine) CheckDeadline(now time.Time) Transition {
	if m.ctx.Stage == protocol.StateConnected {
		return Keep()
	}
	if now.After(m.ctx.Deadline) {
		return Disconnect(protocol.ReasonTimeoutReached)
	}
	return Keep()
}

// HandleEvent mirrors ClientMachine.HandleEvent: it dispatches on stage and
// applies the resulting Transition's stage/cipher change before returning.
func (m *ServerMachine) HandleEvent(ev application.Event) Transition {
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

func (m *ServerMachine) handleHandshake(ev application.Event) Transition {
	pkt, err := codec.Deserialize(ev.Data)
	if err != nil {
		return m.retryOrDisconnect()
	}
	hs, ok := pkt.(protocol.Handshake)
	if !ok {
		return m.retryOrDisconnect()
	}

	keys, err := m.deps.KeyAgreement.DeriveSessionKeys(m.ctx.KeyPair, hs.PublicKey, application.RoleServer)
	if err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise)
	}
	cipher, err := m.deps.CipherFactory.FromSessionKeys(keys)
	if err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise)
	}
	m.ctx.Cipher = cipher

	payload, err := codec.Serialize(protocol.Handshake{PublicKey: m.ctx.KeyPair.Public})
	if err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise)
	}
	if err := m.deps.Transport.Send(m.ctx.Peer, payload, application.ChannelData, application.Reliable); err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise)
	}
	m.ctx.Deadline = time.Now().Add(settings.ConnConfirmDeadline)
	return Establish(cipher, protocol.StateConnConfirm)
}

func (m *ServerMachine) handleConnConfirm(ev application.Event) Transition {
	pkt, err := DecryptAndDeserialize(m.ctx.Cipher, ev.Data)
	if err != nil {
		return Keep()
	}
	b, ok := pkt.(protocol.Bytes)
	if !ok || !bytesEqual(b.Payload, protocol.ConfirmMagic) {
		return Keep()
	}
	if err := SendEncrypted(m.deps.Transport, m.ctx.Cipher, m.ctx.Peer, protocol.Bytes{Payload: protocol.OKMagic}, application.ChannelData); err != nil {
		return Disconnect(protocol.ReasonConnectionCompromise)
	}
	m.ctx.Deadline = time.Now().Add(settings.ConnConfirmDeadline)
	return To(protocol.StateAuth)
}

func (m *ServerMachine) handleAuth(ev application.Event) Transition {
	pkt, err := DecryptAndDeserialize(m.ctx.Cipher, ev.Data)
	if err != nil {
		return Keep()
	}
	req, ok := pkt.(protocol.AuthRequest)
	if !ok {
		return Keep()
	}

	if err := m.deps.Authenticator.Authenticate(req.Username, req.Password); err != nil {
		reason := "Failed to authenticate user '" + req.Username + "'."
		_ = SendEncrypted(m.deps.Transport, m.ctx.Cipher, m.ctx.Peer, protocol.AuthResponse{Payload: []byte(reason + "\x00")}, application.ChannelData)
		if m.ctx.AuthRetries >= settings.AuthMaxRetries {
			return Disconnect(reason)
		}
		m.ctx.AuthRetries++
		return Keep()
	}

	ptySession, err := m.deps.PTYFactory.Spawn(req.Username)
	if err != nil {
		reason := "Failed to start session for user '" + req.Username + "'."
		_ = SendEncrypted(m.deps.Transport, m.ctx.Cipher, m.ctx.Peer, protocol.AuthResponse{Payload: []byte(reason + "\x00")}, application.ChannelData)
		return Disconnect(reason)
	}

	if err := SendEncrypted(m.deps.Transport, m.ctx.Cipher, m.ctx.Peer, protocol.AuthResponse{Payload: protocol.OKMagic}, application.ChannelData); err != nil {
		_ = ptySession.Close()
		return Disconnect(protocol.ReasonConnectionCompromise)
	}

	m.ctx.Username = req.Username
	m.ctx.PTY = ptySession
	m.ctx.PumpCancel = m.deps.StartPump(m.ctx.Peer, m.ctx.Cipher, ptySession)
	return ActivateSession()
}

func (m *ServerMachine) handleConnected(ev application.Event) Transition {
	pkt, err := DecryptAndDeserialize(m.ctx.Cipher, ev.Data)
	if err != nil {
		return Keep()
	}
	switch p := pkt.(type) {
	case protocol.Bytes:
		if _, err := m.ctx.PTY.Write(p.Payload); err != nil {
			m.deps.Logger.Printf("pty write for %s failed: %v", m.ctx.Username, err)
		}
	case protocol.Signal:
		name := string(p.Payload)
		if !protocol.IsValidSignalName(name) {
			return Keep()
		}
		if err := m.ctx.PTY.Signal(name); err != nil {
			m.deps.Logger.Printf("pty signal %s for %s failed: %v", name, m.ctx.Username, err)
		}
	case protocol.Resize:
		if err := m.ctx.PTY.Resize(p.Rows, p.Cols, p.XPixels, p.YPixels); err != nil {
			m.deps.Logger.Printf("pty resize for %s failed: %v", m.ctx.Username, err)
		}
	case protocol.Disconnect:
		return Disconnect(string(p.Payload))
	}
	return Keep()
}

func (m *ServerMachine) retryOrDisconnect() Transition {
	m.ctx.Retries++
	if m.ctx.Retries > settings.HandshakeMaxRetries {
		return Disconnect(protocol.ReasonMaxRetriesExceeded)
	}
	return Keep()
}

func (m *ServerMachine) Context() *PeerContext { return m.ctx }
