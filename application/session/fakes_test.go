package session

import (
	"bytes"
	"context"
	"sync"

	"rush/application"
)

// fakeTransport is a minimal in-memory application.Transport double: Send
// appends to an in-memory log (each entry records its peer) instead of
// touching any network.
type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMessage

	disconnected []application.PeerID
	sendErr      error
}

type sentMessage struct {
	Peer    application.PeerID
	Data    []byte
	Channel application.Channel
	Flag    application.SendFlag
}

func (f *fakeTransport) Connect(_ context.Context, _ string) error { return nil }

func (f *fakeTransport) Service(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *fakeTransport) Recv() (application.Event, bool) { return application.Event{}, false }

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) Send(peer application.PeerID, data []byte, channel application.Channel, flag application.SendFlag) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.sent = append(f.sent, sentMessage{Peer: peer, Data: cp, Channel: channel, Flag: flag})
	return nil
}

func (f *fakeTransport) Disconnect(peer application.PeerID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, peer)
	return nil
}

func (f *fakeTransport) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

// fakeCipher xors plaintext with a fixed key-derived byte so tests can
// assert encrypt/decrypt actually ran without pulling in real AEAD.
type fakeCipher struct{ key byte }

func (c fakeCipher) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	for i, b := range plaintext {
		out[i] = b ^ c.key
	}
	return out, nil
}

func (c fakeCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	return c.Encrypt(ciphertext) // xor is self-inverse
}

type fakeCipherFactory struct{ key byte }

func (f fakeCipherFactory) FromSessionKeys(_ application.SessionKeys) (application.Cipher, error) {
	return fakeCipher{key: f.key}, nil
}

type fakeKeyAgreement struct{}

func (fakeKeyAgreement) Generate() (application.KeyPair, error) {
	return application.KeyPair{Public: [32]byte{1}, Private: [32]byte{2}}, nil
}

func (fakeKeyAgreement) DeriveSessionKeys(_ application.KeyPair, _ [32]byte, _ application.Role) (application.SessionKeys, error) {
	return application.SessionKeys{Rx: []byte{0xAA}, Tx: []byte{0xBB}}, nil
}

type fakeLogger struct{ lines []string }

func (l *fakeLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, format)
}

type fakePTY struct {
	writes  [][]byte
	signals []string
	resizes [][4]uint16
	closed  bool
}

func (p *fakePTY) Read(buf []byte) (int, error) { return 0, nil }
func (p *fakePTY) Write(data []byte) (int, error) {
	p.writes = append(p.writes, append([]byte(nil), data...))
	return len(data), nil
}
func (p *fakePTY) Resize(rows, cols, x, y uint16) error {
	p.resizes = append(p.resizes, [4]uint16{rows, cols, x, y})
	return nil
}
func (p *fakePTY) Signal(name string) error {
	p.signals = append(p.signals, name)
	return nil
}
func (p *fakePTY) Close() error { p.closed = true; return nil }

type fakePTYFactory struct {
	session *fakePTY
	err     error
}

func (f fakePTYFactory) Spawn(_ string) (application.PTYSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeAuthenticator struct {
	allow map[string]string // username -> password
}

func (a fakeAuthenticator) Authenticate(username, password string) error {
	if a.allow[username] == password {
		return nil
	}
	return bytes.ErrTooLarge // any non-nil sentinel; message text is irrelevant to callers
}

var (
	_ application.Transport     = (*fakeTransport)(nil)
	_ application.Cipher        = fakeCipher{}
	_ application.CipherFactory = fakeCipherFactory{}
	_ application.KeyAgreement  = fakeKeyAgreement{}
	_ application.Logger        = (*fakeLogger)(nil)
	_ application.PTYSession    = (*fakePTY)(nil)
	_ application.PTYFactory    = fakePTYFactory{}
	_ application.Authenticator = fakeAuthenticator{}
)
