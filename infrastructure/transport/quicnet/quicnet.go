// Package quicnet binds application.Transport to github.com/quic-go/quic-go,
// grounded on postalsys-Muti-Metroo's internal/transport/quic.go: a logical
// channel maps to one bidirectional QUIC stream opened per channel per
// peer, and SendFlag Unreliable maps to a QUIC datagram (RFC 9221) instead
// of a stream write.
package quicnet

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"rush/application"
	"rush/domain/protocol"
	"rush/infrastructure/settings"
)

const (
	alpnProtocol       = "rush/1"
	maxIdleTimeout     = 60 * time.Second
	keepAlivePeriod    = 30 * time.Second
	maxIncomingStreams = 16
	frameHeaderSize    = 4 // uint32 LE length prefix for stream-framed sends
)

// peer tracks one QUIC connection and the outgoing streams opened for it,
// one per application.Channel, lazily created on first reliable Send.
// Streams accepted from the remote side are read by pumpOneStream and are
// not stored here.
type peer struct {
	id      application.PeerID
	conn    quic.Connection
	mu      sync.Mutex
	streams [application.MaxChannels]quic.Stream
}

// Transport implements application.Transport. A single instance serves
// either the client role (Connect dials one peer) or the server role
// (Service accepts many); each side owns exactly one Transport instance.
type Transport struct {
	tlsConfig  *tls.Config
	listenAddr string

	listener *quic.Listener

	mu      sync.Mutex
	peers   map[application.PeerID]*peer
	nextID  atomic.Uint64
	events  chan application.Event
	closed  atomic.Bool
}

// NewClient returns a Transport for dialing a single remote server.
func NewClient(tlsConfig *tls.Config) *Transport {
	return newTransport(tlsConfig, "")
}

// NewServer returns a Transport that listens on addr and accepts peers.
func NewServer(tlsConfig *tls.Config, addr string) *Transport {
	return newTransport(tlsConfig, addr)
}

func newTransport(tlsConfig *tls.Config, listenAddr string) *Transport {
	cfg := tlsConfig.Clone()
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = []string{alpnProtocol}
	}
	return &Transport{
		tlsConfig:  cfg,
		listenAddr: listenAddr,
		peers:      make(map[application.PeerID]*peer),
		events:     make(chan application.Event, settings.EventQueueCapacity),
	}
}

func (t *Transport) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:        maxIdleTimeout,
		KeepAlivePeriod:       keepAlivePeriod,
		MaxIncomingStreams:    maxIncomingStreams,
		EnableDatagrams:       true,
	}
}

// Connect dials addr and registers the resulting connection as a peer,
// emitting EventConnect once the handshake completes.
func (t *Transport) Connect(ctx context.Context, addr string) error {
	conn, err := quic.DialAddr(ctx, addr, t.tlsConfig, t.quicConfig())
	if err != nil {
		return protocol.NewTunnelError(protocol.KindTransportInit, fmt.Errorf("quic dial %s: %w", addr, err))
	}
	p := t.register(conn)
	go t.pump(p)
	t.emit(application.Event{Kind: application.EventConnect, Peer: p.id})
	return nil
}

// Service runs the transport's accept loop. For a client Transport (no
// listenAddr) it simply blocks until ctx is done, since all I/O happens in
// per-peer pump goroutines started by Connect/accept.
func (t *Transport) Service(ctx context.Context) error {
	if t.listenAddr == "" {
		<-ctx.Done()
		return nil
	}

	listener, err := quic.ListenAddr(t.listenAddr, t.tlsConfig, t.quicConfig())
	if err != nil {
		return protocol.NewTunnelError(protocol.KindTransportInit, fmt.Errorf("quic listen %s: %w", t.listenAddr, err))
	}
	t.listener = listener
	defer listener.Close()

	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return protocol.NewTunnelError(protocol.KindTransportInit, fmt.Errorf("quic accept: %w", err))
		}
		p := t.register(conn)
		go t.pump(p)
		t.emit(application.Event{Kind: application.EventConnect, Peer: p.id})
	}
}

func (t *Transport) register(conn quic.Connection) *peer {
	id := application.PeerID(t.nextID.Add(1))
	p := &peer{id: id, conn: conn}
	t.mu.Lock()
	t.peers[id] = p
	t.mu.Unlock()
	return p
}

func (t *Transport) lookup(id application.PeerID) (*peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	return p, ok
}

func (t *Transport) emit(ev application.Event) {
	if t.closed.Load() {
		return
	}
	select {
	case t.events <- ev:
	default:
		// Event queue saturated; drop rather than block the pump. A
		// saturated queue means the application loop has stalled, and
		// the transport should not wedge on its behalf.
	}
}

// pump drains incoming streams and datagrams for one peer until its
// connection closes, translating each into an EventReceive/EventDisconnect.
// The two readers run under an errgroup, whose Wait returns once both have
// returned; both stop when the connection closes.
func (t *Transport) pump(p *peer) {
	var g errgroup.Group
	g.Go(func() error { return t.pumpStreams(p) })
	g.Go(func() error { return t.pumpDatagrams(p) })
	_ = g.Wait()

	t.mu.Lock()
	delete(t.peers, p.id)
	t.mu.Unlock()

	code := 0
	if p.conn.Context().Err() != nil {
		code = 1
	}
	t.emit(application.Event{Kind: application.EventDisconnect, Peer: p.id, Code: code})
}

func (t *Transport) pumpStreams(p *peer) error {
	for {
		stream, err := p.conn.AcceptStream(context.Background())
		if err != nil {
			return err
		}
		go t.pumpOneStream(p, stream)
	}
}

func (t *Transport) pumpOneStream(p *peer, stream quic.Stream) {
	channel, err := readChannelHeader(stream)
	if err != nil {
		return
	}
	for {
		frame, err := readFrame(stream)
		if err != nil {
			return
		}
		t.emit(application.Event{Kind: application.EventReceive, Peer: p.id, Channel: channel, Data: frame})
	}
}

func (t *Transport) pumpDatagrams(p *peer) error {
	for {
		data, err := p.conn.ReceiveDatagram(context.Background())
		if err != nil {
			return err
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		t.emit(application.Event{Kind: application.EventReceive, Peer: p.id, Channel: application.ChannelData, Data: cp})
	}
}

// Recv non-blockingly dequeues the next event.
func (t *Transport) Recv() (application.Event, bool) {
	select {
	case ev := <-t.events:
		return ev, true
	default:
		return application.Event{}, false
	}
}

// Send writes data to peer on channel, as a length-prefixed stream frame
// when flag is Reliable or a raw datagram when Unreliable.
func (t *Transport) Send(peerID application.PeerID, data []byte, channel application.Channel, flag application.SendFlag) error {
	p, ok := t.lookup(peerID)
	if !ok {
		return protocol.NewTunnelError(protocol.KindTransportPeer, fmt.Errorf("unknown peer %d", peerID))
	}

	if flag == application.Unreliable {
		if err := p.conn.SendDatagram(data); err != nil {
			return protocol.NewTunnelError(protocol.KindTransportPeer, fmt.Errorf("send datagram: %w", err))
		}
		return nil
	}

	stream, err := t.streamFor(p, channel)
	if err != nil {
		return err
	}
	if err := writeFrame(stream, data); err != nil {
		return protocol.NewTunnelError(protocol.KindTransportPeer, fmt.Errorf("send channel %d: %w", channel, err))
	}
	return nil
}

// streamFor returns the cached outgoing stream for channel, opening one on
// first use. Each channel gets exactly one bidirectional stream per peer,
// so ordering within a channel holds while different channels never
// head-of-line-block each other. A freshly opened stream is tagged with a
// one-byte channel header before any frame, so the accepting side's
// pumpOneStream can recover which application.Channel it corresponds to.
func (t *Transport) streamFor(p *peer, channel application.Channel) (quic.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.streams[channel]; s != nil {
		return s, nil
	}
	stream, err := p.conn.OpenStreamSync(context.Background())
	if err != nil {
		return nil, protocol.NewTunnelError(protocol.KindTransportPeer, fmt.Errorf("open stream for channel %d: %w", channel, err))
	}
	if err := writeChannelHeader(stream, channel); err != nil {
		return nil, protocol.NewTunnelError(protocol.KindTransportPeer, fmt.Errorf("write channel header for channel %d: %w", channel, err))
	}
	p.streams[channel] = stream
	return stream, nil
}

// Disconnect closes peer's connection with an application error code,
// triggering its pump goroutines to unwind and emit EventDisconnect.
func (t *Transport) Disconnect(peerID application.PeerID) error {
	p, ok := t.lookup(peerID)
	if !ok {
		return nil
	}
	return p.conn.CloseWithError(0, "disconnect")
}

// Close shuts down the listener, if any, and every tracked peer connection.
func (t *Transport) Close() error {
	t.closed.Store(true)
	if t.listener != nil {
		_ = t.listener.Close()
	}
	t.mu.Lock()
	peers := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.mu.Unlock()
	for _, p := range peers {
		_ = p.conn.CloseWithError(0, "transport closing")
	}
	return nil
}
