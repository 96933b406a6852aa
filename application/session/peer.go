package session

import (
	"sync"
	"time"

	"rush/application"
	"rush/domain/protocol"
)

// PeerContext is the mutable per-transport-peer state both machines drive:
// connection stage, key material, retry/deadline bookkeeping, and (server
// side) the spawned PTY session.
type PeerContext struct {
	Peer  application.PeerID
	Stage protocol.State

	KeyPair application.KeyPair
	Cipher  application.Cipher

	Retries     int
	AuthRetries int
	Deadline    time.Time

	// Server-only.
	PTY      application.PTYSession
	Username string

	// PumpCancel stops this peer's PTY read pump when the peer is torn down.
	// Only the server sets it; the client runner stops its stdin/signal
	// pumps through its own context.
	PumpCancel func()
}

// Registry is a generic PeerID-keyed lookup, adapted from TunGo's
// DefaultSessionRepository[cs]: the same keyed-map-with-typed-zero-return
// pattern, specialized from (internal IP, external addr) to the single key
// a reliable-datagram transport already hands out. It is parameterized over
// the value a runner needs to recover per peer (a *ServerMachine for the
// multi-peer server runner) rather than fixed to *PeerContext, since a
// runner reaches a peer's PeerContext through its machine anyway.
type Registry[V any] struct {
	mu    sync.Mutex
	peers map[application.PeerID]V
}

func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{peers: make(map[application.PeerID]V)}
}

func (r *Registry[V]) Add(peer application.PeerID, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[peer] = v
}

func (r *Registry[V]) Get(peer application.PeerID) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.peers[peer]
	return v, ok
}

func (r *Registry[V]) Delete(peer application.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, peer)
}

func (r *Registry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// Range calls fn for every entry currently in the registry. fn must not
// call back into the registry; Range holds the lock for its duration.
func (r *Registry[V]) Range(fn func(peer application.PeerID, v V)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for peer, v := range r.peers {
		fn(peer, v)
	}
}
