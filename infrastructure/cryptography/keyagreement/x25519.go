// Package keyagreement implements application.KeyAgreement with ephemeral
// X25519 key pairs and an HKDF-SHA256 key schedule, adapted from
// infrastructure/cryptography/primitives.DefaultKeyDeriver.
package keyagreement

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"rush/application"
	"rush/domain/protocol"
)

// hkdfInfoClientToServer/ServerToClient label the two directional keys
// derived from the single X25519 shared secret, so a passive observer of
// one direction's traffic gains nothing about the other's key.
var (
	hkdfInfoClientToServer = []byte("rush c2s")
	hkdfInfoServerToClient = []byte("rush s2c")
)

// X25519 implements application.KeyAgreement.
type X25519 struct{}

func New() *X25519 { return &X25519{} }

func (X25519) Generate() (application.KeyPair, error) {
	var kp application.KeyPair
	if _, err := io.ReadFull(rand.Reader, kp.Private[:]); err != nil {
		return kp, protocol.NewTunnelError(protocol.KindKeyAgreement, fmt.Errorf("generate key pair: %w", err))
	}
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return kp, protocol.NewTunnelError(protocol.KindKeyAgreement, fmt.Errorf("derive public key: %w", err))
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// DeriveSessionKeys computes the shared secret via X25519 ECDH and expands
// it into two directional keys. On RoleServer, rx/tx are swapped relative
// to RoleClient so that each side's Tx equals the peer's Rx.
func (X25519) DeriveSessionKeys(own application.KeyPair, peerPublic [32]byte, role application.Role) (application.SessionKeys, error) {
	shared, err := curve25519.X25519(own.Private[:], peerPublic[:])
	if err != nil {
		return application.SessionKeys{}, protocol.NewTunnelError(protocol.KindKeyAgreement,
			fmt.Errorf("ecdh: %w", err))
	}

	c2s, err := expand(shared, hkdfInfoClientToServer)
	if err != nil {
		return application.SessionKeys{}, err
	}
	s2c, err := expand(shared, hkdfInfoServerToClient)
	if err != nil {
		return application.SessionKeys{}, err
	}

	if role == application.RoleServer {
		return application.SessionKeys{Rx: c2s, Tx: s2c}, nil
	}
	return application.SessionKeys{Rx: s2c, Tx: c2s}, nil
}

func expand(sharedSecret, info []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, sharedSecret, nil, info)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, protocol.NewTunnelError(protocol.KindKeyAgreement, fmt.Errorf("hkdf expand: %w", err))
	}
	return key, nil
}
