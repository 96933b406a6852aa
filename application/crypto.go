package application

// Role distinguishes which side of the handshake a KeyAgreement is running
// as; directional session keys mirror across the two roles.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// KeyPair is an ephemeral X25519 key pair, created per-process and never
// persisted.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// SessionKeys is the directional (rx, tx) key pair derived from a completed
// key agreement. Each party's Tx equals its peer's Rx.
type SessionKeys struct {
	Rx []byte
	Tx []byte
}

// KeyAgreement generates ephemeral key pairs and derives directional
// session keys from a completed X25519 exchange.
type KeyAgreement interface {
	Generate() (KeyPair, error)
	DeriveSessionKeys(own KeyPair, peerPublic [32]byte, role Role) (SessionKeys, error)
}

// Cipher is an established, immutable AEAD channel. It is safe to share by
// reference across goroutines (no mutable state after construction).
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// CipherFactory builds a Cipher from directional session keys.
type CipherFactory interface {
	FromSessionKeys(keys SessionKeys) (Cipher, error)
}
