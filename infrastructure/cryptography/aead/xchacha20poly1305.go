// Package aead implements application.Cipher over XChaCha20-Poly1305,
// adapted from the directional-key mapping in
// infrastructure/cryptography/chacha20/aead_builder.go and the 24-byte
// nonce usage in infrastructure/cryptography/noise/cookie.go.
package aead

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"rush/application"
	"rush/domain/protocol"
)

// Cipher holds one peer's directional session keys. Immutable after
// construction; safe to share by reference across pumps.
type Cipher struct {
	send cipher.AEAD
	recv cipher.AEAD
}

// Factory implements application.CipherFactory.
type Factory struct{}

func NewFactory() Factory { return Factory{} }

func (Factory) FromSessionKeys(keys application.SessionKeys) (application.Cipher, error) {
	send, err := chacha20poly1305.NewX(keys.Tx)
	if err != nil {
		return nil, protocol.NewTunnelError(protocol.KindKeyAgreement, fmt.Errorf("new send AEAD: %w", err))
	}
	recv, err := chacha20poly1305.NewX(keys.Rx)
	if err != nil {
		return nil, protocol.NewTunnelError(protocol.KindKeyAgreement, fmt.Errorf("new recv AEAD: %w", err))
	}
	return &Cipher{send: send, recv: recv}, nil
}

// Encrypt prepends a fresh random 24-byte nonce: nonce || ct || tag.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, protocol.NewTunnelError(protocol.KindAead, fmt.Errorf("generate nonce: %w", err))
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+chacha20poly1305.Overhead)
	out = append(out, nonce...)
	out = c.send.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Decrypt validates the tag and returns the plaintext. A failure here is
// fatal to this specific frame only — never to the session.
func (c *Cipher) Decrypt(frame []byte) ([]byte, error) {
	if len(frame) < chacha20poly1305.NonceSizeX {
		return nil, protocol.NewTunnelError(protocol.KindAead, fmt.Errorf("frame shorter than nonce (%d bytes)", len(frame)))
	}
	nonce := frame[:chacha20poly1305.NonceSizeX]
	ciphertext := frame[chacha20poly1305.NonceSizeX:]
	plaintext, err := c.recv.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, protocol.NewTunnelError(protocol.KindAead, fmt.Errorf("open: %w", err))
	}
	return plaintext, nil
}
