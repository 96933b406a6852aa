package session

import (
	"rush/application"
	"rush/domain/protocol"
)

// Teardown implements the shared disconnect taxonomy: when a cipher is
// already installed, it sends an encrypted Disconnect frame carrying
// reason before requesting the transport to disconnect the peer. Without a
// cipher (failure during Handshake), it skips straight to the transport
// disconnect. Both machines' runners call this on a TransitionDisconnect.
func Teardown(t application.Transport, peer application.PeerID, cipher application.Cipher, reason string) {
	if cipher != nil {
		_ = SendEncrypted(t, cipher, peer, protocol.Disconnect{Payload: []byte(reason)}, application.ChannelData)
	}
	_ = t.Disconnect(peer)
}
