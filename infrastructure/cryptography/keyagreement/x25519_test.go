package keyagreement

import (
	"bytes"
	"testing"

	"rush/application"
)

func TestDeriveSessionKeys_Symmetry(t *testing.T) {
	ka := New()

	clientPair, err := ka.Generate()
	if err != nil {
		t.Fatalf("generate client pair: %v", err)
	}
	serverPair, err := ka.Generate()
	if err != nil {
		t.Fatalf("generate server pair: %v", err)
	}

	clientKeys, err := ka.DeriveSessionKeys(clientPair, serverPair.Public, application.RoleClient)
	if err != nil {
		t.Fatalf("derive client keys: %v", err)
	}
	serverKeys, err := ka.DeriveSessionKeys(serverPair, clientPair.Public, application.RoleServer)
	if err != nil {
		t.Fatalf("derive server keys: %v", err)
	}

	if !bytes.Equal(clientKeys.Tx, serverKeys.Rx) {
		t.Fatal("client.Tx != server.Rx")
	}
	if !bytes.Equal(serverKeys.Tx, clientKeys.Rx) {
		t.Fatal("server.Tx != client.Rx")
	}
	if bytes.Equal(clientKeys.Tx, clientKeys.Rx) {
		t.Fatal("client Tx and Rx must not collide")
	}
}

func TestGenerate_ProducesDistinctKeyPairs(t *testing.T) {
	ka := New()
	a, err := ka.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := ka.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a.Public == b.Public {
		t.Fatal("expected distinct ephemeral public keys")
	}
}
