// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package crypto

import (
	gocrypto "crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/censys-oss/tls-engine/pkg/crypto/signaturehash"
)

func TestDefaultCryptoSignAndVerifyAgree(t *testing.T) {
	c := NewDefault()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	algo := signaturehash.Algorithm{Hash: signaturehash.HashSHA256, Sig: signaturehash.SigECDSA}
	message := []byte("server key exchange params")

	sig, err := c.Sign(algo, key, message)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := c.VerifySignature(algo, &key.PublicKey, message, sig); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if err := c.VerifySignature(algo, &key.PublicKey, []byte("tampered"), sig); err == nil {
		t.Fatal("expected verification to fail over a tampered message")
	}
}

func TestDefaultCryptoMasterSecretVariants(t *testing.T) {
	c := NewDefault()
	preMasterSecret := []byte("0123456789012345678901234567890123456789012345")
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)

	classic, err := c.MasterSecret(preMasterSecret, clientRandom, serverRandom, nil, gocrypto.SHA256)
	if err != nil {
		t.Fatalf("MasterSecret (classic): %v", err)
	}
	if len(classic) != 48 {
		t.Fatalf("expected a 48-byte master secret, got %d", len(classic))
	}

	sessionHash := make([]byte, 32)
	extended, err := c.MasterSecret(preMasterSecret, clientRandom, serverRandom, sessionHash, gocrypto.SHA256)
	if err != nil {
		t.Fatalf("MasterSecret (extended): %v", err)
	}
	if len(extended) != 48 {
		t.Fatalf("expected a 48-byte extended master secret, got %d", len(extended))
	}
	if string(classic) == string(extended) {
		t.Fatal("expected the extended master secret to differ from the classic derivation")
	}
}

func TestDefaultCryptoKeyBlockAndVerifyData(t *testing.T) {
	c := NewDefault()
	masterSecret := make([]byte, 48)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)

	keys, err := c.KeyBlock(masterSecret, clientRandom, serverRandom, 20, 16, 4, gocrypto.SHA256)
	if err != nil {
		t.Fatalf("KeyBlock: %v", err)
	}
	if len(keys.ClientWriteKey) != 16 || len(keys.ServerWriteKey) != 16 {
		t.Fatalf("unexpected write key lengths: client=%d server=%d", len(keys.ClientWriteKey), len(keys.ServerWriteKey))
	}

	transcript := []byte("handshake transcript hash")
	clientVerify, err := c.VerifyDataClient(masterSecret, transcript, gocrypto.SHA256)
	if err != nil {
		t.Fatalf("VerifyDataClient: %v", err)
	}
	serverVerify, err := c.VerifyDataServer(masterSecret, transcript, gocrypto.SHA256)
	if err != nil {
		t.Fatalf("VerifyDataServer: %v", err)
	}
	if len(clientVerify) != 12 || len(serverVerify) != 12 {
		t.Fatalf("expected 12-byte verify_data, got client=%d server=%d", len(clientVerify), len(serverVerify))
	}
	if string(clientVerify) == string(serverVerify) {
		t.Fatal("client and server verify_data should differ (different label)")
	}
}

func TestDefaultCryptoRandomBytesFillsBuffer(t *testing.T) {
	c := NewDefault()
	b := make([]byte, 32)
	if err := c.RandomBytes(b); err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	var zero [32]byte
	if string(b) == string(zero[:]) {
		t.Fatal("expected RandomBytes to produce non-zero output (astronomically unlikely otherwise)")
	}
}

func TestDefaultCryptoCipherSuitesNonEmpty(t *testing.T) {
	c := NewDefault()
	if len(c.CipherSuites()) == 0 {
		t.Fatal("expected at least one registered cipher suite descriptor")
	}
}
