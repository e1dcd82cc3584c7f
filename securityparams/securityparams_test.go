// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package securityparams

import (
	"crypto"
	"testing"

	"github.com/censys-oss/tls-engine/pkg/crypto/ciphersuite"
	"github.com/censys-oss/tls-engine/pkg/protocol"
)

func TestPRFHashFallsBackBelowTLS12(t *testing.T) {
	p := New(ConnectionEndClient)
	p.NegotiatedVersion = protocol.VersionTLS10
	if h := p.PRFHash(); h != 0 {
		t.Fatalf("expected the legacy combined PRF (zero Hash) below TLS 1.2, got %v", h)
	}

	p.NegotiatedVersion = protocol.VersionTLS12
	p.CipherSuiteID = 0xc02b // TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
	if h := p.PRFHash(); h != crypto.SHA256 {
		t.Fatalf("expected SHA256 for suite 0xc02b, got %v", h)
	}

	p.CipherSuiteID = 0xc030 // TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
	if h := p.PRFHash(); h != crypto.SHA384 {
		t.Fatalf("expected SHA384 for suite 0xc030, got %v", h)
	}
}

func TestPRFHashUnknownSuiteDefaultsSHA256(t *testing.T) {
	p := New(ConnectionEndServer)
	p.NegotiatedVersion = protocol.VersionTLS12
	p.CipherSuiteID = 0xffff
	if h := p.PRFHash(); h != crypto.SHA256 {
		t.Fatalf("expected SHA256 fallback for an unrecognized suite, got %v", h)
	}
}

func TestActivateResetsOnlyItsOwnDirectionSequenceNumber(t *testing.T) {
	p := New(ConnectionEndClient)

	if seq := p.NextLocalSequenceNumber(); seq != 0 {
		t.Fatalf("first local sequence number = %d, want 0", seq)
	}
	if seq := p.NextLocalSequenceNumber(); seq != 1 {
		t.Fatalf("second local sequence number = %d, want 1", seq)
	}
	if seq := p.NextRemoteSequenceNumber(); seq != 0 {
		t.Fatalf("first remote sequence number = %d, want 0", seq)
	}

	descriptor, ok := ciphersuite.Lookup(0xc02b)
	if !ok {
		t.Fatal("suite 0xc02b not registered")
	}
	suite := descriptor.New()

	p.ActivateLocal(suite)
	if seq := p.NextLocalSequenceNumber(); seq != 0 {
		t.Fatalf("local sequence number after ActivateLocal = %d, want reset to 0", seq)
	}
	if seq := p.NextRemoteSequenceNumber(); seq != 1 {
		t.Fatalf("ActivateLocal must not touch the remote sequence counter, got %d", seq)
	}

	if p.LocalCipher() == nil {
		t.Fatal("LocalCipher should be set after ActivateLocal")
	}
	if p.RemoteCipher() != nil {
		t.Fatal("RemoteCipher should remain nil until ActivateRemote")
	}
}

func TestHandshakeCompletedIsIdempotent(t *testing.T) {
	p := New(ConnectionEndServer)
	if p.HandshakeCompleted() {
		t.Fatal("a fresh Parameters must not report the handshake complete")
	}
	p.SetHandshakeCompleted()
	p.SetHandshakeCompleted()
	if !p.HandshakeCompleted() {
		t.Fatal("expected HandshakeCompleted to report true after SetHandshakeCompleted")
	}
}

func TestIsClient(t *testing.T) {
	if !New(ConnectionEndClient).IsClient() {
		t.Fatal("ConnectionEndClient should report IsClient() == true")
	}
	if New(ConnectionEndServer).IsClient() {
		t.Fatal("ConnectionEndServer should report IsClient() == false")
	}
}
