// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package callbacks

import (
	"crypto/tls"
	"testing"
)

func TestStaticKeyManagerNoCertificate(t *testing.T) {
	var km StaticKeyManager
	if _, err := km.GetCertificate(&ClientHelloInfo{}); err != ErrNoCertificates {
		t.Fatalf("expected ErrNoCertificates, got %v", err)
	}
	if _, err := km.GetClientCertificate(&CertificateRequestInfo{}); err != ErrNoCertificates {
		t.Fatalf("expected ErrNoCertificates, got %v", err)
	}
}

func TestStaticKeyManagerReturnsCertificate(t *testing.T) {
	cert := &tls.Certificate{}
	km := &StaticKeyManager{Certificate: cert}

	got, err := km.GetCertificate(&ClientHelloInfo{ServerName: "example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if got != cert {
		t.Fatal("expected the same certificate pointer back")
	}
}

func TestChainTrustManagerInsecureSkipVerify(t *testing.T) {
	tm := &ChainTrustManager{InsecureSkipVerify: true}
	if err := tm.VerifyPeerCertificate(nil, nil); err != nil {
		t.Fatalf("expected nil error with InsecureSkipVerify, got %v", err)
	}
}

func TestChainTrustManagerRejectsEmptyChain(t *testing.T) {
	tm := &ChainTrustManager{}
	if err := tm.VerifyPeerCertificate(nil, nil); err == nil {
		t.Fatal("expected error for empty certificate chain")
	}
}

func TestCallbackTrustManagerNilVerifyAccepts(t *testing.T) {
	var tm CallbackTrustManager
	if err := tm.VerifyPeerCertificate(nil, nil); err != nil {
		t.Fatalf("expected nil verify func to accept, got %v", err)
	}
}
