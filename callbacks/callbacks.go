// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package callbacks bridges the handshake state machine to
// application-supplied certificate material and trust decisions. It
// generalizes the teacher's flat Config fields (Certificates,
// GetCertificate, GetClientCertificate, RootCAs, VerifyPeerCertificate,
// InsecureSkipVerify) behind two small interfaces so the state machine
// depends on a capability, not a config struct, mirroring the split the
// spec draws between a KeyManager (this side's identity) and a
// TrustManager (the peer's identity).
package callbacks

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
)

// ErrNoCertificates is returned by a KeyManager when it has no certificate
// to offer for the given server name / certificate-request parameters.
var ErrNoCertificates = errors.New("callbacks: no certificates available")

// ClientHelloInfo carries the negotiation context a server-side KeyManager
// needs to pick a certificate, analogous to crypto/tls.ClientHelloInfo.
type ClientHelloInfo struct {
	ServerName       string
	CipherSuites     []uint16
	SupportedCurves  []uint16
	SignatureSchemes []uint16
}

// CertificateRequestInfo carries the parameters a client-side KeyManager
// needs to pick a client certificate in response to CertificateRequest.
type CertificateRequestInfo struct {
	AcceptableCAs    [][]byte
	CertificateTypes []byte
	SignatureSchemes []uint16
}

// KeyManager supplies this side's certificate chain and private key.
// tls.Certificate is reused rather than inventing a parallel type, since
// it already pairs a certificate chain with its crypto.Signer private key
// the way this engine needs.
type KeyManager interface {
	// GetCertificate returns the server's certificate for a ClientHello,
	// called only when this engine is acting as a TLS server.
	GetCertificate(info *ClientHelloInfo) (*tls.Certificate, error)
	// GetClientCertificate returns the client's certificate for a
	// CertificateRequest, called only when this engine is acting as a TLS
	// client and the server requested client authentication.
	GetClientCertificate(info *CertificateRequestInfo) (*tls.Certificate, error)
}

// StaticKeyManager is a KeyManager that always offers the same
// certificate regardless of negotiation context, the common case for a
// server with one certificate or a client with one client certificate.
type StaticKeyManager struct {
	Certificate *tls.Certificate
}

func (s *StaticKeyManager) GetCertificate(*ClientHelloInfo) (*tls.Certificate, error) {
	if s.Certificate == nil {
		return nil, ErrNoCertificates
	}
	return s.Certificate, nil
}

func (s *StaticKeyManager) GetClientCertificate(*CertificateRequestInfo) (*tls.Certificate, error) {
	if s.Certificate == nil {
		return nil, ErrNoCertificates
	}
	return s.Certificate, nil
}

// TrustManager decides whether the peer's certificate chain is acceptable.
type TrustManager interface {
	// VerifyPeerCertificate validates the peer's raw certificate chain.
	// rawCerts is in the wire order (leaf first) and parsedChain holds the
	// same certificates parsed, in the same order (this engine performs no
	// implicit chain building beyond what VerifyPeerCertificate itself
	// does, matching the teacher's InsecureSkipVerify/custom-callback-only
	// trust model rather than crypto/tls's automatic root-store
	// verification).
	VerifyPeerCertificate(rawCerts [][]byte, parsedChain []*x509.Certificate) error
}

// ChainTrustManager verifies the peer's leaf certificate chains to one of
// RootCAs. With InsecureSkipVerify set it accepts any chain, empty ones
// included, without verifying anything.
type ChainTrustManager struct {
	RootCAs            *x509.CertPool
	InsecureSkipVerify bool
	ServerName         string
}

func (c *ChainTrustManager) VerifyPeerCertificate(_ [][]byte, parsedChain []*x509.Certificate) error {
	if c.InsecureSkipVerify {
		return nil
	}
	if len(parsedChain) == 0 {
		return errors.New("callbacks: empty peer certificate chain")
	}

	opts := x509.VerifyOptions{
		Roots:         c.RootCAs,
		DNSName:       c.ServerName,
		Intermediates: x509.NewCertPool(),
	}
	for _, intermediate := range parsedChain[1:] {
		opts.Intermediates.AddCert(intermediate)
	}
	_, err := parsedChain[0].Verify(opts)
	return err
}

// CallbackTrustManager adapts a plain verification function (the shape of
// the teacher's Config.VerifyPeerCertificate field) into a TrustManager.
type CallbackTrustManager struct {
	Verify func(rawCerts [][]byte, parsedChain []*x509.Certificate) error
}

func (c *CallbackTrustManager) VerifyPeerCertificate(rawCerts [][]byte, parsedChain []*x509.Certificate) error {
	if c.Verify == nil {
		return nil
	}
	return c.Verify(rawCerts, parsedChain)
}
