// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"crypto/sha256"
	"crypto/x509"
	"hash"

	"github.com/censys-oss/tls-engine/pkg/crypto/prf"
	"github.com/censys-oss/tls-engine/pkg/protocol"
	"github.com/zmap/zcrypto/tls"
)

// State is a read-only snapshot of one connection's negotiated parameters,
// available once the handshake has completed. This generalizes the
// teacher's Conn.ConnectionState, dropping the SRTP protection profile
// field (not part of this protocol) and adding the ALPN/session fields
// this engine's spec exposes.
type State struct {
	Version                protocol.Version
	CipherSuiteID          uint16
	NegotiatedALPNProtocol string
	SessionID              []byte
	Resumed                bool
	PeerCertificates       []*x509.Certificate
}

// ConnectionState returns a snapshot of the negotiated parameters, or
// errHandshakeNotComplete if the handshake has not yet finished.
func (e *Engine) ConnectionState() (State, error) {
	if !e.params.HandshakeCompleted() {
		return State{}, errHandshakeNotComplete
	}
	return State{
		Version:                e.params.NegotiatedVersion,
		CipherSuiteID:          e.params.CipherSuiteID,
		NegotiatedALPNProtocol: e.params.NegotiatedALPNProtocol,
		SessionID:              append([]byte(nil), e.params.SessionID...),
		Resumed:                e.fsm.Resumed(),
		PeerCertificates:       e.fsm.PeerCertificates(),
	}, nil
}

// ExportKeyingMaterial derives additional keying material bound to this
// connection's master secret and hello randoms (RFC 5705), for use by a
// host protocol layered on top (e.g. deriving a session key for an
// application-level handshake). Returns errHandshakeNotComplete before the
// handshake finishes.
func (e *Engine) ExportKeyingMaterial(label string, context []byte, length int) ([]byte, error) {
	if !e.params.HandshakeCompleted() {
		return nil, errHandshakeNotComplete
	}
	var newHash func() hash.Hash
	if h := e.params.PRFHash(); h != 0 {
		newHash = h.New
	}
	return prf.ExportKeyingMaterial(
		e.params.MasterSecret, label,
		e.params.ClientRandom.Bytes(), e.params.ServerRandom.Bytes(),
		context, length, newHash,
	)
}

// ChannelBindingTLSUnique returns the tls-unique channel binding (RFC 5929
// §3.1): the verify_data of the most recently exchanged Finished message.
// The Open Question of whether "most recent" means the first Finished ever
// sent or the one from the latest resumed handshake is resolved here in
// favor of the latest, since a refreshed binding for a resumed session is
// the behavior a caller validating a channel binding against replay
// actually wants.
func (e *Engine) ChannelBindingTLSUnique() ([]byte, error) {
	if !e.params.HandshakeCompleted() {
		return nil, errHandshakeNotComplete
	}
	return e.fsm.LastFinishedVerifyData(), nil
}

// ChannelBindingTLSServerEndPoint returns the tls-server-end-point channel
// binding (RFC 5929 §4.1): a hash of the server's end-entity certificate,
// DER-encoded. This engine always hashes with SHA-256 regardless of the
// certificate's own signature hash algorithm, which RFC 5929 requires only
// when that algorithm is MD5 or SHA-1 and otherwise permits; SHA-256
// covers the near-universal case without inspecting the certificate to
// choose among SHA-256/384/512.
func (e *Engine) ChannelBindingTLSServerEndPoint() ([]byte, error) {
	if !e.params.HandshakeCompleted() {
		return nil, errHandshakeNotComplete
	}
	var leafDER []byte
	if e.isClient {
		chain := e.fsm.PeerCertificates()
		if len(chain) == 0 {
			return nil, errHandshakeNotComplete
		}
		leafDER = chain[0].Raw
	} else {
		cert := e.fsm.LocalCertificate()
		if cert == nil || len(cert.Certificate) == 0 {
			return nil, errHandshakeNotComplete
		}
		leafDER = cert.Certificate[0]
	}
	sum := sha256.Sum256(leafDER)
	return sum[:], nil
}

// HandshakeLog returns a zcrypto fingerprint snapshot of the completed
// handshake (the teacher's Conn.GetHandshakeLog, generalized from a
// DTLS-only diagnostic to a host-observable record for any completed
// handshake), or nil if the handshake has not produced enough of a
// transcript to build one from.
func (e *Engine) HandshakeLog() *tls.ServerHandshake {
	return e.fsm.Log().Build(e.params.MasterSecret, e.fsm.PreMasterSecret())
}
