// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"encoding/binary"

	"github.com/zmap/zcrypto/tls"
)

// MessageServerKeyExchange carries the server's ephemeral key-exchange
// parameters. Only ECDHE suites send it (static RSA key exchange sends
// none), so the body is always the ECParameters/ECPoint form of RFC 4492 §5.4, followed by the
// signature over (client_random || server_random || params) when the
// suite is authenticated (every suite except anonymous, which this engine
// never offers).
//
// https://tools.ietf.org/html/rfc5246#section-7.4.3
type MessageServerKeyExchange struct {
	// Curve is the named ECDHE group (RFC 4492 §5.4 curve_type=named_curve).
	Curve uint16
	// PublicKey is the uncompressed EC point.
	PublicKey []byte
	// SignatureScheme is the wire SignatureAndHashAlgorithm pair, absent for
	// static-RSA key exchange (no ServerKeyExchange is even sent there, but
	// the field is kept for completeness of the general-purpose codec).
	SignatureScheme uint16
	Signature       []byte
}

// Type returns the Handshake Type.
func (m MessageServerKeyExchange) Type() Type {
	return TypeServerKeyExchange
}

// Marshal encodes the ServerKeyExchange.
func (m *MessageServerKeyExchange) Marshal() ([]byte, error) {
	out := []byte{0x03} // curve_type = named_curve
	out = append(out, byte(m.Curve>>8), byte(m.Curve))
	out = append(out, byte(len(m.PublicKey)))
	out = append(out, m.PublicKey...)

	sigHeader := make([]byte, 2)
	binary.BigEndian.PutUint16(sigHeader, m.SignatureScheme)
	out = append(out, sigHeader...)

	sigLen := make([]byte, 2)
	binary.BigEndian.PutUint16(sigLen, uint16(len(m.Signature)))
	out = append(out, sigLen...)
	out = append(out, m.Signature...)
	return out, nil
}

// Unmarshal decodes the ServerKeyExchange.
func (m *MessageServerKeyExchange) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return errBufferTooSmall
	}
	// data[0] is curve_type, assumed named_curve (3).
	m.Curve = binary.BigEndian.Uint16(data[1:3])
	n := int(data[3])
	offset := 4
	if len(data) < offset+n {
		return errBufferTooSmall
	}
	m.PublicKey = append([]byte{}, data[offset:offset+n]...)
	offset += n

	if len(data) < offset+4 {
		return errBufferTooSmall
	}
	m.SignatureScheme = binary.BigEndian.Uint16(data[offset:])
	offset += 2
	sigLen := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data) < offset+sigLen {
		return errBufferTooSmall
	}
	m.Signature = append([]byte{}, data[offset:offset+sigLen]...)
	return nil
}

// SignedParams returns the byte string that is actually signed/verified for
// this message: client_random || server_random || curve_type || curve ||
// point (RFC 4492 §5.4).
func (m *MessageServerKeyExchange) SignedParams(clientRandom, serverRandom [32]byte) []byte {
	out := append([]byte{}, clientRandom[:]...)
	out = append(out, serverRandom[:]...)
	out = append(out, 0x03, byte(m.Curve>>8), byte(m.Curve))
	out = append(out, byte(len(m.PublicKey)))
	return append(out, m.PublicKey...)
}

// MakeLog converts the ServerKeyExchange into a zcrypto fingerprint record.
// Only the ECDHE form is populated; this engine never sends a plain-DHE
// ServerKeyExchange (RSA key exchange needs none).
func (m *MessageServerKeyExchange) MakeLog() *tls.ServerKeyExchange {
	ret := &tls.ServerKeyExchange{Raw: append([]byte{}, m.PublicKey...)}
	ret.ECDHParams = &tls.ECDHParams{
		CurveID:      tls.CurveID(m.Curve),
		ServerPublic: append([]byte{}, m.PublicKey...),
	}
	ret.Digest = append([]byte{}, m.Signature...)
	return ret
}
