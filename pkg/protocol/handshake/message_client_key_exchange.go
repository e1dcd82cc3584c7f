// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "github.com/zmap/zcrypto/tls"

// MessageClientKeyExchange carries the client's contribution to the
// premaster secret: for RSA key exchange, an RSA-encrypted premaster
// secret; for ECDHE, the client's EC point. Both are opaque<1..2^16-1>
// vectors on the wire, so a single Raw field suffices and the handshake
// FSM interprets the bytes according to the negotiated key-exchange
// algorithm.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.7
type MessageClientKeyExchange struct {
	Raw []byte
	// IsECDHE distinguishes the one-byte-length EC point encoding from the
	// two-byte-length RSA EncryptedPreMasterSecret encoding; both are
	// opaque<..> vectors but with different length-prefix widths.
	IsECDHE bool
}

// Type returns the Handshake Type.
func (m MessageClientKeyExchange) Type() Type {
	return TypeClientKeyExchange
}

// Marshal encodes the ClientKeyExchange.
func (m *MessageClientKeyExchange) Marshal() ([]byte, error) {
	if m.IsECDHE {
		return append([]byte{byte(len(m.Raw))}, m.Raw...), nil
	}
	out := []byte{byte(len(m.Raw) >> 8), byte(len(m.Raw))}
	return append(out, m.Raw...), nil
}

// Unmarshal decodes the ClientKeyExchange. The length-prefix width depends
// on the negotiated key exchange, which this struct does not know, so it is
// inferred from the body: a body exactly one byte longer than its first
// byte is the one-byte-prefixed ECDHE point (an RSA body, whose first byte
// is the high byte of its own length, never has that shape); anything else
// is decoded as the two-byte RSA form.
func (m *MessageClientKeyExchange) Unmarshal(data []byte) error {
	if len(data) >= 1 && len(data) == 1+int(data[0]) {
		return m.UnmarshalECDHE(data)
	}
	return m.UnmarshalRSA(data)
}

// UnmarshalRSA decodes the two-byte-length-prefixed RSA EncryptedPreMasterSecret form.
func (m *MessageClientKeyExchange) UnmarshalRSA(data []byte) error {
	if len(data) < 2 {
		return errBufferTooSmall
	}
	n := int(data[0])<<8 | int(data[1])
	if len(data) < 2+n {
		return errBufferTooSmall
	}
	m.Raw = append([]byte{}, data[2:2+n]...)
	m.IsECDHE = false
	return nil
}

// UnmarshalECDHE decodes the one-byte-length-prefixed ECPoint form.
func (m *MessageClientKeyExchange) UnmarshalECDHE(data []byte) error {
	if len(data) < 1 {
		return errBufferTooSmall
	}
	n := int(data[0])
	if len(data) < 1+n {
		return errBufferTooSmall
	}
	m.Raw = append([]byte{}, data[1:1+n]...)
	m.IsECDHE = true
	return nil
}

// MakeLog converts the ClientKeyExchange into a zcrypto fingerprint record.
func (m *MessageClientKeyExchange) MakeLog() *tls.ClientKeyExchange {
	ret := &tls.ClientKeyExchange{Raw: append([]byte{}, m.Raw...)}
	if m.IsECDHE {
		ret.ECDHParams = &tls.ClientECDHParams{ClientPublic: append([]byte{}, m.Raw...)}
	} else {
		ret.RSAParams = &tls.EncryptedPreMasterSecret{
			Value:  append([]byte{}, m.Raw...),
			Length: len(m.Raw),
		}
	}
	return ret
}
