// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"crypto/x509"

	zx509 "github.com/zmap/zcrypto/x509"
	"github.com/zmap/zcrypto/tls"
)

// MessageCertificate carries a chain of DER-encoded X.509 certificates,
// leaf first. An empty Certificates list is a valid anonymous client
// certificate response (RFC 5246 §7.4.6).
//
// https://tools.ietf.org/html/rfc5246#section-7.4.2
type MessageCertificate struct {
	Certificates [][]byte
}

// Type returns the Handshake Type.
func (m MessageCertificate) Type() Type {
	return TypeCertificate
}

// Marshal encodes the Certificate message.
func (m *MessageCertificate) Marshal() ([]byte, error) {
	var body []byte
	for _, cert := range m.Certificates {
		entry := make([]byte, 3+len(cert))
		entry[0] = byte(len(cert) >> 16)
		entry[1] = byte(len(cert) >> 8)
		entry[2] = byte(len(cert))
		copy(entry[3:], cert)
		body = append(body, entry...)
	}
	out := make([]byte, 3)
	out[0] = byte(len(body) >> 16)
	out[1] = byte(len(body) >> 8)
	out[2] = byte(len(body))
	return append(out, body...), nil
}

// Unmarshal decodes the Certificate message.
func (m *MessageCertificate) Unmarshal(data []byte) error {
	if len(data) < 3 {
		return errBufferTooSmall
	}
	totalLen := int(data[0])<<16 | int(data[1])<<8 | int(data[2])
	data = data[3:]
	if totalLen > len(data) {
		return errBufferTooSmall
	}
	data = data[:totalLen]

	m.Certificates = nil
	for len(data) > 0 {
		if len(data) < 3 {
			return errBufferTooSmall
		}
		certLen := int(data[0])<<16 | int(data[1])<<8 | int(data[2])
		data = data[3:]
		if certLen > len(data) {
			return errBufferTooSmall
		}
		m.Certificates = append(m.Certificates, append([]byte{}, data[:certLen]...))
		data = data[certLen:]
	}
	return nil
}

// ParsedChain parses every DER certificate in the message into *x509.Certificate.
func (m *MessageCertificate) ParsedChain() ([]*x509.Certificate, error) {
	chain := make([]*x509.Certificate, 0, len(m.Certificates))
	for _, der := range m.Certificates {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cert)
	}
	return chain, nil
}

// MakeLog converts the Certificate message into a zcrypto fingerprint
// record, parsing with zcrypto's own x509 package rather than the standard
// library's so the record carries zcrypto's richer per-field annotations.
// A certificate that fails zcrypto's (stricter) parser is simply omitted
// from the chain rather than failing the whole handshake log.
func (m *MessageCertificate) MakeLog() *tls.Certificates {
	ret := &tls.Certificates{}
	for i, der := range m.Certificates {
		cert, err := zx509.ParseCertificate(der)
		if err != nil {
			continue
		}
		if i == 0 {
			ret.Certificate = cert
		} else {
			ret.Chain = append(ret.Chain, cert)
		}
	}
	return ret
}
