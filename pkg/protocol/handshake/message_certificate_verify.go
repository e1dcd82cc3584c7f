// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "encoding/binary"

// MessageCertificateVerify proves possession of the private key
// corresponding to a client certificate by signing the handshake
// transcript hash taken up to (but not including) this message.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.8
type MessageCertificateVerify struct {
	SignatureScheme uint16
	Signature       []byte
}

// Type returns the Handshake Type.
func (m MessageCertificateVerify) Type() Type {
	return TypeCertificateVerify
}

// Marshal encodes the CertificateVerify.
func (m *MessageCertificateVerify) Marshal() ([]byte, error) {
	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out, m.SignatureScheme)
	binary.BigEndian.PutUint16(out[2:], uint16(len(m.Signature)))
	return append(out, m.Signature...), nil
}

// Unmarshal decodes the CertificateVerify.
func (m *MessageCertificateVerify) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return errBufferTooSmall
	}
	m.SignatureScheme = binary.BigEndian.Uint16(data)
	sigLen := int(binary.BigEndian.Uint16(data[2:]))
	if len(data) < 4+sigLen {
		return errBufferTooSmall
	}
	m.Signature = append([]byte{}, data[4:4+sigLen]...)
	return nil
}
