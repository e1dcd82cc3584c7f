// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "encoding/binary"

// ClientCertificateType identifies an acceptable client certificate
// signature algorithm (RFC 5246 §7.4.4).
type ClientCertificateType byte

// Client certificate types this engine requests.
const (
	ClientCertificateTypeRSASign   ClientCertificateType = 1
	ClientCertificateTypeECDSASign ClientCertificateType = 64
)

// MessageCertificateRequest is sent by a server that wants to authenticate
// the client (Config.ClientAuth is RequestClientAuth or RequireClientAuth).
//
// https://tools.ietf.org/html/rfc5246#section-7.4.4
type MessageCertificateRequest struct {
	CertificateTypes        []ClientCertificateType
	SignatureSchemes        []uint16
	CertificateAuthorities  [][]byte
}

// Type returns the Handshake Type.
func (m MessageCertificateRequest) Type() Type {
	return TypeCertificateRequest
}

// Marshal encodes the CertificateRequest.
func (m *MessageCertificateRequest) Marshal() ([]byte, error) {
	out := []byte{byte(len(m.CertificateTypes))}
	for _, t := range m.CertificateTypes {
		out = append(out, byte(t))
	}

	schemes := make([]byte, 2+2*len(m.SignatureSchemes))
	binary.BigEndian.PutUint16(schemes, uint16(2*len(m.SignatureSchemes)))
	for i, s := range m.SignatureSchemes {
		binary.BigEndian.PutUint16(schemes[2+2*i:], s)
	}
	out = append(out, schemes...)

	var caBody []byte
	for _, ca := range m.CertificateAuthorities {
		entry := make([]byte, 2+len(ca))
		binary.BigEndian.PutUint16(entry, uint16(len(ca)))
		copy(entry[2:], ca)
		caBody = append(caBody, entry...)
	}
	caHeader := make([]byte, 2)
	binary.BigEndian.PutUint16(caHeader, uint16(len(caBody)))
	out = append(out, caHeader...)
	return append(out, caBody...), nil
}

// Unmarshal decodes the CertificateRequest.
func (m *MessageCertificateRequest) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return errBufferTooSmall
	}
	n := int(data[0])
	offset := 1
	if len(data) < offset+n {
		return errBufferTooSmall
	}
	m.CertificateTypes = nil
	for i := 0; i < n; i++ {
		m.CertificateTypes = append(m.CertificateTypes, ClientCertificateType(data[offset+i]))
	}
	offset += n

	if len(data) < offset+2 {
		return errBufferTooSmall
	}
	schemesLen := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data) < offset+schemesLen || schemesLen%2 != 0 {
		return errBufferTooSmall
	}
	m.SignatureSchemes = nil
	for i := 0; i < schemesLen; i += 2 {
		m.SignatureSchemes = append(m.SignatureSchemes, binary.BigEndian.Uint16(data[offset+i:]))
	}
	offset += schemesLen

	if len(data) < offset+2 {
		return errBufferTooSmall
	}
	caLen := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data) < offset+caLen {
		return errBufferTooSmall
	}
	caData := data[offset : offset+caLen]
	m.CertificateAuthorities = nil
	for len(caData) > 0 {
		if len(caData) < 2 {
			return errBufferTooSmall
		}
		l := int(binary.BigEndian.Uint16(caData))
		caData = caData[2:]
		if l > len(caData) {
			return errBufferTooSmall
		}
		m.CertificateAuthorities = append(m.CertificateAuthorities, append([]byte{}, caData[:l]...))
		caData = caData[l:]
	}
	return nil
}
