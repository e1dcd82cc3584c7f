// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import "encoding/binary"

// SignatureScheme is the wire encoding of a {hash, signature} algorithm
// pair (RFC 5246 §7.4.1.4.1): high byte is HashAlgorithm, low byte is
// SignatureAlgorithm. TLS 1.2 is the newest version this engine speaks, so
// the newer "SignatureScheme" (TLS 1.3 codepoint) framing is not needed;
// this type is kept distinct from pkg/crypto/signaturehash's richer
// Algorithm so the wire package has no crypto dependency.
type SignatureScheme uint16

// SignatureAlgorithms implements the signature_algorithms extension.
type SignatureAlgorithms struct {
	Schemes []SignatureScheme
}

// ExtensionID returns the extension ID for SignatureAlgorithms.
func (s SignatureAlgorithms) ExtensionID() ID {
	return SignatureAlgorithmsID
}

// Marshal encodes the SignatureAlgorithms extension.
func (s *SignatureAlgorithms) Marshal() ([]byte, error) {
	list := make([]byte, 2*len(s.Schemes))
	for i, sch := range s.Schemes {
		binary.BigEndian.PutUint16(list[2*i:], uint16(sch))
	}
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, uint16(len(list)))
	return append(out, list...), nil
}

// Unmarshal decodes the SignatureAlgorithms extension.
func (s *SignatureAlgorithms) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return errBufferTooSmall
	}
	listLen := binary.BigEndian.Uint16(data[:2])
	data = data[2:]
	if int(listLen) > len(data) || listLen%2 != 0 {
		return errBufferTooSmall
	}
	s.Schemes = nil
	for i := 0; i < int(listLen); i += 2 {
		s.Schemes = append(s.Schemes, SignatureScheme(binary.BigEndian.Uint16(data[i:])))
	}
	return nil
}
