// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import "encoding/binary"

// NamedCurve identifies an elliptic curve / finite field group per RFC 4492
// §5.1.1 and its TLS 1.2 extension registry successor.
type NamedCurve uint16

// Named curves this engine offers, in descending preference order.
const (
	X25519    NamedCurve = 0x001d
	Secp256r1 NamedCurve = 0x0017
	Secp384r1 NamedCurve = 0x0018
)

// SupportedGroups implements the supported_groups extension (formerly
// elliptic_curves), advertising the ECDHE curves a side can use.
type SupportedGroups struct {
	Groups []NamedCurve
}

// ExtensionID returns the extension ID for SupportedGroups.
func (s SupportedGroups) ExtensionID() ID {
	return SupportedGroupsID
}

// Marshal encodes the SupportedGroups extension.
func (s *SupportedGroups) Marshal() ([]byte, error) {
	list := make([]byte, 2*len(s.Groups))
	for i, g := range s.Groups {
		binary.BigEndian.PutUint16(list[2*i:], uint16(g))
	}
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, uint16(len(list)))
	return append(out, list...), nil
}

// Unmarshal decodes the SupportedGroups extension.
func (s *SupportedGroups) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return errBufferTooSmall
	}
	listLen := binary.BigEndian.Uint16(data[:2])
	data = data[2:]
	if int(listLen) > len(data) || listLen%2 != 0 {
		return errBufferTooSmall
	}
	s.Groups = nil
	for i := 0; i < int(listLen); i += 2 {
		s.Groups = append(s.Groups, NamedCurve(binary.BigEndian.Uint16(data[i:])))
	}
	return nil
}
