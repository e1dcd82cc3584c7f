// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import "encoding/binary"

// ALPN implements Application-Layer Protocol Negotiation (RFC 7301).
type ALPN struct {
	ProtocolNameList []string
}

// ExtensionID returns the extension ID for ALPN.
func (a ALPN) ExtensionID() ID {
	return ALPNID
}

// Marshal encodes the ALPN extension.
func (a *ALPN) Marshal() ([]byte, error) {
	var list []byte
	for _, name := range a.ProtocolNameList {
		list = append(list, byte(len(name)))
		list = append(list, []byte(name)...)
	}
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, uint16(len(list)))
	return append(out, list...), nil
}

// Unmarshal decodes the ALPN extension.
func (a *ALPN) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return errBufferTooSmall
	}
	listLen := binary.BigEndian.Uint16(data[:2])
	data = data[2:]
	if int(listLen) > len(data) {
		return errBufferTooSmall
	}
	data = data[:listLen]

	a.ProtocolNameList = nil
	for len(data) > 0 {
		n := int(data[0])
		data = data[1:]
		if n > len(data) {
			return errBufferTooSmall
		}
		a.ProtocolNameList = append(a.ProtocolNameList, string(data[:n]))
		data = data[n:]
	}
	return nil
}

// NegotiateALPN picks the first server-preferred protocol that the client
// also offered (RFC 7301 §3.2 leaves preference order to the server).
func NegotiateALPN(serverPreference, clientOffered []string) (string, bool) {
	offered := make(map[string]bool, len(clientOffered))
	for _, p := range clientOffered {
		offered[p] = true
	}
	for _, p := range serverPreference {
		if offered[p] {
			return p, true
		}
	}
	return "", false
}
