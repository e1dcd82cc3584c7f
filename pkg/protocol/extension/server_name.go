// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import (
	"encoding/binary"

	"golang.org/x/net/idna"
)

const serverNameTypeHostName = 0

// ServerName implements the Server Name Indication extension (RFC 6066 §3).
type ServerName struct {
	HostName string
}

// ExtensionID returns the extension ID for ServerName: host_name (0).
func (s ServerName) ExtensionID() ID {
	return ServerNameID
}

// Marshal encodes the ServerName extension. The host name is normalized to
// ASCII (Punycode) via idna before being placed on the wire, the way a host
// resolving SNI against certificate SANs must compare ASCII forms.
func (s *ServerName) Marshal() ([]byte, error) {
	ascii, err := idna.Lookup.ToASCII(s.HostName)
	if err != nil {
		ascii = s.HostName
	}
	nameBytes := []byte(ascii)

	entry := make([]byte, 3+len(nameBytes))
	entry[0] = serverNameTypeHostName
	binary.BigEndian.PutUint16(entry[1:3], uint16(len(nameBytes)))
	copy(entry[3:], nameBytes)

	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, uint16(len(entry)))
	return append(out, entry...), nil
}

// Unmarshal decodes the ServerName extension.
func (s *ServerName) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return errBufferTooSmall
	}
	listLen := binary.BigEndian.Uint16(data[:2])
	data = data[2:]
	if int(listLen) > len(data) || len(data) < 3 {
		return errBufferTooSmall
	}
	if data[0] != serverNameTypeHostName {
		return nil // MUST ignore unknown name types per RFC 6066
	}
	nameLen := binary.BigEndian.Uint16(data[1:3])
	if int(nameLen) > len(data)-3 {
		return errBufferTooSmall
	}
	s.HostName = string(data[3 : 3+nameLen])
	return nil
}
