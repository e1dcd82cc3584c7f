// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package extension implements the TLS Hello extensions this engine
// understands (RFC 5246 §7.4.1.4, RFC 6066, RFC 7627, RFC 5746, RFC 7301).
package extension

import (
	"encoding/binary"
	"errors"
)

var (
	errBufferTooSmall   = errors.New("extension: buffer too small to decode")
	errInvalidExtension = errors.New("extension: malformed body")
)

// ID is the two-byte extension type per the IANA TLS ExtensionType registry.
type ID uint16

// Extension IDs this engine recognizes.
const (
	ServerNameID            ID = 0
	SupportedGroupsID       ID = 10
	ECPointFormatsID        ID = 11
	SignatureAlgorithmsID   ID = 13
	ALPNID                  ID = 16
	ExtendedMasterSecretID  ID = 23
	RenegotiationInfoID     ID = 0xff01
)

// Extension is implemented by every extension body this engine parses or emits.
type Extension interface {
	ExtensionID() ID
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// Marshal encodes a list of extensions into the wire format used in Hello
// messages: a 2-byte total length followed by {id(2), length(2), body}* .
// An empty list still marshals to an empty byte slice (no extensions block),
// matching how pre-extension TLS 1.0 peers expect no trailing bytes.
func Marshal(extensions []Extension) ([]byte, error) {
	if len(extensions) == 0 {
		return []byte{}, nil
	}
	var body []byte
	for _, ext := range extensions {
		encoded, err := ext.Marshal()
		if err != nil {
			return nil, err
		}
		entry := make([]byte, 4)
		binary.BigEndian.PutUint16(entry[0:2], uint16(ext.ExtensionID()))
		binary.BigEndian.PutUint16(entry[2:4], uint16(len(encoded)))
		body = append(body, entry...)
		body = append(body, encoded...)
	}
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, uint16(len(body)))
	return append(out, body...), nil
}

// Unmarshal decodes the extensions block of a Hello message. Extensions
// with an unrecognized ID are skipped (returned as a RawExtension) so the
// caller can still account for the bytes without understanding them, per
// RFC 5246 §7.4.1.4's "MUST ignore" rule for unknown extensions.
func Unmarshal(data []byte) ([]Extension, error) {
	if len(data) < 2 {
		return nil, errBufferTooSmall
	}
	totalLen := binary.BigEndian.Uint16(data[:2])
	data = data[2:]
	if int(totalLen) > len(data) {
		return nil, errBufferTooSmall
	}
	data = data[:totalLen]

	var out []Extension
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, errInvalidExtension
		}
		id := ID(binary.BigEndian.Uint16(data[0:2]))
		length := binary.BigEndian.Uint16(data[2:4])
		data = data[4:]
		if int(length) > len(data) {
			return nil, errInvalidExtension
		}
		body := data[:length]
		data = data[length:]

		ext, err := newExtension(id)
		if err != nil {
			out = append(out, &RawExtension{ID_: id, Body: append([]byte{}, body...)})
			continue
		}
		if err := ext.Unmarshal(body); err != nil {
			return nil, err
		}
		out = append(out, ext)
	}
	return out, nil
}

func newExtension(id ID) (Extension, error) {
	switch id {
	case ServerNameID:
		return &ServerName{}, nil
	case SupportedGroupsID:
		return &SupportedGroups{}, nil
	case ECPointFormatsID:
		return &SupportedPointFormats{}, nil
	case SignatureAlgorithmsID:
		return &SignatureAlgorithms{}, nil
	case ALPNID:
		return &ALPN{}, nil
	case ExtendedMasterSecretID:
		return &UseExtendedMasterSecret{}, nil
	case RenegotiationInfoID:
		return &RenegotiationInfo{}, nil
	default:
		return nil, errInvalidExtension
	}
}

// RawExtension preserves an unrecognized extension's bytes unparsed.
type RawExtension struct {
	ID_  ID
	Body []byte
}

// ExtensionID returns the ID of a RawExtension.
func (r *RawExtension) ExtensionID() ID { return r.ID_ }

// Marshal returns the extension body unchanged.
func (r *RawExtension) Marshal() ([]byte, error) { return append([]byte{}, r.Body...), nil }

// Unmarshal copies the extension body unchanged.
func (r *RawExtension) Unmarshal(data []byte) error {
	r.Body = append([]byte{}, data...)
	return nil
}
