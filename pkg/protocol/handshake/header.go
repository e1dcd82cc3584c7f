// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"errors"
)

// HeaderLength is the size of a handshake message header: msg_type(1) | length(3).
const HeaderLength = 4

var (
	errBufferTooSmall           = errors.New("handshake: buffer too small to decode")
	errInvalidHandshakeType     = errors.New("handshake: invalid or unexpected message type")
	errCipherSuiteUnset         = errors.New("handshake: cipher suite ID not set")
	errCompressionMethodUnset   = errors.New("handshake: compression method not set")
	errInvalidCompressionMethod = errors.New("handshake: invalid compression method")
)

// Header is the 4-byte prefix of every handshake message (RFC 5246 §7.4).
type Header struct {
	Type   Type
	Length uint32
}

// Size returns the marshaled size of the header.
func (h *Header) Size() int {
	return HeaderLength
}

// Marshal encodes the handshake header.
func (h *Header) Marshal() ([]byte, error) {
	out := make([]byte, HeaderLength)
	out[0] = byte(h.Type)
	out[1] = byte(h.Length >> 16)
	out[2] = byte(h.Length >> 8)
	out[3] = byte(h.Length)
	return out, nil
}

// Unmarshal decodes the handshake header.
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < HeaderLength {
		return errBufferTooSmall
	}
	h.Type = Type(data[0])
	h.Length = uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	return nil
}

// PeekLength returns the total length (header + body) of the handshake
// message starting at data, if the header itself is already available.
func PeekLength(data []byte) (total int, ok bool) {
	if len(data) < HeaderLength {
		return 0, false
	}
	length := uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	return HeaderLength + int(length), true
}
