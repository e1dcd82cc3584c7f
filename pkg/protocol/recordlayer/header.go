// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package recordlayer implements TLS record framing: the fixed 5-byte
// header (RFC 5246 §6.2.1) plus the size limits the wrap/unwrap façade
// needs to size buffers and detect BUFFER_UNDERFLOW.
package recordlayer

import (
	"encoding/binary"
	"errors"

	"github.com/censys-oss/tls-engine/pkg/protocol"
)

// FixedHeaderSize is the length of a TLS record header: type(1) | version(2) | length(2).
const FixedHeaderSize = 5

// MaxPlaintextFragmentLength is the largest plaintext record payload this
// engine ever emits or accepts (RFC 5246 §6.2.1): 2^14 bytes.
const MaxPlaintextFragmentLength = 1 << 14

// MaxCiphertextRecordLength is the largest encoded record this engine ever
// emits or accepts: plaintext limit plus the maximum CBC/AEAD expansion
// (RFC 5246 §6.2.3): 2^14 + 2048.
const MaxCiphertextRecordLength = MaxPlaintextFragmentLength + 2048

// ErrRecordOverflow is returned when a record header declares a length
// above MaxCiphertextRecordLength. RFC 5246 §6.2.1 makes this fatal
// (record_overflow), not a short read: the bytes it claims must never be
// waited for.
var ErrRecordOverflow = errors.New("recordlayer: record length exceeds maximum")

var errBufferTooSmall = errors.New("recordlayer: buffer too small to decode header")

// Header is the fixed 5-byte prefix of every TLS record.
type Header struct {
	ContentType    protocol.ContentType
	Version        protocol.Version
	ContentLen     uint16
}

// Size returns the marshaled size of the header: always FixedHeaderSize.
func (h *Header) Size() int {
	return FixedHeaderSize
}

// Marshal encodes the record header.
func (h *Header) Marshal() ([]byte, error) {
	out := make([]byte, FixedHeaderSize)
	out[0] = byte(h.ContentType)
	out[1] = h.Version.Major
	out[2] = h.Version.Minor
	binary.BigEndian.PutUint16(out[3:], h.ContentLen)
	return out, nil
}

// Unmarshal decodes the record header and validates ContentLen against the
// ciphertext size limit (fatal record_overflow territory upstream).
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < FixedHeaderSize {
		return errBufferTooSmall
	}
	h.ContentType = protocol.ContentType(data[0])
	h.Version = protocol.Version{Major: data[1], Minor: data[2]}
	h.ContentLen = binary.BigEndian.Uint16(data[3:5])
	if h.ContentLen > MaxCiphertextRecordLength {
		return ErrRecordOverflow
	}
	return nil
}

// PeekLength reads only the 5-byte header prefix (if present) to compute
// how many total bytes the full record will occupy, without allocating a
// Header. ok=false means fewer than FixedHeaderSize bytes are available yet
// (the BUFFER_UNDERFLOW case for the engine façade). overflow=true means
// the declared length exceeds MaxCiphertextRecordLength: a fatal
// record_overflow, so the caller must reject the record rather than wait
// for the rest of it to arrive.
func PeekLength(data []byte) (total int, ok bool, overflow bool) {
	if len(data) < FixedHeaderSize {
		return 0, false, false
	}
	contentLen := binary.BigEndian.Uint16(data[3:5])
	if contentLen > MaxCiphertextRecordLength {
		return 0, false, true
	}
	return FixedHeaderSize + int(contentLen), true, false
}
