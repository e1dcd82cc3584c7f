// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

// PointFormatUncompressed is the only EC point format this engine offers or
// accepts; compressed formats were deprecated by RFC 8422 and this engine
// never advertises them.
const PointFormatUncompressed = 0

// SupportedPointFormats implements the ec_point_formats extension (RFC 4492 §5.1.2).
type SupportedPointFormats struct {
	PointFormats []byte
}

// ExtensionID returns the extension ID for SupportedPointFormats.
func (s SupportedPointFormats) ExtensionID() ID {
	return ECPointFormatsID
}

// Marshal encodes the SupportedPointFormats extension.
func (s *SupportedPointFormats) Marshal() ([]byte, error) {
	out := make([]byte, 1+len(s.PointFormats))
	out[0] = byte(len(s.PointFormats))
	copy(out[1:], s.PointFormats)
	return out, nil
}

// Unmarshal decodes the SupportedPointFormats extension.
func (s *SupportedPointFormats) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return errBufferTooSmall
	}
	n := int(data[0])
	if len(data) < 1+n {
		return errBufferTooSmall
	}
	s.PointFormats = append([]byte{}, data[1:1+n]...)
	return nil
}
