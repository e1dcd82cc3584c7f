// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

// RenegotiationInfo implements RFC 5746's secure renegotiation indication.
// This engine never renegotiates; both Hellos it builds carry an empty
// RenegotiationInfo. A received one is parsed but not checked, and its
// presence is recorded only as SecureRenegotiation in the handshake log
// records built by MakeLog.
type RenegotiationInfo struct {
	RenegotiatedConnection []byte
}

// ExtensionID returns the extension ID for RenegotiationInfo.
func (r RenegotiationInfo) ExtensionID() ID {
	return RenegotiationInfoID
}

// Marshal encodes the RenegotiationInfo extension.
func (r *RenegotiationInfo) Marshal() ([]byte, error) {
	out := make([]byte, 1+len(r.RenegotiatedConnection))
	out[0] = byte(len(r.RenegotiatedConnection))
	copy(out[1:], r.RenegotiatedConnection)
	return out, nil
}

// Unmarshal decodes the RenegotiationInfo extension.
func (r *RenegotiationInfo) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return errBufferTooSmall
	}
	n := int(data[0])
	if len(data) < 1+n {
		return errBufferTooSmall
	}
	r.RenegotiatedConnection = append([]byte{}, data[1:1+n]...)
	return nil
}
