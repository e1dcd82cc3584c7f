// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

// UseExtendedMasterSecret implements RFC 7627: a zero-length extension body
// whose mere presence signals support. Supported is only ever derived from
// whether the extension appeared on the wire, not from any field inside it.
type UseExtendedMasterSecret struct {
	Supported bool
}

// ExtensionID returns the extension ID for UseExtendedMasterSecret.
func (u UseExtendedMasterSecret) ExtensionID() ID {
	return ExtendedMasterSecretID
}

// Marshal encodes the (empty-bodied) extension.
func (u *UseExtendedMasterSecret) Marshal() ([]byte, error) {
	return []byte{}, nil
}

// Unmarshal decodes the (empty-bodied) extension: its presence is the signal.
func (u *UseExtendedMasterSecret) Unmarshal(data []byte) error {
	u.Supported = true
	return nil
}
