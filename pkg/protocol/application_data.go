// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package protocol

// ApplicationData carries decrypted (inbound) or to-be-encrypted (outbound)
// application bytes. It never itself has a length limit; the record layer
// is responsible for fragmenting to recordlayer.MaxPlaintextFragmentLength.
type ApplicationData struct {
	Data []byte
}

// ContentType returns the Content Type of ApplicationData.
func (a ApplicationData) ContentType() ContentType {
	return ContentTypeApplicationData
}

// Marshal encodes the ApplicationData.
func (a *ApplicationData) Marshal() ([]byte, error) {
	return append([]byte{}, a.Data...), nil
}

// Unmarshal decodes the ApplicationData.
func (a *ApplicationData) Unmarshal(data []byte) error {
	a.Data = append([]byte{}, data...)
	return nil
}
