// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// RandomLength is the length of a ClientHello/ServerHello Random structure
// (RFC 5246 §7.4.1.2): 4-byte gmt_unix_time followed by 28 random bytes.
const RandomLength = 32

// RandomBytesLength is the length of the random (non-timestamp) suffix.
const RandomBytesLength = RandomLength - 4

// Random is the 32-byte nonce sent by each side in its Hello message and
// mixed into every subsequent key derivation.
type Random struct {
	GMTUnixTime time.Time
	RandomBytes [RandomBytesLength]byte
}

// Populate fills Random with the current time and cryptographically random
// bytes, as a ClientHello/ServerHello constructor does.
func (r *Random) Populate() error {
	r.GMTUnixTime = time.Now()
	_, err := rand.Read(r.RandomBytes[:])
	return err
}

// MarshalFixed encodes Random into its wire representation.
func (r *Random) MarshalFixed() [RandomLength]byte {
	var out [RandomLength]byte
	binary.BigEndian.PutUint32(out[:4], uint32(r.GMTUnixTime.Unix()))
	copy(out[4:], r.RandomBytes[:])
	return out
}

// UnmarshalFixed decodes Random from its wire representation.
func (r *Random) UnmarshalFixed(in [RandomLength]byte) {
	r.GMTUnixTime = time.Unix(int64(binary.BigEndian.Uint32(in[:4])), 0)
	copy(r.RandomBytes[:], in[4:])
}

// Bytes returns the full 32-byte wire encoding.
func (r *Random) Bytes() []byte {
	fixed := r.MarshalFixed()
	return fixed[:]
}
