// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package handshakecache accumulates the running handshake transcript used
// to seed the Finished verify_data PRF and (for extended master secret)
// session_hash. It generalizes the teacher's per-message handshakeCache
// (which indexed messages by epoch/sequence for DTLS retransmit replay)
// down to what a reliable-transport TLS engine actually needs: an ordered
// byte accumulator plus on-demand digests, since TLS delivers every
// handshake message exactly once and in order.
package handshakecache

import (
	"crypto"
	"crypto/md5"  //nolint:gosec // required by the TLS 1.0/1.1 PRF, not used for security
	"crypto/sha1" //nolint:gosec // required by the TLS 1.0/1.1 PRF, not used for security

	"github.com/censys-oss/tls-engine/pkg/protocol/handshake"
)

// Cache is the running concatenation of every handshake message's raw
// bytes (header included) seen so far on this connection, in transcript
// order, for both inbound and outbound messages.
type Cache struct {
	transcript []byte
	messages   []*handshake.Handshake
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{}
}

// Push appends one handshake message's raw wire bytes (header + body) to
// the transcript, and records the decoded message for replay/logging.
func (c *Cache) Push(raw []byte, msg *handshake.Handshake) {
	c.transcript = append(c.transcript, raw...)
	c.messages = append(c.messages, msg)
}

// Messages returns every handshake message pushed so far, in transcript order.
func (c *Cache) Messages() []*handshake.Handshake {
	return c.messages
}

// SumSingle hashes the transcript so far with a single hash algorithm, the
// TLS 1.2 way (RFC 5246 §7.4.9: PRF hash, usually SHA-256).
func (c *Cache) SumSingle(h crypto.Hash) []byte {
	hasher := h.New()
	hasher.Write(c.transcript) //nolint:errcheck // hash.Hash.Write never errors
	return hasher.Sum(nil)
}

// SumMD5SHA1 hashes the transcript with the legacy TLS 1.0/1.1 PRF seed:
// MD5(transcript) || SHA1(transcript), 36 bytes total.
func (c *Cache) SumMD5SHA1() []byte {
	md5Hasher := md5.New()  //nolint:gosec
	sha1Hasher := sha1.New() //nolint:gosec
	md5Hasher.Write(c.transcript)  //nolint:errcheck
	sha1Hasher.Write(c.transcript) //nolint:errcheck
	return append(md5Hasher.Sum(nil), sha1Hasher.Sum(nil)...)
}

// Len returns the number of transcript bytes accumulated so far.
func (c *Cache) Len() int {
	return len(c.transcript)
}

// Raw returns a copy of the unhashed transcript bytes accumulated so far,
// for CertificateVerify (RFC 5246 §7.4.8), which signs over the messages
// themselves rather than a PRF-hash-specific digest like SumSingle.
func (c *Cache) Raw() []byte {
	return append([]byte{}, c.transcript...)
}
