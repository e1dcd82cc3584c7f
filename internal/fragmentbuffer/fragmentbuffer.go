// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package fragmentbuffer reassembles whole handshake messages out of the
// record-layer byte stream. Unlike the teacher's DTLS fragment buffer
// (which reorders fragments carrying an explicit offset/length because UDP
// can deliver records out of order), TLS runs over a reliable, ordered
// transport: records of content type Handshake always arrive in order, so
// reassembly here is a plain byte accumulator that pops a message as soon
// as enough bytes have arrived to satisfy its declared length.
package fragmentbuffer

import "github.com/censys-oss/tls-engine/pkg/protocol/handshake"

// Buffer accumulates Handshake-content-type record fragments and yields
// whole handshake messages in arrival order.
type Buffer struct {
	pending []byte
}

// New constructs an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Push appends the next inbound Handshake-content-type record's raw
// fragment bytes to the pending stream.
func (b *Buffer) Push(raw []byte) {
	b.pending = append(b.pending, raw...)
}

// Pop returns the next fully-reassembled handshake message, if the pending
// bytes already contain one, and advances past it. Returns ok=false when
// fewer bytes are pending than the declared message length (the
// BUFFER_UNDERFLOW case one layer up).
func (b *Buffer) Pop() (raw []byte, ok bool) {
	total, haveHeader := handshake.PeekLength(b.pending)
	if !haveHeader || len(b.pending) < total {
		return nil, false
	}
	raw = append([]byte{}, b.pending[:total]...)
	b.pending = b.pending[total:]
	return raw, true
}

// Empty reports whether there are no pending bytes at all (a clean
// boundary, useful for assertions between flights).
func (b *Buffer) Empty() bool {
	return len(b.pending) == 0
}
