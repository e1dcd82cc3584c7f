// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package fragmentbuffer

import (
	"testing"

	"github.com/censys-oss/tls-engine/pkg/protocol/handshake"
)

func marshalFinished(t *testing.T, verifyData []byte) []byte {
	t.Helper()
	hs := &handshake.Handshake{Message: &handshake.MessageFinished{VerifyData: verifyData}}
	raw, err := hs.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return raw
}

func TestBufferPopReturnsNotOkOnPartialMessage(t *testing.T) {
	raw := marshalFinished(t, []byte("0123456789ab"))
	b := New()
	b.Push(raw[:len(raw)-1])

	if _, ok := b.Pop(); ok {
		t.Fatal("expected Pop to report not-ok on an incomplete message")
	}
}

func TestBufferPopReassemblesSplitAcrossPushes(t *testing.T) {
	raw := marshalFinished(t, []byte("0123456789ab"))
	b := New()
	mid := len(raw) / 2
	b.Push(raw[:mid])
	b.Push(raw[mid:])

	out, ok := b.Pop()
	if !ok {
		t.Fatal("expected Pop to succeed once all bytes have arrived")
	}
	if string(out) != string(raw) {
		t.Fatal("reassembled message does not match the original bytes")
	}
	if !b.Empty() {
		t.Fatal("expected the buffer to be empty after popping its only message")
	}
}

func TestBufferPopYieldsMessagesInArrivalOrder(t *testing.T) {
	first := marshalFinished(t, []byte("aaaaaaaaaaaa"))
	second := marshalFinished(t, []byte("bbbbbbbbbbbb"))

	b := New()
	b.Push(first)
	b.Push(second)

	out1, ok := b.Pop()
	if !ok || string(out1) != string(first) {
		t.Fatal("expected the first popped message to match the first pushed message")
	}
	out2, ok := b.Pop()
	if !ok || string(out2) != string(second) {
		t.Fatal("expected the second popped message to match the second pushed message")
	}
	if !b.Empty() {
		t.Fatal("expected the buffer to be empty after popping both messages")
	}
}
