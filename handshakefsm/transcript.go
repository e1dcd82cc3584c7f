// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshakefsm

import (
	"github.com/censys-oss/tls-engine/internal/handshakecache"
	"github.com/censys-oss/tls-engine/pkg/protocol"
	"github.com/censys-oss/tls-engine/pkg/protocol/handshake"
	"github.com/censys-oss/tls-engine/securityparams"
)

// handshakeTranscript accumulates the marshaled bytes of every handshake
// message exchanged so far, the PRF seed material for Finished verify_data
// and (RFC 7627) the extended master secret's session_hash.
type handshakeTranscript struct {
	cache *handshakecache.Cache
}

func newTranscript() *handshakeTranscript {
	return &handshakeTranscript{cache: handshakecache.New()}
}

func (t *handshakeTranscript) push(h *handshake.Handshake) {
	raw, err := h.Marshal()
	if err != nil {
		return // a message that fails to re-marshal can't have reached the wire
	}
	t.cache.Push(raw, h)
}

// sum hashes the transcript so far with whatever PRF hash the negotiated
// parameters call for (nil selects the legacy TLS 1.0/1.1 combined hash).
func (t *handshakeTranscript) sum(params *securityparams.Parameters) []byte {
	hash := params.PRFHash()
	if hash == 0 {
		return t.cache.SumMD5SHA1()
	}
	return t.cache.SumSingle(hash)
}

// raw returns the unhashed transcript bytes accumulated so far, for signing
// or verifying a CertificateVerify message.
func (t *handshakeTranscript) raw() []byte {
	return t.cache.Raw()
}

var defaultCompressionMethod = protocol.DefaultCompressionMethods()[0].ID //nolint:gochecknoglobals
