// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package handshakelog assembles a zcrypto fingerprint snapshot of a
// completed handshake, generalizing the teacher's Conn.GetHandshakeLog from
// a DTLS-only diagnostic into a host-observable record any completed
// tlsengine.Engine handshake can export. Where the teacher pulls its
// messages back out of a per-epoch flight cache after the fact, this
// package is instead fed each message as handshakefsm processes it, since
// TLS's FSM keeps no such cache once a message has been consumed.
package handshakelog

import (
	"github.com/censys-oss/tls-engine/pkg/protocol/handshake"
	"github.com/zmap/zcrypto/tls"
)

// Collector accumulates the handshake messages needed to build a
// *tls.ServerHandshake fingerprint record. Zero value is ready to use; a
// handshakefsm.FSM owns one and stashes messages into it as they are built
// or received.
type Collector struct {
	ClientHello        *handshake.MessageClientHello
	ServerHello        *handshake.MessageServerHello
	ServerCertificates *handshake.MessageCertificate
	ClientCertificates *handshake.MessageCertificate
	ServerKeyExchange  *handshake.MessageServerKeyExchange
	ClientKeyExchange  *handshake.MessageClientKeyExchange
	ServerFinished     *handshake.MessageFinished
	ClientFinished     *handshake.MessageFinished
}

// Build assembles the fingerprint record, or nil if the handshake never
// reached a state where one would be meaningful (no ServerHello, or either
// side's Finished still missing).
func (c *Collector) Build(masterSecret, preMasterSecret []byte) *tls.ServerHandshake {
	if c.ServerHello == nil || c.ServerFinished == nil || c.ClientFinished == nil {
		return nil
	}

	out := &tls.ServerHandshake{}
	if c.ClientHello != nil {
		out.ClientHello = c.ClientHello.MakeLog()
	}
	out.ServerHello = c.ServerHello.MakeLog()
	if c.ServerCertificates != nil {
		out.ServerCertificates = c.ServerCertificates.MakeLog()
	}
	if c.ClientCertificates != nil {
		out.ClientCertificates = c.ClientCertificates.MakeLog()
	}
	if c.ServerKeyExchange != nil {
		out.ServerKeyExchange = c.ServerKeyExchange.MakeLog()
	}
	if c.ClientKeyExchange != nil {
		out.ClientKeyExchange = c.ClientKeyExchange.MakeLog()
	}
	out.ServerFinished = c.ServerFinished.MakeLog()
	out.ClientFinished = c.ClientFinished.MakeLog()

	out.KeyMaterial = &tls.KeyMaterial{
		MasterSecret: &tls.MasterSecret{
			Value:  masterSecret,
			Length: len(masterSecret),
		},
		PreMasterSecret: &tls.PreMasterSecret{
			Value:  preMasterSecret,
			Length: len(preMasterSecret),
		},
	}
	out.SessionTicket = nil // TLS 1.3 only

	return out
}
