// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"github.com/censys-oss/tls-engine/handshakefsm"
	"github.com/censys-oss/tls-engine/pkg/protocol"
)

// Config configures one Engine. It embeds handshakefsm.Config, the
// negotiation knobs the handshake state machine itself needs (ServerName,
// CipherSuites, SessionCache, KeyManager, TrustManager, ALPNProtocols,
// MinVersion, MaxVersion, LoggerFactory, ExtendedMasterSecretOptional), so
// host code configures one struct rather than two. This mirrors the
// teacher's single flat dtls.Config feeding both Conn and its internal
// handshake machinery.
type Config struct {
	handshakefsm.Config
}

func validateConfig(cfg Config) error {
	zero := protocol.Version{}
	if !cfg.MinVersion.Equal(zero) && !cfg.MaxVersion.Equal(zero) && cfg.MaxVersion.Less(cfg.MinVersion) {
		return errInvalidVersionRange
	}
	return nil
}
