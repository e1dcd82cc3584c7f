// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import "github.com/censys-oss/tls-engine/handshakefsm"

// Status is the outcome of one Wrap or Unwrap call, the javax.net.ssl
// SSLEngineResult.Status analog this engine's non-blocking façade reports
// instead of a blocking net.Conn's error return.
type Status int

// Status values a Wrap/Unwrap call can report.
const (
	StatusOK Status = iota
	StatusBufferUnderflow
	StatusBufferOverflow
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBufferUnderflow:
		return "BUFFER_UNDERFLOW"
	case StatusBufferOverflow:
		return "BUFFER_OVERFLOW"
	case StatusClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// HandshakeStatus is re-exported from handshakefsm so callers of this
// package never need to import it directly; the façade is the only thing
// that hands handshake status to the host.
type HandshakeStatus = handshakefsm.Status

// Handshake status values a Wrap/Unwrap call can report. NeedTask is never
// returned: this engine has no pluggable delegated tasks (OCSP fetch,
// trust-store lookups) that would run off the calling goroutine.
const (
	NeedWrap       = handshakefsm.StatusNeedWrap
	NeedUnwrap     = handshakefsm.StatusNeedUnwrap
	NeedTask       = handshakefsm.StatusNeedTask
	Finished       = handshakefsm.StatusFinished
	NotHandshaking = handshakefsm.StatusNotHandshaking
)

// Result is the four-field outcome every Wrap/Unwrap call returns: what
// happened (Status), what the engine needs next (HandshakeStatus), and how
// many bytes of the source/destination buffers were touched.
type Result struct {
	Status          Status
	HandshakeStatus HandshakeStatus
	BytesConsumed   int
	BytesProduced   int
}
