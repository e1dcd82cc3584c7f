// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package alert implements the TLS Alert protocol (RFC 5246 §7.2): the
// two-byte {level, description} pseudo-message content type 21.
package alert

import (
	"errors"
	"fmt"

	"github.com/censys-oss/tls-engine/pkg/protocol"
)

var errBufferTooSmall = errors.New("alert: buffer too small to decode")

// Level is the severity of an Alert. Any Fatal alert immediately and
// permanently closes the connection after the record carrying it is
// flushed; a Warning leaves the connection open except for CloseNotify,
// which always closes its direction regardless of level received.
type Level byte

// Alert levels per RFC 5246 §7.2.
const (
	Warning Level = 1
	Fatal   Level = 2
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "Warning"
	case Fatal:
		return "Fatal"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(l))
	}
}

// Description enumerates the IANA TLS Alert registry values this engine
// produces or must be able to parse from a peer.
type Description byte

// Alert descriptions per RFC 5246 §7.2.2 and the IANA TLS Alert registry.
const (
	CloseNotify              Description = 0
	UnexpectedMessage        Description = 10
	BadRecordMac             Description = 20
	DecryptionFailedRESERVED Description = 21
	RecordOverflow           Description = 22
	DecompressionFailure     Description = 30
	HandshakeFailure         Description = 40
	NoCertificateRESERVED    Description = 41
	BadCertificate           Description = 42
	UnsupportedCertificate   Description = 43
	CertificateRevoked       Description = 44
	CertificateExpired       Description = 45
	CertificateUnknown       Description = 46
	IllegalParameter         Description = 47
	UnknownCA                Description = 48
	AccessDenied             Description = 49
	DecodeError              Description = 50
	DecryptError             Description = 51
	ExportRestrictionRESERVED Description = 60
	ProtocolVersion          Description = 70
	InsufficientSecurity     Description = 71
	InternalError            Description = 80
	InappropriateFallback    Description = 86
	UserCanceled             Description = 90
	NoRenegotiation          Description = 100
	UnsupportedExtension     Description = 110
	NoApplicationProtocol    Description = 120
)

var descriptionNames = map[Description]string{ //nolint:gochecknoglobals
	CloseNotify:               "close_notify",
	UnexpectedMessage:         "unexpected_message",
	BadRecordMac:              "bad_record_mac",
	DecryptionFailedRESERVED:  "decryption_failed_RESERVED",
	RecordOverflow:            "record_overflow",
	DecompressionFailure:      "decompression_failure",
	HandshakeFailure:          "handshake_failure",
	NoCertificateRESERVED:     "no_certificate_RESERVED",
	BadCertificate:            "bad_certificate",
	UnsupportedCertificate:    "unsupported_certificate",
	CertificateRevoked:        "certificate_revoked",
	CertificateExpired:        "certificate_expired",
	CertificateUnknown:        "certificate_unknown",
	IllegalParameter:          "illegal_parameter",
	UnknownCA:                 "unknown_ca",
	AccessDenied:              "access_denied",
	DecodeError:               "decode_error",
	DecryptError:              "decrypt_error",
	ExportRestrictionRESERVED: "export_restriction_RESERVED",
	ProtocolVersion:           "protocol_version",
	InsufficientSecurity:      "insufficient_security",
	InternalError:             "internal_error",
	InappropriateFallback:     "inappropriate_fallback",
	UserCanceled:              "user_canceled",
	NoRenegotiation:           "no_renegotiation",
	UnsupportedExtension:      "unsupported_extension",
	NoApplicationProtocol:     "no_application_protocol",
}

func (d Description) String() string {
	if name, ok := descriptionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", byte(d))
}

// Alert is the content of a TLS alert record.
type Alert struct {
	Level       Level
	Description Description
}

// ContentType returns the Content Type of an Alert.
func (a Alert) ContentType() protocol.ContentType {
	return protocol.ContentTypeAlert
}

// Marshal encodes the Alert.
func (a *Alert) Marshal() ([]byte, error) {
	return []byte{byte(a.Level), byte(a.Description)}, nil
}

// Unmarshal decodes the Alert.
func (a *Alert) Unmarshal(data []byte) error {
	if len(data) != 2 {
		return errBufferTooSmall
	}
	a.Level = Level(data[0])
	a.Description = Description(data[1])
	return nil
}

func (a *Alert) String() string {
	return fmt.Sprintf("%s: %s", a.Level, a.Description)
}

// Error is a Go error wrapping a TLS Alert, returned by the engine whenever
// a protocol failure is translated to a fatal (or close_notify) alert. It
// carries enough to let host code decide via errors.As whether the
// connection is now unusable. Wrapped, if set, is the underlying cause
// (a parse failure, a MAC mismatch) that triggered the alert.
type Error struct {
	Alert   *Alert
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("tls alert: %s: %v", e.Alert, e.Wrapped)
	}
	return fmt.Sprintf("tls alert: %s", e.Alert)
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// IsFatalOrCloseNotify reports whether this error represents either a fatal
// alert or a (warning-level) close_notify — the two cases that end a
// direction's traffic for good.
func (e *Error) IsFatalOrCloseNotify() bool {
	return e.Alert.Level == Fatal || e.Alert.Description == CloseNotify
}

// New constructs an *Error for a given level/description, convenient at
// call sites that need to both return an error and know they must queue the
// same Alert for transmission.
func New(level Level, description Description) *Error {
	return &Error{Alert: &Alert{Level: level, Description: description}}
}

// NewFatal constructs a fatal *Error for a given description — the common case.
func NewFatal(description Description) *Error {
	return New(Fatal, description)
}
