// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package handshake implements the TLS handshake message vocabulary
// (RFC 5246 §7.3/§7.4): the 4-byte message header, the concrete message
// bodies, and the record-layer framing ("Fragment") used to carry an
// arbitrary-length handshake message across one or more TLS records.
package handshake

import (
	"github.com/censys-oss/tls-engine/pkg/protocol"
)

// Type identifies a handshake message (RFC 5246 §7.4).
type Type byte

// Handshake message types this engine speaks.
const (
	TypeHelloRequest       Type = 0
	TypeClientHello        Type = 1
	TypeServerHello        Type = 2
	TypeCertificate        Type = 11
	TypeServerKeyExchange  Type = 12
	TypeCertificateRequest Type = 13
	TypeServerHelloDone    Type = 14
	TypeCertificateVerify  Type = 15
	TypeClientKeyExchange  Type = 16
	TypeFinished           Type = 20
)

func (t Type) String() string {
	switch t {
	case TypeHelloRequest:
		return "HelloRequest"
	case TypeClientHello:
		return "ClientHello"
	case TypeServerHello:
		return "ServerHello"
	case TypeCertificate:
		return "Certificate"
	case TypeServerKeyExchange:
		return "ServerKeyExchange"
	case TypeCertificateRequest:
		return "CertificateRequest"
	case TypeServerHelloDone:
		return "ServerHelloDone"
	case TypeCertificateVerify:
		return "CertificateVerify"
	case TypeClientKeyExchange:
		return "ClientKeyExchange"
	case TypeFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Message is implemented by every concrete handshake message body.
type Message interface {
	Type() Type
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// Handshake pairs a Header with its decoded Message. It is the logical
// (fully reassembled) handshake message, as handed to the handshake state
// machine — distinct from Fragment, the wire-level record-layer Content.
type Handshake struct {
	Header  Header
	Message Message
}

// Marshal encodes the full handshake message (header + body) as a
// contiguous byte stream, with no record-layer framing. The outbound
// record-layer pipeline is responsible for splitting this across records.
func (h *Handshake) Marshal() ([]byte, error) {
	body, err := h.Message.Marshal()
	if err != nil {
		return nil, err
	}
	h.Header.Type = h.Message.Type()
	h.Header.Length = uint32(len(body))

	header, err := h.Header.Marshal()
	if err != nil {
		return nil, err
	}
	return append(header, body...), nil
}

// Unmarshal decodes a complete handshake message (header + body) from a
// fully reassembled byte stream.
func (h *Handshake) Unmarshal(data []byte) error {
	if err := h.Header.Unmarshal(data); err != nil {
		return err
	}
	body := data[h.Header.Size():]
	if uint32(len(body)) < h.Header.Length {
		return errBufferTooSmall
	}
	body = body[:h.Header.Length]

	msg, err := newMessage(h.Header.Type)
	if err != nil {
		return err
	}
	if err := msg.Unmarshal(body); err != nil {
		return err
	}
	h.Message = msg
	return nil
}

func newMessage(t Type) (Message, error) {
	switch t {
	case TypeClientHello:
		return &MessageClientHello{}, nil
	case TypeServerHello:
		return &MessageServerHello{}, nil
	case TypeCertificate:
		return &MessageCertificate{}, nil
	case TypeServerKeyExchange:
		return &MessageServerKeyExchange{}, nil
	case TypeCertificateRequest:
		return &MessageCertificateRequest{}, nil
	case TypeServerHelloDone:
		return &MessageServerHelloDone{}, nil
	case TypeCertificateVerify:
		return &MessageCertificateVerify{}, nil
	case TypeClientKeyExchange:
		return &MessageClientKeyExchange{}, nil
	case TypeFinished:
		return &MessageFinished{}, nil
	default:
		return nil, errInvalidHandshakeType
	}
}

// Fragment is the record-layer Content type for content-type Handshake. TLS
// (unlike DTLS) has no fragment-offset/length framing: a handshake message
// is simply a byte stream chopped at arbitrary record boundaries. Fragment
// just carries its slice of that stream; internal/fragmentbuffer
// concatenates consecutive fragments and pops whole Handshake messages once
// enough bytes have arrived.
type Fragment struct {
	Raw []byte
}

// ContentType returns the Content Type of a Fragment: Handshake.
func (f Fragment) ContentType() protocol.ContentType {
	return protocol.ContentTypeHandshake
}

// Marshal encodes the Fragment by returning its raw bytes unchanged.
func (f *Fragment) Marshal() ([]byte, error) {
	return append([]byte{}, f.Raw...), nil
}

// Unmarshal decodes the Fragment by copying the raw bytes unchanged.
func (f *Fragment) Unmarshal(data []byte) error {
	f.Raw = append([]byte{}, data...)
	return nil
}
