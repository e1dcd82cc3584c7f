// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package keyexchange computes the pre-master secret for the two key
// exchange algorithms this engine negotiates: ephemeral ECDH (RFC 4492/8422,
// offered via the supported_groups extension) and static RSA key transport
// (RFC 5246 §7.4.7.1). The curve math mirrors the teacher's dtls/v2 elliptic
// helpers (curve25519 for X25519, crypto/elliptic scalar multiplication for
// the NIST curves); that package wasn't present in the retrieval pack, so
// this is rebuilt directly against golang.org/x/crypto/curve25519 and the
// standard library's crypto/elliptic, which the teacher also pulls in.
package keyexchange

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"

	"github.com/censys-oss/tls-engine/pkg/protocol/extension"
)

var (
	errUnsupportedCurve    = errors.New("keyexchange: unsupported named curve")
	errInvalidPublicKey    = errors.New("keyexchange: invalid public key point")
	errRSAVersionMismatch  = errors.New("keyexchange: RSA pre-master secret version mismatch")
	errRSAPreMasterTooSmall = errors.New("keyexchange: RSA pre-master secret must be 48 bytes")
)

func namedCurveToEllipticCurve(curve extension.NamedCurve) (elliptic.Curve, bool) {
	switch curve {
	case extension.Secp256r1:
		return elliptic.P256(), true
	case extension.Secp384r1:
		return elliptic.P384(), true
	default:
		return nil, false
	}
}

// GenerateKeypair generates an ephemeral key pair for the given named
// curve, returning the wire-format public key (uncompressed point, or raw
// 32-byte X25519 key) and the opaque private key.
func GenerateKeypair(curve extension.NamedCurve) (publicKey, privateKey []byte, err error) {
	if curve == extension.X25519 {
		privateKey = make([]byte, curve25519.ScalarSize)
		if _, err := io.ReadFull(rand.Reader, privateKey); err != nil {
			return nil, nil, err
		}
		publicKey, err = curve25519.X25519(privateKey, curve25519.Basepoint)
		if err != nil {
			return nil, nil, err
		}
		return publicKey, privateKey, nil
	}

	ellipticCurve, ok := namedCurveToEllipticCurve(curve)
	if !ok {
		return nil, nil, errUnsupportedCurve
	}
	key, err := ecdsa.GenerateKey(ellipticCurve, rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	publicKey = elliptic.Marshal(ellipticCurve, key.X, key.Y) //nolint:staticcheck // wire format requires the legacy uncompressed encoding
	privateKey = key.D.Bytes()
	return publicKey, privateKey, nil
}

// PreMasterSecret computes the shared ECDH secret from the peer's public
// key and this side's private key, for the named curve negotiated in
// ServerKeyExchange/supported_groups.
func PreMasterSecret(publicKey, privateKey []byte, curve extension.NamedCurve) ([]byte, error) {
	if curve == extension.X25519 {
		return curve25519.X25519(privateKey, publicKey)
	}

	ellipticCurve, ok := namedCurveToEllipticCurve(curve)
	if !ok {
		return nil, errUnsupportedCurve
	}
	x, y := elliptic.Unmarshal(ellipticCurve, publicKey) //nolint:staticcheck // matches the legacy wire encoding GenerateKeypair emits
	if x == nil {
		return nil, errInvalidPublicKey
	}
	sharedX, _ := ellipticCurve.ScalarMult(x, y, privateKey)
	byteLen := (ellipticCurve.Params().BitSize + 7) / 8
	out := make([]byte, byteLen)
	sharedX.FillBytes(out)
	return out, nil
}

// GenerateRSAPreMasterSecret builds the 48-byte static-RSA pre-master
// secret: a 2-byte client-offered protocol version followed by 46 random
// bytes (RFC 5246 §7.4.7.1), the plaintext a client RSA-encrypts into
// ClientKeyExchange under the server's certificate public key.
func GenerateRSAPreMasterSecret(clientVersionMajor, clientVersionMinor byte) ([]byte, error) {
	preMasterSecret := make([]byte, 48)
	preMasterSecret[0] = clientVersionMajor
	preMasterSecret[1] = clientVersionMinor
	if _, err := io.ReadFull(rand.Reader, preMasterSecret[2:]); err != nil {
		return nil, err
	}
	return preMasterSecret, nil
}

// ValidateRSAPreMasterSecret checks the version bytes of a decrypted
// static-RSA pre-master secret against the ClientHello version the server
// recorded, per the rollback-attack countermeasure in RFC 5246 §7.4.7.1.
// Implementations are permitted to accept a mismatch silently to avoid a
// Bleichenbacher oracle; callers that choose to enforce it can use this.
func ValidateRSAPreMasterSecret(preMasterSecret []byte, clientVersionMajor, clientVersionMinor byte) error {
	if len(preMasterSecret) != 48 {
		return errRSAPreMasterTooSmall
	}
	if preMasterSecret[0] != clientVersionMajor || preMasterSecret[1] != clientVersionMinor {
		return errRSAVersionMismatch
	}
	return nil
}
