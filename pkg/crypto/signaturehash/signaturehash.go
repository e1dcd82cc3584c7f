// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package signaturehash resolves a wire SignatureAndHashAlgorithm pair
// (RFC 5246 §7.4.1.4.1) to a crypto.Hash and a signing/verification
// function, and implements the RSA and ECDSA signature operations this
// engine needs for ServerKeyExchange (RFC 4492 §5.4) and CertificateVerify
// (RFC 5246 §7.4.8).
package signaturehash

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"errors"

	// registers SHA-1/256/384/512 with the crypto.Hash registry used below
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
)

var (
	errUnsupportedHashAlgorithm      = errors.New("signaturehash: unsupported hash algorithm")
	errUnsupportedSignatureAlgorithm = errors.New("signaturehash: unsupported signature algorithm")
	errNotRSAPrivateKey              = errors.New("signaturehash: private key is not an RSA key")
	errNotECDSAPrivateKey            = errors.New("signaturehash: private key is not an ECDSA key")
	errNotRSAPublicKey               = errors.New("signaturehash: public key is not an RSA key")
	errNotECDSAPublicKey             = errors.New("signaturehash: public key is not an ECDSA key")
)

// HashAlgorithm is the wire hash identifier half of a SignatureAndHashAlgorithm.
type HashAlgorithm byte

// Hash algorithms from the TLS 1.2 registry (RFC 5246 §7.4.1.4.1) this engine uses.
const (
	HashSHA1   HashAlgorithm = 2
	HashSHA256 HashAlgorithm = 4
	HashSHA384 HashAlgorithm = 5
	HashSHA512 HashAlgorithm = 6
)

// SigAlgorithm is the wire signature identifier half of a SignatureAndHashAlgorithm.
type SigAlgorithm byte

// Signature algorithms from the TLS 1.2 registry this engine uses.
const (
	SigRSA   SigAlgorithm = 1
	SigECDSA SigAlgorithm = 3
)

// Algorithm is a decoded {hash, signature} pair, the value carried 16 bits
// wide on the wire as (HashAlgorithm<<8)|SigAlgorithm.
type Algorithm struct {
	Hash HashAlgorithm
	Sig  SigAlgorithm
}

// Decode splits a wire SignatureScheme/SignatureAndHashAlgorithm value.
func Decode(scheme uint16) Algorithm {
	return Algorithm{Hash: HashAlgorithm(scheme >> 8), Sig: SigAlgorithm(scheme & 0xff)}
}

// Encode packs an Algorithm back into its wire representation.
func (a Algorithm) Encode() uint16 {
	return uint16(a.Hash)<<8 | uint16(a.Sig)
}

func (a Algorithm) cryptoHash() (crypto.Hash, error) {
	switch a.Hash {
	case HashSHA1:
		return crypto.SHA1, nil
	case HashSHA256:
		return crypto.SHA256, nil
	case HashSHA384:
		return crypto.SHA384, nil
	case HashSHA512:
		return crypto.SHA512, nil
	default:
		return 0, errUnsupportedHashAlgorithm
	}
}

// DefaultAlgorithms is this engine's signature_algorithms extension offer,
// strongest first.
func DefaultAlgorithms() []Algorithm {
	return []Algorithm{
		{Hash: HashSHA256, Sig: SigECDSA},
		{Hash: HashSHA384, Sig: SigECDSA},
		{Hash: HashSHA256, Sig: SigRSA},
		{Hash: HashSHA384, Sig: SigRSA},
		{Hash: HashSHA1, Sig: SigRSA},
		{Hash: HashSHA1, Sig: SigECDSA},
	}
}

// Sign signs message with the given Algorithm and private key, used when
// this engine acts as a TLS server composing a ServerKeyExchange signature
// or a client composing a CertificateVerify signature.
func Sign(algo Algorithm, privateKey crypto.Signer, message []byte) ([]byte, error) {
	hash, err := algo.cryptoHash()
	if err != nil {
		return nil, err
	}
	digest := hashSum(hash, message)

	switch algo.Sig {
	case SigRSA:
		rsaKey, ok := privateKey.(*rsa.PrivateKey)
		if !ok {
			return nil, errNotRSAPrivateKey
		}
		return rsa.SignPKCS1v15(rand.Reader, rsaKey, hash, digest)
	case SigECDSA:
		if _, ok := privateKey.(*ecdsa.PrivateKey); !ok {
			return nil, errNotECDSAPrivateKey
		}
		return privateKey.Sign(rand.Reader, digest, hash)
	default:
		return nil, errUnsupportedSignatureAlgorithm
	}
}

// Verify checks a signature against message under the given Algorithm and
// public key, used to authenticate a peer's ServerKeyExchange or
// CertificateVerify.
func Verify(algo Algorithm, publicKey crypto.PublicKey, message, signature []byte) error {
	hash, err := algo.cryptoHash()
	if err != nil {
		return err
	}
	digest := hashSum(hash, message)

	switch algo.Sig {
	case SigRSA:
		rsaKey, ok := publicKey.(*rsa.PublicKey)
		if !ok {
			return errNotRSAPublicKey
		}
		return rsa.VerifyPKCS1v15(rsaKey, hash, digest, signature)
	case SigECDSA:
		ecdsaKey, ok := publicKey.(*ecdsa.PublicKey)
		if !ok {
			return errNotECDSAPublicKey
		}
		if !ecdsa.VerifyASN1(ecdsaKey, digest, signature) {
			return errors.New("signaturehash: ECDSA signature verification failed")
		}
		return nil
	default:
		return errUnsupportedSignatureAlgorithm
	}
}

func hashSum(h crypto.Hash, message []byte) []byte {
	hasher := h.New()
	hasher.Write(message) //nolint:errcheck
	return hasher.Sum(nil)
}
