// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package ciphersuite implements the bulk-cipher half of a TLS cipher
// suite: AEAD record protection (GCM) and legacy CBC+HMAC record
// protection, plus the static table mapping a 16-bit suite ID to its
// key-exchange algorithm, signature algorithm, bulk cipher, and PRF hash.
package ciphersuite

import (
	"crypto"
	"errors"

	"github.com/censys-oss/tls-engine/pkg/protocol/recordlayer"
)

var (
	errNotEnoughRoomForNonce = errors.New("ciphersuite: payload too small to contain nonce")
	errDecryptPacket         = errors.New("ciphersuite: failed to decrypt packet")
)

// KeyExchangeAlgorithm identifies how the premaster secret is established.
type KeyExchangeAlgorithm byte

// Key exchange algorithms this engine negotiates.
const (
	KeyExchangeRSA   KeyExchangeAlgorithm = iota // static RSA key transport
	KeyExchangeECDHE                             // ephemeral ECDH, signed
)

// SignatureAlgorithm identifies the certificate/ServerKeyExchange signature type.
type SignatureAlgorithm byte

// Signature algorithms this engine negotiates.
const (
	SignatureRSA SignatureAlgorithm = iota
	SignatureECDSA
	SignatureAnonymous // used only by KeyExchangeRSA suites, which sign nothing
)

// BulkCipherType distinguishes AEAD suites (GCM) from legacy CBC+HMAC suites.
type BulkCipherType byte

// Bulk cipher types.
const (
	BulkCipherAEAD BulkCipherType = iota
	BulkCipherCBC
)

// CipherSuite is a negotiable TLS cipher suite: the static shape a suite ID
// maps to, plus the stateful record-protection operations once keys are derived.
type CipherSuite interface {
	ID() uint16
	String() string
	KeyExchangeAlgorithm() KeyExchangeAlgorithm
	SignatureAlgorithm() SignatureAlgorithm
	BulkCipherType() BulkCipherType
	PRFHash() crypto.Hash
	KeyLength() int
	IVLength() int
	IsInitialized() bool

	// Init derives local/remote keys from the key block produced by the
	// PRF and switches the suite into the initialized state.
	Init(key, iv, remoteKey, remoteIV []byte, isClient bool) error

	// Encrypt protects one outbound record's plaintext payload, returning
	// the ciphertext to place after the (already-marshaled) record header.
	Encrypt(header recordlayer.Header, seq uint64, payload []byte) ([]byte, error)
	// Decrypt authenticates and decrypts one inbound record's ciphertext
	// payload (header already parsed, payload excludes the 5-byte header).
	Decrypt(header recordlayer.Header, seq uint64, payload []byte) ([]byte, error)
}

// Descriptor is the static (pre-negotiation) shape of a cipher suite: the
// algorithms its ID commits both sides to, independent of any live keys.
type Descriptor struct {
	ID                 uint16
	Name               string
	KeyExchange        KeyExchangeAlgorithm
	Signature          SignatureAlgorithm
	Bulk               BulkCipherType
	KeyLen, IVLen, MACLen int
	PRFHash            crypto.Hash
	New                func() CipherSuite
}

// registry is the static table of cipher suites this engine can negotiate,
// in the server's default preference order (strongest/most modern first).
var registry = []Descriptor{ //nolint:gochecknoglobals
	{
		ID: 0xc02f, Name: "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
		KeyExchange: KeyExchangeECDHE, Signature: SignatureRSA, Bulk: BulkCipherAEAD,
		KeyLen: 16, IVLen: 4, PRFHash: crypto.SHA256,
		New: func() CipherSuite { return newGCM(crypto.SHA256, 16) },
	},
	{
		ID: 0xc02b, Name: "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256",
		KeyExchange: KeyExchangeECDHE, Signature: SignatureECDSA, Bulk: BulkCipherAEAD,
		KeyLen: 16, IVLen: 4, PRFHash: crypto.SHA256,
		New: func() CipherSuite { return newGCM(crypto.SHA256, 16) },
	},
	{
		ID: 0xc030, Name: "TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384",
		KeyExchange: KeyExchangeECDHE, Signature: SignatureRSA, Bulk: BulkCipherAEAD,
		KeyLen: 32, IVLen: 4, PRFHash: crypto.SHA384,
		New: func() CipherSuite { return newGCM(crypto.SHA384, 32) },
	},
	{
		ID: 0x009c, Name: "TLS_RSA_WITH_AES_128_GCM_SHA256",
		KeyExchange: KeyExchangeRSA, Signature: SignatureAnonymous, Bulk: BulkCipherAEAD,
		KeyLen: 16, IVLen: 4, PRFHash: crypto.SHA256,
		New: func() CipherSuite { return newGCM(crypto.SHA256, 16) },
	},
	{
		ID: 0x002f, Name: "TLS_RSA_WITH_AES_128_CBC_SHA",
		KeyExchange: KeyExchangeRSA, Signature: SignatureAnonymous, Bulk: BulkCipherCBC,
		KeyLen: 16, IVLen: 16, MACLen: 20, PRFHash: crypto.SHA256,
		New: func() CipherSuite { return newCBC(crypto.SHA256, 20, 16, 16) },
	},
	{
		ID: 0xc013, Name: "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA",
		KeyExchange: KeyExchangeECDHE, Signature: SignatureRSA, Bulk: BulkCipherCBC,
		KeyLen: 16, IVLen: 16, MACLen: 20, PRFHash: crypto.SHA256,
		New: func() CipherSuite { return newCBC(crypto.SHA256, 20, 16, 16) },
	},
}

// Descriptors returns the full static registry, in default preference order.
func Descriptors() []Descriptor {
	return append([]Descriptor{}, registry...)
}

// Lookup finds a suite's Descriptor by ID.
func Lookup(id uint16) (Descriptor, bool) {
	for _, d := range registry {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ExpansionMax is the largest per-record ciphertext expansion among every
// registered suite, used by callers sizing wrap output buffers (spec §4.1).
func ExpansionMax() int {
	max := 0
	for _, d := range registry {
		var exp int
		switch d.Bulk {
		case BulkCipherAEAD:
			exp = 8 + 16 // explicit nonce + GCM tag
		case BulkCipherCBC:
			exp = d.IVLen + d.MACLen + 16 // explicit IV + MAC + max padding block
		}
		if exp > max {
			max = exp
		}
	}
	return max
}
