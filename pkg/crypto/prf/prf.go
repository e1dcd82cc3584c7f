// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package prf implements the TLS pseudo-random function (RFC 5246 §5), the
// master secret and key block derivations built on it (RFC 5246 §6.3,
// §8.1), and the Finished message verify_data computation (RFC 5246 §7.4.9).
// TLS 1.2 uses a single HMAC hash (almost always SHA-256); TLS 1.0 and 1.1
// use the legacy MD5+SHA1 combined construction, kept here only for
// interoperability with peers this engine does not initiate a connection
// to negotiate below 1.2 unless explicitly configured.
package prf

import (
	"crypto/hmac"
	"crypto/md5"  //nolint:gosec // required by the TLS 1.0/1.1 PRF, not used for security
	"crypto/sha1" //nolint:gosec // required by the TLS 1.0/1.1 PRF, not used for security
	"hash"
)

const (
	masterSecretLength = 48
	verifyDataLength   = 12

	labelMasterSecret     = "master secret"
	labelKeyExpansion     = "key expansion"
	labelClientFinished   = "client finished"
	labelServerFinished   = "server finished"
)

// pHash implements P_hash(secret, seed) from RFC 5246 §5: an HMAC-based
// byte stream of arbitrary length, expanded by repeatedly chaining
// A(i) = HMAC_hash(secret, A(i-1)) with A(0) = seed.
func pHash(secret, seed []byte, length int, newHash func() hash.Hash) []byte {
	out := make([]byte, 0, length)

	a := seed
	for len(out) < length {
		h := hmac.New(newHash, secret)
		h.Write(a) //nolint:errcheck
		a = h.Sum(nil)

		h = hmac.New(newHash, secret)
		h.Write(a)    //nolint:errcheck
		h.Write(seed) //nolint:errcheck
		out = append(out, h.Sum(nil)...)
	}
	return out[:length]
}

// pHashMD5SHA1 implements the legacy TLS 1.0/1.1 PRF (RFC 2246 §5): the
// secret is split into two halves (overlapping by one byte if the length
// is odd), P_MD5 and P_SHA1 are each expanded over the seed with their own
// half, and the two streams are XORed together.
func pHashMD5SHA1(secret, seed []byte, length int) []byte {
	half := (len(secret) + 1) / 2
	s1 := secret[:half]
	s2 := secret[len(secret)-half:]

	md5Stream := pHash(s1, seed, length, md5.New)
	sha1Stream := pHash(s2, seed, length, sha1.New)

	out := make([]byte, length)
	for i := range out {
		out[i] = md5Stream[i] ^ sha1Stream[i]
	}
	return out
}

func expand(secret []byte, label string, seed []byte, length int, newHash func() hash.Hash) []byte {
	fullSeed := append([]byte(label), seed...)
	if newHash == nil {
		return pHashMD5SHA1(secret, fullSeed, length)
	}
	return pHash(secret, fullSeed, length, newHash)
}

// MasterSecret derives the 48-byte master secret from the pre-master
// secret and both hello randoms (RFC 5246 §8.1):
//
//	master_secret = PRF(pre_master_secret, "master secret",
//	                     ClientHello.random + ServerHello.random)
//
// Pass newHash as nil to use the legacy TLS 1.0/1.1 combined PRF.
func MasterSecret(preMasterSecret, clientRandom, serverRandom []byte, newHash func() hash.Hash) ([]byte, error) {
	seed := append(append([]byte{}, clientRandom...), serverRandom...)
	return expand(preMasterSecret, labelMasterSecret, seed, masterSecretLength, newHash), nil
}

// ExtendedMasterSecret derives the master secret per RFC 7627: the seed is
// the SHA-256 (or PRF hash) digest of the full handshake transcript up to
// and including ClientKeyExchange, instead of the two hello randoms. This
// binds the master secret to the exact handshake that produced it,
// closing the triple-handshake and renegotiation session-confusion
// vulnerabilities RFC 7627 addresses.
func ExtendedMasterSecret(preMasterSecret, sessionHash []byte, newHash func() hash.Hash) ([]byte, error) {
	return expand(preMasterSecret, "extended master secret", sessionHash, masterSecretLength, newHash), nil
}

// EncryptionKeys holds every secret value sliced out of the TLS key block
// (RFC 5246 §6.3): MAC keys (present only for non-AEAD suites), bulk
// cipher keys, and fixed IVs (present only for AEAD suites, which derive
// their explicit per-record nonce separately).
type EncryptionKeys struct {
	MasterSecret   []byte
	ClientMACKey   []byte
	ServerMACKey   []byte
	ClientWriteKey []byte
	ServerWriteKey []byte
	ClientWriteIV  []byte
	ServerWriteIV  []byte
}

// GenerateEncryptionKeys expands the master secret into the key block
// (RFC 5246 §6.3):
//
//	key_block = PRF(SecurityParameters.master_secret, "key expansion",
//	                 SecurityParameters.server_random + SecurityParameters.client_random)
//
// and slices it into MAC keys, write keys, and write IVs in wire order.
func GenerateEncryptionKeys(masterSecret, clientRandom, serverRandom []byte, macLen, keyLen, ivLen int, newHash func() hash.Hash) (*EncryptionKeys, error) {
	seed := append(append([]byte{}, serverRandom...), clientRandom...)
	totalLen := 2*macLen + 2*keyLen + 2*ivLen
	keyBlock := expand(masterSecret, labelKeyExpansion, seed, totalLen, newHash)

	offset := 0
	next := func(n int) []byte {
		b := keyBlock[offset : offset+n]
		offset += n
		return b
	}

	clientMACKey := next(macLen)
	serverMACKey := next(macLen)
	clientWriteKey := next(keyLen)
	serverWriteKey := next(keyLen)
	clientWriteIV := next(ivLen)
	serverWriteIV := next(ivLen)

	return &EncryptionKeys{
		MasterSecret:   masterSecret,
		ClientMACKey:   clientMACKey,
		ServerMACKey:   serverMACKey,
		ClientWriteKey: clientWriteKey,
		ServerWriteKey: serverWriteKey,
		ClientWriteIV:  clientWriteIV,
		ServerWriteIV:  serverWriteIV,
	}, nil
}

func verifyData(masterSecret []byte, label string, handshakeMessages []byte, newHash func() hash.Hash) ([]byte, error) {
	var seed []byte
	if newHash == nil {
		md5Hasher := md5.New()  //nolint:gosec
		sha1Hasher := sha1.New() //nolint:gosec
		md5Hasher.Write(handshakeMessages)  //nolint:errcheck
		sha1Hasher.Write(handshakeMessages) //nolint:errcheck
		seed = append(md5Hasher.Sum(nil), sha1Hasher.Sum(nil)...)
	} else {
		h := newHash()
		h.Write(handshakeMessages) //nolint:errcheck
		seed = h.Sum(nil)
	}
	return expand(masterSecret, label, seed, verifyDataLength, newHash), nil
}

// VerifyDataClient computes the client's Finished verify_data (RFC 5246
// §7.4.9): PRF(master_secret, "client finished", Hash(handshake_messages))[0:12].
func VerifyDataClient(masterSecret, handshakeMessages []byte, newHash func() hash.Hash) ([]byte, error) {
	return verifyData(masterSecret, labelClientFinished, handshakeMessages, newHash)
}

// VerifyDataServer computes the server's Finished verify_data.
func VerifyDataServer(masterSecret, handshakeMessages []byte, newHash func() hash.Hash) ([]byte, error) {
	return verifyData(masterSecret, labelServerFinished, handshakeMessages, newHash)
}

// ExportKeyingMaterial derives additional keying material from the master
// secret for a completed handshake (RFC 5705 §4):
//
//	PRF(master_secret, label, client_random + server_random [+ context])[0:length]
//
// A non-nil context is appended length-prefixed per RFC 5705's
// use-context-value form. Pass newHash as nil for the legacy TLS 1.0/1.1
// combined PRF.
func ExportKeyingMaterial(masterSecret []byte, label string, clientRandom, serverRandom, context []byte, length int, newHash func() hash.Hash) ([]byte, error) {
	seed := append(append([]byte{}, clientRandom...), serverRandom...)
	if context != nil {
		seed = append(seed, byte(len(context)>>8), byte(len(context)))
		seed = append(seed, context...)
	}
	return expand(masterSecret, label, seed, length, newHash), nil
}
