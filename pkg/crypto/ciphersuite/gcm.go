// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/censys-oss/tls-engine/pkg/protocol/recordlayer"
)

const (
	gcmTagLength           = 16
	gcmNonceLength         = 12
	gcmExplicitNonceLength = 8
)

// gcm provides AEAD record protection for a TLS GCM cipher suite
// (RFC 5288), generalized from the teacher's DTLS GCM by keying the AAD
// off an explicit 64-bit sequence number supplied by the caller instead of
// a DTLS epoch/sequence pair baked into the record header.
type gcm struct {
	localGCM, remoteGCM         cipher.AEAD
	localWriteIV, remoteWriteIV []byte
	prfHash                     crypto.Hash
	keyLen                      int
	initialized                 bool
}

func newGCM(prfHash crypto.Hash, keyLen int) CipherSuite {
	return &gcm{prfHash: prfHash, keyLen: keyLen}
}

func (g *gcm) ID() uint16 { return 0 }

func (g *gcm) String() string { return "AES-GCM" }

func (g *gcm) KeyExchangeAlgorithm() KeyExchangeAlgorithm { return KeyExchangeECDHE }
func (g *gcm) SignatureAlgorithm() SignatureAlgorithm     { return SignatureRSA }
func (g *gcm) BulkCipherType() BulkCipherType             { return BulkCipherAEAD }
func (g *gcm) PRFHash() crypto.Hash                       { return g.prfHash }
func (g *gcm) KeyLength() int                             { return g.keyLen }
func (g *gcm) IVLength() int                              { return 4 }
func (g *gcm) IsInitialized() bool                        { return g.initialized }

// Init derives the local/remote AEAD ciphers from the PRF key block.
func (g *gcm) Init(localKey, localWriteIV, remoteKey, remoteWriteIV []byte, _ bool) error {
	localBlock, err := aes.NewCipher(localKey)
	if err != nil {
		return err
	}
	localGCM, err := cipher.NewGCM(localBlock)
	if err != nil {
		return err
	}

	remoteBlock, err := aes.NewCipher(remoteKey)
	if err != nil {
		return err
	}
	remoteGCM, err := cipher.NewGCM(remoteBlock)
	if err != nil {
		return err
	}

	g.localGCM = localGCM
	g.localWriteIV = localWriteIV
	g.remoteGCM = remoteGCM
	g.remoteWriteIV = remoteWriteIV
	g.initialized = true
	return nil
}

// Encrypt seals a TLS GCM record (RFC 5288 §3): the nonce is the 4-byte
// fixed IV concatenated with an 8-byte explicit part sent alongside the
// ciphertext, the AAD is seq_num(8) || type(1) || version(2) || length(2).
func (g *gcm) Encrypt(header recordlayer.Header, seq uint64, payload []byte) ([]byte, error) {
	nonce := make([]byte, gcmNonceLength)
	copy(nonce, g.localWriteIV[:4])
	if _, err := rand.Read(nonce[4:]); err != nil {
		return nil, err
	}

	additionalData := generateAEADAdditionalData(header, seq, len(payload))
	sealed := g.localGCM.Seal(nil, nonce, payload, additionalData)

	out := make([]byte, 0, gcmExplicitNonceLength+len(sealed))
	out = append(out, nonce[4:]...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt opens a TLS GCM record.
func (g *gcm) Decrypt(header recordlayer.Header, seq uint64, payload []byte) ([]byte, error) {
	if len(payload) <= gcmExplicitNonceLength+gcmTagLength {
		return nil, errNotEnoughRoomForNonce
	}

	nonce := make([]byte, 0, gcmNonceLength)
	nonce = append(nonce, g.remoteWriteIV[:4]...)
	nonce = append(nonce, payload[:gcmExplicitNonceLength]...)

	ciphertext := payload[gcmExplicitNonceLength:]
	additionalData := generateAEADAdditionalData(header, seq, len(ciphertext)-gcmTagLength)

	plaintext, err := g.remoteGCM.Open(ciphertext[:0], nonce, ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDecryptPacket, err) //nolint:errorlint
	}
	return plaintext, nil
}

// generateAEADAdditionalData builds the 13-byte TLS 1.2 AEAD associated
// data: seq_num(8) || type(1) || version(2) || length(2) (RFC 5246 §6.2.3.3).
func generateAEADAdditionalData(header recordlayer.Header, seq uint64, payloadLen int) []byte {
	var additionalData [13]byte
	binary.BigEndian.PutUint64(additionalData[:8], seq)
	additionalData[8] = byte(header.ContentType)
	additionalData[9] = header.Version.Major
	additionalData[10] = header.Version.Minor
	binary.BigEndian.PutUint16(additionalData[11:13], uint16(payloadLen))
	return additionalData[:]
}
