// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshakefsm

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"

	"github.com/censys-oss/tls-engine/callbacks"
	"github.com/censys-oss/tls-engine/pkg/crypto/ciphersuite"
	"github.com/censys-oss/tls-engine/pkg/crypto/keyexchange"
	"github.com/censys-oss/tls-engine/pkg/crypto/signaturehash"
	"github.com/censys-oss/tls-engine/pkg/protocol"
	"github.com/censys-oss/tls-engine/pkg/protocol/alert"
	"github.com/censys-oss/tls-engine/pkg/protocol/extension"
	"github.com/censys-oss/tls-engine/pkg/protocol/handshake"
	"github.com/censys-oss/tls-engine/session"
)

func (f *FSM) cipherSuiteIDs() []uint16 {
	if len(f.cfg.CipherSuites) > 0 {
		return f.cfg.CipherSuites
	}
	ids := make([]uint16, 0, len(ciphersuite.Descriptors()))
	for _, d := range ciphersuite.Descriptors() {
		ids = append(ids, d.ID)
	}
	return ids
}

func (f *FSM) buildClientHello() (*handshake.Handshake, error) {
	if err := f.params.ClientRandom.Populate(); err != nil {
		return nil, err
	}
	f.params.SessionID = nil

	if f.cfg.SessionCache != nil {
		if cached, ok := f.cfg.SessionCache.Get(f.cfg.ServerName); ok {
			f.params.SessionID = []byte(cached.ID)
			f.resumeCandidate = cached
		}
	}

	exts := []extension.Extension{
		&extension.SupportedGroups{Groups: []extension.NamedCurve{extension.X25519, extension.Secp256r1, extension.Secp384r1}},
		&extension.SupportedPointFormats{PointFormats: []byte{extension.PointFormatUncompressed}},
		&extension.SignatureAlgorithms{Schemes: algorithmsToSchemes(signaturehash.DefaultAlgorithms())},
		&extension.RenegotiationInfo{},
		&extension.UseExtendedMasterSecret{Supported: true},
	}
	if f.cfg.ServerName != "" {
		exts = append(exts, &extension.ServerName{HostName: f.cfg.ServerName})
	}
	if len(f.cfg.ALPNProtocols) > 0 {
		exts = append(exts, &extension.ALPN{ProtocolNameList: f.cfg.ALPNProtocols})
	}

	version := f.cfg.MaxVersion
	if version.Equal(protocol.Version{}) {
		version = protocol.VersionTLS12
	}
	f.clientVersion = version

	hello := &handshake.MessageClientHello{
		Version:            version,
		Random:             f.params.ClientRandom,
		SessionID:          f.params.SessionID,
		CipherSuiteIDs:     f.cipherSuiteIDs(),
		CompressionMethods: protocol.DefaultCompressionMethods(),
		Extensions:         exts,
	}
	f.logc.ClientHello = hello
	return &handshake.Handshake{Message: hello}, nil
}

func algorithmsToSchemes(algos []signaturehash.Algorithm) []extension.SignatureScheme {
	out := make([]extension.SignatureScheme, len(algos))
	for i, a := range algos {
		out[i] = extension.SignatureScheme(a.Encode())
	}
	return out
}

func (f *FSM) stepClient(in *handshake.Handshake) ([]*handshake.Handshake, error) {
	if in == nil {
		return nil, nil
	}

	switch msg := in.Message.(type) {
	case *handshake.MessageServerHello:
		return f.clientHandleServerHello(msg)
	case *handshake.MessageCertificate:
		return f.clientHandleCertificate(msg)
	case *handshake.MessageServerKeyExchange:
		return nil, f.clientHandleServerKeyExchange(msg)
	case *handshake.MessageCertificateRequest:
		f.serverWantsClientCert = true
		return nil, nil
	case *handshake.MessageServerHelloDone:
		return f.clientHandleServerHelloDone()
	case *handshake.MessageFinished:
		return f.clientHandleFinished(in, msg)
	default:
		return nil, wrapAlert(alert.UnexpectedMessage, errUnexpectedMessage)
	}
}

func (f *FSM) clientHandleServerHello(msg *handshake.MessageServerHello) ([]*handshake.Handshake, error) {
	if msg.CipherSuiteID == nil {
		return nil, wrapAlert(alert.HandshakeFailure, errNoCipherSuiteChosen)
	}
	descriptor, ok := ciphersuite.Lookup(*msg.CipherSuiteID)
	if !ok {
		return nil, wrapAlert(alert.HandshakeFailure, errNoCipherSuiteChosen)
	}
	f.chosenSuite = descriptor
	f.params.CipherSuiteID = descriptor.ID
	f.params.NegotiatedVersion = msg.Version
	f.params.ServerRandom = msg.Random
	f.logc.ServerHello = msg
	f.log.Debugf("[%s] negotiated version=%s suite=%#04x", f.traceID, msg.Version, descriptor.ID)

	for _, ext := range msg.Extensions {
		switch e := ext.(type) {
		case *extension.UseExtendedMasterSecret:
			f.params.ExtendedMasterSecret = e.Supported
		case *extension.ALPN:
			if len(e.ProtocolNameList) > 0 {
				f.params.NegotiatedALPNProtocol = e.ProtocolNameList[0]
			}
		}
	}

	if f.resumeCandidate != nil && len(msg.SessionID) > 0 && string(msg.SessionID) == string(f.params.SessionID) {
		// Abbreviated handshake (RFC 5246 §7.3): the server sends its
		// ChangeCipherSpec/Finished first, so wait for it rather than
		// emitting ours now.
		f.params.MasterSecret = f.resumeCandidate.MasterSecret
		f.resuming = true
		f.cur = stepAwaitChangeCipherSpec
		return nil, nil
	}
	f.resumeCandidate = nil
	f.params.SessionID = msg.SessionID
	f.cur = stepAwaitCertificate
	return nil, nil
}

func (f *FSM) clientHandleCertificate(msg *handshake.MessageCertificate) ([]*handshake.Handshake, error) {
	chain, err := msg.ParsedChain()
	if err != nil {
		return nil, wrapAlert(alert.BadCertificate, err)
	}
	f.peerChain = chain
	f.logc.ServerCertificates = msg
	if f.cfg.TrustManager != nil {
		if err := f.cfg.TrustManager.VerifyPeerCertificate(msg.Certificates, chain); err != nil {
			return nil, wrapAlert(alert.BadCertificate, err)
		}
	}
	f.cur = stepAwaitServerKeyExchange
	return nil, nil
}

func (f *FSM) clientHandleServerKeyExchange(msg *handshake.MessageServerKeyExchange) error {
	if f.chosenSuite.KeyExchange != ciphersuite.KeyExchangeECDHE {
		return wrapAlert(alert.UnexpectedMessage, errUnexpectedMessage)
	}
	f.logc.ServerKeyExchange = msg
	curve := extension.NamedCurve(msg.Curve)

	if f.cfg.TrustManager != nil && len(f.peerChain) > 0 {
		algo := signaturehash.Decode(msg.SignatureScheme)
		signed := msg.SignedParams(f.params.ClientRandom.MarshalFixed(), f.params.ServerRandom.MarshalFixed())
		if err := f.crypto.VerifySignature(algo, f.peerChain[0].PublicKey, signed, msg.Signature); err != nil {
			return wrapAlert(alert.DecryptError, err)
		}
	}

	pub, priv, err := keyexchange.GenerateKeypair(curve)
	if err != nil {
		return wrapAlert(alert.InternalError, err)
	}
	preMasterSecret, err := keyexchange.PreMasterSecret(msg.PublicKey, priv, curve)
	if err != nil {
		return wrapAlert(alert.InternalError, err)
	}

	f.ecdhePub = pub
	f.preMasterSecret = preMasterSecret
	f.cur = stepAwaitServerHelloDone
	return nil
}

func (f *FSM) clientHandleServerHelloDone() ([]*handshake.Handshake, error) {
	var out []*handshake.Handshake
	var clientCert *tls.Certificate

	if f.serverWantsClientCert {
		if f.cfg.KeyManager != nil {
			cert, certErr := f.cfg.KeyManager.GetClientCertificate(&callbacks.CertificateRequestInfo{})
			if certErr == nil {
				clientCert = cert
			} else if certErr != callbacks.ErrNoCertificates {
				return nil, wrapAlert(alert.InternalError, certErr)
			}
		}
		certBody := &handshake.MessageCertificate{}
		if clientCert != nil {
			certBody.Certificates = clientCert.Certificate
		}
		f.logc.ClientCertificates = certBody
		certMsg := &handshake.Handshake{Message: certBody}
		f.cache.push(certMsg)
		out = append(out, certMsg)
	}

	var clientKeyExchangeRaw []byte
	var err error

	switch f.chosenSuite.KeyExchange {
	case ciphersuite.KeyExchangeECDHE:
		if f.preMasterSecret == nil {
			return nil, wrapAlert(alert.HandshakeFailure, errUnexpectedMessage)
		}
		clientKeyExchangeRaw = f.ecdhePub
	case ciphersuite.KeyExchangeRSA:
		f.preMasterSecret, err = keyexchange.GenerateRSAPreMasterSecret(f.clientVersion.Major, f.clientVersion.Minor)
		if err != nil {
			return nil, wrapAlert(alert.InternalError, err)
		}
		if len(f.peerChain) == 0 {
			return nil, wrapAlert(alert.HandshakeFailure, errNoCertificate)
		}
		rsaPub, ok := f.peerChain[0].PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, wrapAlert(alert.HandshakeFailure, errNoCertificate)
		}
		clientKeyExchangeRaw, err = rsa.EncryptPKCS1v15(rand.Reader, rsaPub, f.preMasterSecret)
		if err != nil {
			return nil, wrapAlert(alert.InternalError, err)
		}
	}

	cke := &handshake.MessageClientKeyExchange{Raw: clientKeyExchangeRaw, IsECDHE: f.chosenSuite.KeyExchange == ciphersuite.KeyExchangeECDHE}
	f.logc.ClientKeyExchange = cke
	clientKeyExchange := &handshake.Handshake{Message: cke}
	// Pushed before deriving the master secret: RFC 7627's session_hash
	// covers the transcript up to and including ClientKeyExchange.
	f.cache.push(clientKeyExchange)
	out = append(out, clientKeyExchange)

	var sessionHash []byte
	if f.params.ExtendedMasterSecret {
		sessionHash = f.cache.sum(f.params)
	}
	f.params.MasterSecret, err = f.crypto.MasterSecret(f.preMasterSecret, f.params.ClientRandom.Bytes(), f.params.ServerRandom.Bytes(), sessionHash, f.params.PRFHash())
	if err != nil {
		return nil, wrapAlert(alert.InternalError, err)
	}

	if clientCert != nil {
		verifyMsg, err := f.buildCertificateVerify(clientCert)
		if err != nil {
			return nil, err
		}
		f.cache.push(verifyMsg)
		out = append(out, verifyMsg)
	}

	finishedMsgs, err := f.emitFinished()
	if err != nil {
		return nil, err
	}
	return append(out, finishedMsgs...), nil
}

// buildCertificateVerify signs the handshake transcript taken up to (but
// excluding) this message under the client certificate's private key,
// proving possession of it (RFC 5246 §7.4.8).
func (f *FSM) buildCertificateVerify(clientCert *tls.Certificate) (*handshake.Handshake, error) {
	key, ok := clientCert.PrivateKey.(crypto.Signer)
	if !ok {
		return nil, wrapAlert(alert.InternalError, errNoCertificate)
	}
	algo := signaturehash.Algorithm{Hash: signaturehash.HashSHA256, Sig: signaturehash.SigRSA}
	if _, isECDSA := key.Public().(*ecdsa.PublicKey); isECDSA {
		algo.Sig = signaturehash.SigECDSA
	}
	sig, err := f.crypto.Sign(algo, key, f.cache.raw())
	if err != nil {
		return nil, wrapAlert(alert.InternalError, err)
	}
	verify := &handshake.MessageCertificateVerify{SignatureScheme: algo.Encode(), Signature: sig}
	return &handshake.Handshake{Message: verify}, nil
}

func (f *FSM) clientHandleFinished(in *handshake.Handshake, msg *handshake.MessageFinished) ([]*handshake.Handshake, error) {
	expected, err := f.verifyData(false)
	if err != nil {
		return nil, wrapAlert(alert.InternalError, err)
	}
	if string(expected) != string(msg.VerifyData) {
		return nil, wrapAlert(alert.DecryptError, errFinishedMismatch)
	}
	f.cache.push(in)
	f.lastFinishedVerifyData = msg.VerifyData
	f.logc.ServerFinished = msg

	if f.resuming {
		out, err := f.emitFinished()
		if err != nil {
			return nil, err
		}
		f.params.SetHandshakeCompleted()
		f.cur = stepDone
		f.log.Tracef("[%s] resumed handshake complete, suite=%#04x", f.traceID, f.params.CipherSuiteID)
		return out, nil
	}

	if f.cfg.SessionCache != nil && len(f.params.SessionID) > 0 {
		f.cfg.SessionCache.Put(f.cfg.ServerName, &session.Session{
			ID:             string(f.params.SessionID),
			MasterSecret:   f.params.MasterSecret,
			CipherSuiteID:  f.params.CipherSuiteID,
			NegotiatedALPN: f.params.NegotiatedALPNProtocol,
		})
	}

	f.params.SetHandshakeCompleted()
	f.cur = stepDone
	f.log.Tracef("[%s] full handshake complete, suite=%#04x", f.traceID, f.params.CipherSuiteID)
	return nil, nil
}

// emitFinished builds this side's Finished message. The ChangeCipherSpec
// pseudo-message itself is emitted by the record-layer engine immediately
// before switching the local cipher, not here; the FSM only hands back the
// Finished handshake message to be sent under the new keys.
func (f *FSM) emitFinished() ([]*handshake.Handshake, error) {
	verifyData, err := f.verifyData(f.isClient)
	if err != nil {
		return nil, wrapAlert(alert.InternalError, err)
	}
	f.cur = stepAwaitChangeCipherSpec
	msg := &handshake.MessageFinished{VerifyData: verifyData}
	finished := &handshake.Handshake{Message: msg}
	// Pushed immediately: the peer's own Finished verify_data is computed
	// over a transcript that includes this message.
	f.cache.push(finished)
	f.lastFinishedVerifyData = verifyData
	if f.isClient {
		f.logc.ClientFinished = msg
	} else {
		f.logc.ServerFinished = msg
	}
	return []*handshake.Handshake{finished}, nil
}
