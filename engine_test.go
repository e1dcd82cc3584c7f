// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/censys-oss/tls-engine/callbacks"
	"github.com/censys-oss/tls-engine/handshakefsm"
	"github.com/censys-oss/tls-engine/pkg/protocol"
	"github.com/censys-oss/tls-engine/pkg/protocol/alert"
	"github.com/censys-oss/tls-engine/pkg/protocol/recordlayer"
)

func selfSignedECDSACertificate(t *testing.T) *tls.Certificate {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "engine-test"},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).Add(100 * 365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatal(err)
	}
	return &tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

// pump relays bytes between two Engines with no real transport, driving
// Wrap/Unwrap in lockstep until both sides report a completed handshake or
// the round budget runs out.
func pump(t *testing.T, client, server *Engine) {
	t.Helper()
	var clientToServer, serverToClient []byte
	buf := make([]byte, 65536)

	drainWrap := func(e *Engine, out *[]byte) {
		res, err := e.Wrap(nil, buf)
		if err != nil {
			t.Fatalf("Wrap: %v", err)
		}
		if res.BytesProduced > 0 {
			*out = append(*out, buf[:res.BytesProduced]...)
		}
	}
	drainUnwrap := func(e *Engine, in *[]byte) {
		for len(*in) > 0 {
			res, err := e.Unwrap(*in, buf)
			if err != nil {
				t.Fatalf("Unwrap: %v", err)
			}
			if res.Status == StatusBufferUnderflow {
				break
			}
			*in = (*in)[res.BytesConsumed:]
		}
	}

	for i := 0; i < 20; i++ {
		drainWrap(client, &clientToServer)
		drainWrap(server, &serverToClient)
		drainUnwrap(server, &clientToServer)
		drainUnwrap(client, &serverToClient)

		_, clientErr := client.ConnectionState()
		_, serverErr := server.ConnectionState()
		if clientErr == nil && serverErr == nil {
			return
		}
	}
	t.Fatal("handshake did not complete within the round budget")
}

func TestEngineFullHandshakeAndApplicationData(t *testing.T) {
	cert := selfSignedECDSACertificate(t)
	client, err := New(true, Config{Config: handshakefsm.Config{
		CipherSuites: []uint16{0xc02b},
		TrustManager: &callbacks.ChainTrustManager{InsecureSkipVerify: true},
	}})
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	server, err := New(false, Config{Config: handshakefsm.Config{
		CipherSuites: []uint16{0xc02b},
		KeyManager:   &callbacks.StaticKeyManager{Certificate: cert},
	}})
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}

	pump(t, client, server)

	clientState, err := client.ConnectionState()
	if err != nil {
		t.Fatalf("client.ConnectionState: %v", err)
	}
	if clientState.CipherSuiteID != 0xc02b {
		t.Fatalf("unexpected negotiated cipher suite: %#x", clientState.CipherSuiteID)
	}

	buf := make([]byte, 4096)
	res, err := client.Wrap([]byte("hello server"), buf)
	if err != nil {
		t.Fatalf("application Wrap: %v", err)
	}
	if res.Status != StatusOK || res.BytesConsumed != len("hello server") {
		t.Fatalf("unexpected application wrap result: %+v", res)
	}

	appBuf := make([]byte, 4096)
	unwrapRes, err := server.Unwrap(buf[:res.BytesProduced], appBuf)
	if err != nil {
		t.Fatalf("application Unwrap: %v", err)
	}
	if got := string(appBuf[:unwrapRes.BytesProduced]); got != "hello server" {
		t.Fatalf("unexpected application data: %q", got)
	}
}

func TestEngineHandshakeLog(t *testing.T) {
	cert := selfSignedECDSACertificate(t)
	client, err := New(true, Config{Config: handshakefsm.Config{
		CipherSuites: []uint16{0xc02b},
		TrustManager: &callbacks.ChainTrustManager{InsecureSkipVerify: true},
	}})
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	server, err := New(false, Config{Config: handshakefsm.Config{
		CipherSuites: []uint16{0xc02b},
		KeyManager:   &callbacks.StaticKeyManager{Certificate: cert},
	}})
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}

	pump(t, client, server)

	clientLog := client.HandshakeLog()
	if clientLog == nil {
		t.Fatal("expected a non-nil handshake log after a completed handshake")
	}
	if clientLog.ClientHello == nil || clientLog.ServerHello == nil {
		t.Fatal("expected both ClientHello and ServerHello in the handshake log")
	}
	if clientLog.ClientFinished == nil || clientLog.ServerFinished == nil {
		t.Fatal("expected both Finished messages in the handshake log")
	}
	if clientLog.KeyMaterial == nil || len(clientLog.KeyMaterial.MasterSecret.Value) == 0 {
		t.Fatal("expected a populated master secret in the handshake log")
	}

	serverLog := server.HandshakeLog()
	if serverLog == nil || serverLog.ServerCertificates == nil {
		t.Fatal("expected the server's handshake log to include its own certificate message")
	}
}

func TestEngineUnwrapRejectsOversizeRecordWithRecordOverflow(t *testing.T) {
	server, err := New(false, Config{})
	if err != nil {
		t.Fatal(err)
	}

	header := make([]byte, recordlayer.FixedHeaderSize)
	header[0] = byte(protocol.ContentTypeApplicationData)
	header[1], header[2] = protocol.VersionTLS12.Major, protocol.VersionTLS12.Minor
	binary.BigEndian.PutUint16(header[3:], recordlayer.MaxCiphertextRecordLength+1)

	res, err := server.Unwrap(header, make([]byte, 16))
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if res.Status == StatusBufferUnderflow {
		t.Fatal("an oversize declared length must not be treated as a short read")
	}
	if res.HandshakeStatus != handshakefsm.StatusNeedWrap {
		t.Fatalf("expected the fatal alert to be staged for the next Wrap, got %v", res.HandshakeStatus)
	}

	buf := make([]byte, 4096)
	wrapRes, err := server.Wrap(nil, buf)
	if wrapRes.BytesProduced == 0 {
		t.Fatal("expected a fatal alert record to be staged for output")
	}
	var alertErr *alert.Error
	if !errors.As(err, &alertErr) || alertErr.Alert.Description != alert.RecordOverflow {
		t.Fatalf("expected a record_overflow alert error, got %v", err)
	}
}

func TestEngineUnwrapReportsBufferUnderflow(t *testing.T) {
	server, err := New(false, Config{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := server.Unwrap([]byte{0x16, 0x03}, make([]byte, 16))
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if res.Status != StatusBufferUnderflow || res.BytesConsumed != 0 {
		t.Fatalf("expected BUFFER_UNDERFLOW with nothing consumed, got %+v", res)
	}
}

func TestEngineWrapImplicitlyBeginsClientHandshake(t *testing.T) {
	client, err := New(true, Config{Config: handshakefsm.Config{CipherSuites: []uint16{0xc02b}}})
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4096)
	res, err := client.Wrap(nil, buf)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if res.BytesProduced == 0 {
		t.Fatal("expected the first Wrap call to stage a ClientHello")
	}
	if buf[0] != 0x16 {
		t.Fatalf("expected a Handshake content type record, got %#x", buf[0])
	}
}

func TestEngineCloseOutboundStagesCloseNotify(t *testing.T) {
	client, err := New(true, Config{Config: handshakefsm.Config{CipherSuites: []uint16{0xc02b}}})
	if err != nil {
		t.Fatal(err)
	}
	if err := client.CloseOutbound(); err != nil {
		t.Fatalf("CloseOutbound: %v", err)
	}
	if !client.IsOutboundDone() {
		t.Fatal("expected outbound to be marked done after CloseOutbound")
	}

	buf := make([]byte, 4096)
	res, err := client.Wrap(nil, buf)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if res.BytesProduced == 0 {
		t.Fatal("expected the staged close_notify to flush on the next Wrap")
	}
}

func TestEngineClientCertificateAuthentication(t *testing.T) {
	serverCert := selfSignedECDSACertificate(t)
	clientCert := selfSignedECDSACertificate(t)

	client, err := New(true, Config{Config: handshakefsm.Config{
		CipherSuites: []uint16{0xc02b},
		KeyManager:   &callbacks.StaticKeyManager{Certificate: clientCert},
		TrustManager: &callbacks.ChainTrustManager{InsecureSkipVerify: true},
	}})
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	server, err := New(false, Config{Config: handshakefsm.Config{
		CipherSuites: []uint16{0xc02b},
		KeyManager:   &callbacks.StaticKeyManager{Certificate: serverCert},
		TrustManager: &callbacks.ChainTrustManager{InsecureSkipVerify: true},
		ClientAuth:   handshakefsm.RequireClientAuth,
	}})
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}

	pump(t, client, server)

	serverState, err := server.ConnectionState()
	if err != nil {
		t.Fatalf("server ConnectionState: %v", err)
	}
	if len(serverState.PeerCertificates) == 0 {
		t.Fatal("expected the server to have recorded the client's certificate chain")
	}
}

func TestEngineRequireClientAuthRejectsMissingCertificate(t *testing.T) {
	serverCert := selfSignedECDSACertificate(t)

	client, err := New(true, Config{Config: handshakefsm.Config{
		CipherSuites: []uint16{0xc02b},
		TrustManager: &callbacks.ChainTrustManager{InsecureSkipVerify: true},
	}})
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	server, err := New(false, Config{Config: handshakefsm.Config{
		CipherSuites: []uint16{0xc02b},
		KeyManager:   &callbacks.StaticKeyManager{Certificate: serverCert},
		ClientAuth:   handshakefsm.RequireClientAuth,
	}})
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}

	buf := make([]byte, 65536)
	var clientToServer, serverToClient []byte
	var serverErr, clientErr error

	for i := 0; i < 20 && serverErr == nil; i++ {
		res, err := client.Wrap(nil, buf)
		if err != nil {
			t.Fatalf("client Wrap: %v", err)
		}
		clientToServer = append(clientToServer, buf[:res.BytesProduced]...)

		res, err = server.Wrap(nil, buf)
		if err != nil {
			t.Fatalf("server Wrap: %v", err)
		}
		serverToClient = append(serverToClient, buf[:res.BytesProduced]...)

		for len(clientToServer) > 0 && serverErr == nil {
			var res Result
			res, serverErr = server.Unwrap(clientToServer, buf)
			if serverErr != nil || res.Status == StatusBufferUnderflow {
				break
			}
			clientToServer = clientToServer[res.BytesConsumed:]
		}
		for len(serverToClient) > 0 && clientErr == nil {
			var res Result
			res, clientErr = client.Unwrap(serverToClient, buf)
			if clientErr != nil || res.Status == StatusBufferUnderflow {
				break
			}
			serverToClient = serverToClient[res.BytesConsumed:]
		}
	}
	if serverErr == nil {
		t.Fatal("expected the server to reject a handshake missing a required client certificate")
	}
}

func TestEngineNilDestinationRejected(t *testing.T) {
	client, err := New(true, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Wrap(nil, nil); err != errNilDestination {
		t.Fatalf("expected errNilDestination, got %v", err)
	}
	if _, err := client.Unwrap(nil, nil); err != errNilDestination {
		t.Fatalf("expected errNilDestination, got %v", err)
	}
}
