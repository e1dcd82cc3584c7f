// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshakefsm

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	appcrypto "github.com/censys-oss/tls-engine/pkg/crypto"
	"github.com/censys-oss/tls-engine/pkg/protocol/handshake"
	"github.com/censys-oss/tls-engine/securityparams"
	"github.com/censys-oss/tls-engine/session"

	"github.com/censys-oss/tls-engine/callbacks"
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

// runHandshake drives client and server FSMs against each other in lockstep
// until both report FINISHED or an error occurs, without any transport: the
// messages one side returns from Start/Step are fed directly into the
// other's Step.
func runHandshake(t *testing.T, clientCfg, serverCfg Config) (*FSM, *FSM) {
	t.Helper()
	crypto := appcrypto.NewDefault()
	client := New(true, clientCfg, securityparams.New(securityparams.ConnectionEndClient), crypto)
	server := New(false, serverCfg, securityparams.New(securityparams.ConnectionEndServer), crypto)

	outbound, err := client.Start()
	if err != nil {
		t.Fatalf("client.Start: %v", err)
	}

	var fromClient, fromServer []*handshake.Handshake
	fromClient = outbound

	for i := 0; i < 10 && (client.Status() != StatusFinished || server.Status() != StatusFinished); i++ {
		if len(fromClient) > 0 {
			fromServer = nil
			for _, msg := range fromClient {
				out, err := server.Step(msg)
				if err != nil {
					t.Fatalf("server.Step: %v", err)
				}
				fromServer = append(fromServer, out...)
			}
			fromClient = nil
		}
		if len(fromServer) > 0 {
			fromClient = nil
			for _, msg := range fromServer {
				out, err := client.Step(msg)
				if err != nil {
					t.Fatalf("client.Step: %v", err)
				}
				fromClient = append(fromClient, out...)
			}
			fromServer = nil
		}
		if len(fromClient) == 0 && len(fromServer) == 0 {
			break
		}
	}

	return client, server
}

func TestFullHandshakeECDHEECDSA(t *testing.T) {
	cert := selfSignedECDSACertificate(t)
	clientCfg := Config{
		CipherSuites: []uint16{0xc02b},
		TrustManager: &callbacks.ChainTrustManager{InsecureSkipVerify: true},
	}
	serverCfg := Config{
		CipherSuites: []uint16{0xc02b},
		KeyManager:   &callbacks.StaticKeyManager{Certificate: cert},
	}

	client, server := runHandshake(t, clientCfg, serverCfg)

	if client.Status() != StatusFinished {
		t.Fatalf("client did not finish, status=%s", client.Status())
	}
	if server.Status() != StatusFinished {
		t.Fatalf("server did not finish, status=%s", server.Status())
	}
	if string(client.params.MasterSecret) != string(server.params.MasterSecret) {
		t.Fatal("client and server derived different master secrets")
	}
	if len(client.params.MasterSecret) != 48 {
		t.Fatalf("unexpected master secret length: %d", len(client.params.MasterSecret))
	}
}

func TestSessionResumption(t *testing.T) {
	cert := selfSignedECDSACertificate(t)
	cache := session.NewMemoryCache(time.Hour, 10)
	clientCfg := Config{
		CipherSuites: []uint16{0xc02b},
		TrustManager: &callbacks.ChainTrustManager{InsecureSkipVerify: true},
		SessionCache: cache,
		ServerName:   "engine-test",
	}
	serverCfg := Config{
		CipherSuites: []uint16{0xc02b},
		KeyManager:   &callbacks.StaticKeyManager{Certificate: cert},
		SessionCache: cache,
	}

	client1, server1 := runHandshake(t, clientCfg, serverCfg)
	if client1.Status() != StatusFinished || server1.Status() != StatusFinished {
		t.Fatal("initial full handshake did not complete")
	}

	client2, server2 := runHandshake(t, clientCfg, serverCfg)
	if client2.Status() != StatusFinished || server2.Status() != StatusFinished {
		t.Fatal("resumed handshake did not complete")
	}
	if !client2.resuming {
		t.Fatal("expected second handshake to resume the cached session")
	}
	if string(client2.params.MasterSecret) != string(client1.params.MasterSecret) {
		t.Fatal("resumed handshake should reuse the cached master secret")
	}
}
