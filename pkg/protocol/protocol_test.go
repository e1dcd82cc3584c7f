// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package protocol

import "testing"

func TestVersionOrdering(t *testing.T) {
	if !VersionTLS10.Less(VersionTLS11) {
		t.Fatal("TLS 1.0 should be less than TLS 1.1")
	}
	if !VersionTLS11.Less(VersionTLS12) {
		t.Fatal("TLS 1.1 should be less than TLS 1.2")
	}
	if VersionTLS12.Less(VersionTLS10) {
		t.Fatal("TLS 1.2 should not be less than TLS 1.0")
	}
	if !VersionTLS12.Equal(Version{Major: 0x03, Minor: 0x03}) {
		t.Fatal("VersionTLS12 should equal its literal (3,3) representation")
	}
}

func TestVersionMin(t *testing.T) {
	if got := Min(VersionTLS12, VersionTLS10); !got.Equal(VersionTLS10) {
		t.Fatalf("Min(TLS12, TLS10) = %v, want TLS10", got)
	}
	if got := Min(VersionTLS10, VersionTLS12); !got.Equal(VersionTLS10) {
		t.Fatalf("Min(TLS10, TLS12) = %v, want TLS10", got)
	}
}

func TestVersionString(t *testing.T) {
	cases := []struct {
		v    Version
		want string
	}{
		{VersionSSL30, "SSL 3.0"},
		{VersionTLS10, "TLS 1.0"},
		{VersionTLS11, "TLS 1.1"},
		{VersionTLS12, "TLS 1.2"},
		{Version{Major: 0x03, Minor: 0x04}, "TLS 0x0304"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("Version%v.String() = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestContentTypeString(t *testing.T) {
	cases := []struct {
		c    ContentType
		want string
	}{
		{ContentTypeChangeCipherSpec, "ChangeCipherSpec"},
		{ContentTypeAlert, "Alert"},
		{ContentTypeHandshake, "Handshake"},
		{ContentTypeApplicationData, "ApplicationData"},
		{ContentTypeHeartbeat, "Heartbeat"},
		{ContentType(99), "Unknown"},
	}
	for _, c := range cases {
		if got := c.c.String(); got != c.want {
			t.Errorf("ContentType(%d).String() = %q, want %q", c.c, got, c.want)
		}
	}
}

func TestCompressionMethodsOnlyNull(t *testing.T) {
	methods := CompressionMethods()
	if len(methods) != 1 {
		t.Fatalf("expected exactly one recognized compression method, got %d", len(methods))
	}
	if _, ok := methods[CompressionMethodNull]; !ok {
		t.Fatal("expected the null compression method to be recognized")
	}
	if _, ok := methods[CompressionMethodID(1)]; ok {
		t.Fatal("a non-null compression method must not be recognized")
	}
}

func TestDefaultCompressionMethods(t *testing.T) {
	methods := DefaultCompressionMethods()
	if len(methods) != 1 || methods[0].ID != CompressionMethodNull {
		t.Fatalf("expected exactly [null], got %+v", methods)
	}
}

func TestApplicationDataRoundTrip(t *testing.T) {
	a := &ApplicationData{Data: []byte("hello")}
	raw, err := a.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out ApplicationData
	if err := out.Unmarshal(raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(out.Data) != "hello" {
		t.Fatalf("got %q, want %q", out.Data, "hello")
	}
}

func TestChangeCipherSpecMarshalUnmarshal(t *testing.T) {
	var c ChangeCipherSpec
	raw, err := c.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := (&ChangeCipherSpec{}).Unmarshal(raw); err != nil {
		t.Fatalf("Unmarshal of a valid ChangeCipherSpec failed: %v", err)
	}
	if err := (&ChangeCipherSpec{}).Unmarshal([]byte{0x02}); err == nil {
		t.Fatal("expected an error unmarshaling an invalid ChangeCipherSpec byte")
	}
}
