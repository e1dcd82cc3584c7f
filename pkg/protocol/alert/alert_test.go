// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package alert

import (
	"errors"
	"testing"
)

func TestAlertMarshalUnmarshal(t *testing.T) {
	a := &Alert{Level: Fatal, Description: HandshakeFailure}
	raw, err := a.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected a 2-byte alert, got %d bytes", len(raw))
	}

	var out Alert
	if err := out.Unmarshal(raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != *a {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, *a)
	}
}

func TestAlertUnmarshalRejectsWrongSize(t *testing.T) {
	var a Alert
	if err := a.Unmarshal([]byte{0x01}); err == nil {
		t.Fatal("expected an error unmarshaling a 1-byte alert")
	}
	if err := a.Unmarshal([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatal("expected an error unmarshaling a 3-byte alert")
	}
}

func TestDescriptionStringKnownAndUnknown(t *testing.T) {
	if got := CloseNotify.String(); got != "close_notify" {
		t.Fatalf("CloseNotify.String() = %q", got)
	}
	if got := Description(255).String(); got != "unknown(255)" {
		t.Fatalf("Description(255).String() = %q", got)
	}
}

func TestLevelString(t *testing.T) {
	if got := Warning.String(); got != "Warning" {
		t.Fatalf("Warning.String() = %q", got)
	}
	if got := Fatal.String(); got != "Fatal" {
		t.Fatalf("Fatal.String() = %q", got)
	}
	if got := Level(99).String(); got != "Unknown(99)" {
		t.Fatalf("Level(99).String() = %q", got)
	}
}

func TestErrorIsFatalOrCloseNotify(t *testing.T) {
	fatal := NewFatal(InternalError)
	if !fatal.IsFatalOrCloseNotify() {
		t.Fatal("a fatal alert should report IsFatalOrCloseNotify")
	}

	closeNotify := New(Warning, CloseNotify)
	if !closeNotify.IsFatalOrCloseNotify() {
		t.Fatal("a warning-level close_notify should still report IsFatalOrCloseNotify")
	}

	warning := New(Warning, UserCanceled)
	if warning.IsFatalOrCloseNotify() {
		t.Fatal("a plain warning should not report IsFatalOrCloseNotify")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("bad mac")
	e := &Error{Alert: &Alert{Level: Fatal, Description: BadRecordMac}, Wrapped: cause}
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}
