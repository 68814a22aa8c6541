package application

import (
	"strings"
	"testing"
	"time"
)

func TestMagicLinkSigner(t *testing.T) {
	newSigner := func(t *testing.T, now func() time.Time) *MagicLinkSigner {
		t.Helper()
		signer, err := NewMagicLinkSigner("test-secret", "http://mediation.local/join", time.Hour, now)
		if err != nil {
			t.Fatalf("signer setup failed: %v", err)
		}
		return signer
	}

	t.Run("sign and verify round trip", func(t *testing.T) {
		signer := newSigner(t, testClock())
		claims := MagicLinkClaims{SessionID: "session-001", Name: "Avery Quinn", Side: "Policyholder side"}

		assertion, err := signer.Sign(claims)
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		verified, err := signer.Verify(assertion)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if verified != claims {
			t.Fatalf("expected %+v, got %+v", claims, verified)
		}
	})

	t.Run("link embeds the session path", func(t *testing.T) {
		signer := newSigner(t, testClock())

		link, err := signer.Link(MagicLinkClaims{SessionID: "session-001", Name: "Avery Quinn"})
		if err != nil {
			t.Fatalf("link failed: %v", err)
		}
		if !strings.HasPrefix(link, "http://mediation.local/join/session-001?link=") {
			t.Fatalf("unexpected link %q", link)
		}
	})

	t.Run("expired assertion is rejected", func(t *testing.T) {
		signer := newSigner(t, testClock())
		assertion, err := signer.Sign(MagicLinkClaims{SessionID: "session-001", Name: "Avery Quinn"})
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}

		later, err := NewMagicLinkSigner("test-secret", "http://mediation.local/join", time.Hour, func() time.Time {
			return testReference.Add(2 * time.Hour)
		})
		if err != nil {
			t.Fatalf("signer setup failed: %v", err)
		}
		if _, err := later.Verify(assertion); err == nil {
			t.Fatalf("expected expiry failure")
		}
	})

	t.Run("foreign secret is rejected", func(t *testing.T) {
		signer := newSigner(t, testClock())
		other, err := NewMagicLinkSigner("other-secret", "http://mediation.local/join", time.Hour, testClock())
		if err != nil {
			t.Fatalf("signer setup failed: %v", err)
		}

		assertion, err := other.Sign(MagicLinkClaims{SessionID: "session-001", Name: "Avery Quinn"})
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		if _, err := signer.Verify(assertion); err == nil {
			t.Fatalf("expected signature failure")
		}
	})

	t.Run("claims require a session and a name", func(t *testing.T) {
		signer := newSigner(t, testClock())

		if _, err := signer.Sign(MagicLinkClaims{Name: "Avery Quinn"}); err == nil {
			t.Fatalf("expected error for missing session")
		}
		if _, err := signer.Sign(MagicLinkClaims{SessionID: "session-001"}); err == nil {
			t.Fatalf("expected error for missing name")
		}
	})

	t.Run("blank secret is refused", func(t *testing.T) {
		if _, err := NewMagicLinkSigner("   ", "http://mediation.local/join", time.Hour, nil); err == nil {
			t.Fatalf("expected configuration error")
		}
	})
}
