package token

import (
	"errors"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	h := NewHS256([]byte("test-secret"), time.Hour)

	credential, err := h.Issue("user_01h", "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := h.Verify(credential)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != "user_01h" {
		t.Errorf("UserID = %q", claims.UserID)
	}
	if claims.Name != "Alice" || claims.Email != "alice@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt) {
		t.Error("expected ExpiresAt after IssuedAt")
	}
}

func TestVerifyExpired(t *testing.T) {
	h := NewHS256([]byte("test-secret"), time.Minute)

	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return issued }
	credential, err := h.Issue("user_01h", "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	h.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = h.Verify(credential)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewHS256([]byte("secret-a"), time.Hour)
	verifier := NewHS256([]byte("secret-b"), time.Hour)

	credential, err := issuer.Issue("user_01h", "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = verifier.Verify(credential)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	h := NewHS256([]byte("test-secret"), time.Hour)

	for _, credential := range []string{"", "garbage", "a.b.c"} {
		if _, err := h.Verify(credential); !errors.Is(err, ErrInvalid) {
			t.Errorf("Verify(%q): expected ErrInvalid, got %v", credential, err)
		}
	}
}
