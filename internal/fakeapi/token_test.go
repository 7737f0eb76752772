package fakeapi_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jmerrifield20/neverbounce-go/internal/fakeapi"
)

func newTestTokenIssuer(t *testing.T, ttl time.Duration) *fakeapi.TokenIssuer {
	t.Helper()
	ti, err := fakeapi.NewTokenIssuer("https://nbfake.test", ttl)
	if err != nil {
		t.Fatal(err)
	}
	return ti
}

func TestTokenIssuer_Issue(t *testing.T) {
	ti := newTestTokenIssuer(t, time.Hour)

	token, err := ti.Issue("key", "basic user")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}
}

func TestTokenIssuer_Verify_valid(t *testing.T) {
	ti := newTestTokenIssuer(t, time.Hour)

	token, _ := ti.Issue("key", "basic user")
	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Subject != "key" {
		t.Errorf("Subject: got %q, want %q", claims.Subject, "key")
	}
	if claims.Scope != "basic user" {
		t.Errorf("Scope: got %q", claims.Scope)
	}
	if claims.ID == "" {
		t.Error("expected a jti")
	}
}

func TestTokenIssuer_Verify_expired(t *testing.T) {
	ti := newTestTokenIssuer(t, time.Nanosecond)

	token, _ := ti.Issue("key", "")
	time.Sleep(time.Second)

	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestTokenIssuer_RotateKeyInvalidatesTokens(t *testing.T) {
	ti := newTestTokenIssuer(t, time.Hour)

	token, _ := ti.Issue("key", "")
	if err := ti.RotateKey(); err != nil {
		t.Fatal(err)
	}
	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error after key rotation")
	}

	fresh, _ := ti.Issue("key", "")
	if _, err := ti.Verify(fresh); err != nil {
		t.Errorf("fresh token rejected: %v", err)
	}
}

func TestTokenIssuer_Verify_garbage(t *testing.T) {
	ti := newTestTokenIssuer(t, time.Hour)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ti.Verify(tok); err == nil {
			t.Errorf("Verify(%q): expected error", tok)
		}
	}
}

func TestCredentialStore(t *testing.T) {
	store := fakeapi.NewCredentialStore()
	if err := store.Add("key", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := store.Check("key", "secret"); err != nil {
		t.Errorf("valid pair rejected: %v", err)
	}
	if err := store.Check("key", "wrong"); err != fakeapi.ErrInvalidClient {
		t.Errorf("wrong secret: got %v", err)
	}
	if err := store.Check("other", "secret"); err != fakeapi.ErrInvalidClient {
		t.Errorf("unknown key: got %v", err)
	}
	if err := store.Add("", "x"); err == nil {
		t.Error("expected error for empty key")
	}
}
