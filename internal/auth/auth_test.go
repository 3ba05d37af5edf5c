package auth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("secret-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}

	token, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	subject, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if subject != "admin" {
		t.Errorf("expected subject admin, got %q", subject)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret-a", time.Hour)
	other, _ := NewTokenIssuer("secret-b", time.Hour)

	token, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Error("expected verification to fail with a different secret")
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret-key", time.Hour)
	token, _ := issuer.Issue("admin")

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := issuer.Verify(tampered); err == nil {
		t.Error("expected verification to fail for a tampered token")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret-key", time.Nanosecond)

	token, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := issuer.Verify(token); err == nil {
		t.Error("expected verification to fail for an expired token")
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}
