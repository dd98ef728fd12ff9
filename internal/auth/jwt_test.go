package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	m, err := NewManager("test-secret-key", ttl)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	return m
}

func TestNewManager_EmptySecret(t *testing.T) {
	_, err := NewManager("", time.Hour)

	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	m := newTestManager(t, 7*24*time.Hour)

	raw, err := m.IssueToken("user-123", "alice@example.com", "author")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	claims, err := m.VerifyToken(raw)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Fatalf("expected user-123, got %s", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("expected alice@example.com, got %s", claims.Email)
	}
	if claims.Role != "author" {
		t.Fatalf("expected author, got %s", claims.Role)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	// a 1ns ttl guarantees the token is past expiry by verification time
	m := newTestManager(t, time.Nanosecond)

	raw, err := m.IssueToken("user-123", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	_, err = m.VerifyToken(raw)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyToken_SignatureSensitivity(t *testing.T) {
	m := newTestManager(t, time.Hour)

	raw, err := m.IssueToken("user-123", "alice@example.com", "admin")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	// flip a single character anywhere in the token
	for _, pos := range []int{0, len(raw) / 2, len(raw) - 1} {
		mutated := []byte(raw)
		if mutated[pos] == 'A' {
			mutated[pos] = 'B'
		} else {
			mutated[pos] = 'A'
		}

		_, err := m.VerifyToken(string(mutated))
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("mutation at %d: expected ErrInvalidToken, got %v", pos, err)
		}
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	m := newTestManager(t, time.Hour)

	other, err := NewManager("a-different-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	raw, err := other.IssueToken("user-123", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	_, err = m.VerifyToken(raw)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	m := newTestManager(t, time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := m.VerifyToken(raw)
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("input %q: expected ErrInvalidToken, got %v", raw, err)
		}
	}
}
