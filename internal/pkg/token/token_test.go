package token

import (
	"testing"
	"time"

	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
)

func setTestSecret(t *testing.T, secret string) {
	t.Helper()
	if env.Env == nil {
		env.Env = map[string]string{}
	}
	prev, had := env.Env["JWT_SECRET"]
	env.Env["JWT_SECRET"] = secret
	t.Cleanup(func() {
		if had {
			env.Env["JWT_SECRET"] = prev
		} else {
			delete(env.Env, "JWT_SECRET")
		}
	})
}

func TestSessionTokenRoundTrip(t *testing.T) {
	setTestSecret(t, "test-secret-32-bytes-should-be-long")

	tokenStr, err := GenerateSessionToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("GenerateSessionToken error: %v", err)
	}

	sub, err := VerifySessionToken(tokenStr)
	if err != nil {
		t.Fatalf("VerifySessionToken error: %v", err)
	}
	if sub != "user-123" {
		t.Fatalf("unexpected sub: got=%q want=%q", sub, "user-123")
	}
}

func TestSessionTokenExpiry(t *testing.T) {
	setTestSecret(t, "another-secret-32-bytes-longgggg")

	tokenStr, err := generateSessionTokenWithTTL("u2", "x@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("generateSessionTokenWithTTL error: %v", err)
	}
	if _, err := VerifySessionToken(tokenStr); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestSessionTokenWrongSecretFails(t *testing.T) {
	setTestSecret(t, "secret-one-32-bytes-xxxxxxxxxxxx")
	tokenStr, err := GenerateSessionToken("u3", "y@example.com")
	if err != nil {
		t.Fatalf("GenerateSessionToken error: %v", err)
	}

	setTestSecret(t, "secret-two-32-bytes-yyyyyyyyyyyy")
	if _, err := VerifySessionToken(tokenStr); err == nil {
		t.Fatalf("expected token signed with other secret to be rejected")
	}
}

func TestResetTokenRoundTrip(t *testing.T) {
	setTestSecret(t, "reset-secret-32-bytes-zzzzzzzzzz")

	tokenStr, err := GeneratePasswordResetToken("reset@example.com")
	if err != nil {
		t.Fatalf("GeneratePasswordResetToken error: %v", err)
	}

	email, err := VerifyPasswordResetToken(tokenStr)
	if err != nil {
		t.Fatalf("VerifyPasswordResetToken error: %v", err)
	}
	if email != "reset@example.com" {
		t.Fatalf("unexpected email: %q", email)
	}
}

func TestTokenPurposesDoNotCross(t *testing.T) {
	setTestSecret(t, "purpose-secret-32-bytes-qqqqqqqq")

	resetToken, err := GeneratePasswordResetToken("reset@example.com")
	if err != nil {
		t.Fatalf("GeneratePasswordResetToken error: %v", err)
	}
	if _, err := VerifySessionToken(resetToken); err == nil {
		t.Fatalf("reset token must not verify as session token")
	}

	sessionToken, err := GenerateSessionToken("u4", "z@example.com")
	if err != nil {
		t.Fatalf("GenerateSessionToken error: %v", err)
	}
	if _, err := VerifyPasswordResetToken(sessionToken); err == nil {
		t.Fatalf("session token must not verify as reset token")
	}
}
