package mail

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSendRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	send := func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	m := NewMailer("Next CRM <noreply@nextcrm.local>", 2, time.Millisecond, send)
	ok := m.Send("user@example.com", WelcomeEmail("user", "http://localhost:3000/dashboard"))

	assert.True(t, ok)
	assert.Equal(t, 3, attempts)
}

func TestSendExhaustsRetriesAndReturnsFalse(t *testing.T) {
	attempts := 0
	send := func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		attempts++
		return errors.New("permanent failure")
	}

	m := NewMailer("Next CRM <noreply@nextcrm.local>", 2, time.Millisecond, send)
	ok := m.Send("user@example.com", PasswordResetEmail("http://localhost:3000/reset?token=x", "1 hour"))

	assert.False(t, ok)
	assert.Equal(t, 3, attempts)
}

func TestSendZeroRetriesMeansSingleAttempt(t *testing.T) {
	attempts := 0
	send := func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		attempts++
		return errors.New("boom")
	}

	m := NewMailer("sender@example.com", 0, time.Millisecond, send)
	assert.False(t, m.Send("user@example.com", SubscriptionConfirmedEmail("Pro", "http://localhost:3000/dashboard")))
	assert.Equal(t, 1, attempts)
}

func TestBuildMessageContainsBothBodies(t *testing.T) {
	var captured []byte
	send := func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		captured = msg
		return nil
	}

	m := NewMailer("sender@example.com", 0, time.Millisecond, send)
	tpl := SubscriptionCancelledEmail("Pro", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "http://localhost:3000/dashboard")
	assert.True(t, m.Send("user@example.com", tpl))

	body := string(captured)
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "text/plain")
	assert.Contains(t, body, "text/html")
	assert.Contains(t, body, "March 1, 2026")
	assert.True(t, strings.Contains(body, "To: user@example.com"))
}

func TestTemplatesRenderPlanName(t *testing.T) {
	tests := []struct {
		name string
		tpl  Template
	}{
		{name: "confirmed", tpl: SubscriptionConfirmedEmail("Pro", "http://x")},
		{name: "failed", tpl: PaymentFailedEmail("Pro", time.Now(), "http://x")},
		{name: "cancelled", tpl: SubscriptionCancelledEmail("Pro", time.Now(), "http://x")},
	}

	for _, tt := range tests {
		if !strings.Contains(tt.tpl.HTML, "Pro") || !strings.Contains(tt.tpl.Text, "Pro") {
			t.Fatalf("%s template does not mention plan name", tt.name)
		}
		if tt.tpl.Subject == "" {
			t.Fatalf("%s template has empty subject", tt.name)
		}
	}
}
