package mail

import (
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
)

const (
	defaultMaxRetries  = 2
	defaultBackoffBase = time.Second
)

// SendFunc performs the actual SMTP delivery. It exists so tests can swap
// the transport without a mail server.
type SendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends transactional mail over SMTP with a bounded retry loop.
// Send never returns an error; callers treat email as best-effort and only
// branch on the boolean result.
type Mailer struct {
	host        string
	port        string
	username    string
	password    string
	sender      string
	maxRetries  int
	backoffBase time.Duration
	send        SendFunc
}

// NewMailerFromEnv builds a mailer from SMTP_* environment configuration.
func NewMailerFromEnv() *Mailer {
	retries := defaultMaxRetries
	if v := env.GetEnv("SMTP_MAX_RETRIES", ""); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			retries = parsed
		}
	}

	sender := env.GetEnv("SMTP_SENDER", "")
	if sender == "" {
		sender = "Next CRM <noreply@nextcrm.local>"
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	return &Mailer{
		host:        env.GetEnv("SMTP_HOST", "localhost"),
		port:        env.GetEnv("SMTP_PORT", "2525"),
		username:    env.GetEnv("SMTP_USERNAME", ""),
		password:    env.GetEnv("SMTP_PASSWORD", ""),
		sender:      sender,
		maxRetries:  retries,
		backoffBase: defaultBackoffBase,
		send:        smtp.SendMail,
	}
}

// NewMailer builds a mailer with an explicit transport; used by tests.
func NewMailer(sender string, maxRetries int, backoffBase time.Duration, send SendFunc) *Mailer {
	return &Mailer{
		sender:      sender,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		send:        send,
	}
}

// Send delivers a rendered template to a single recipient. On transport
// failure it retries up to the configured count with exponential backoff
// (base doubling per attempt) and reports the final outcome.
func (m *Mailer) Send(to string, tpl Template) bool {
	var auth smtp.Auth
	if m.username != "" && m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	msg := m.buildMessage(to, tpl)

	from := envelopeAddress(m.sender)

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		lastErr = m.send(addr, auth, from, []string{to}, msg)
		if lastErr == nil {
			log.Printf("Email sent to %s via %s (subject=%q)", to, addr, tpl.Subject)
			return true
		}

		log.Printf("Email send attempt %d/%d to %s failed: %v", attempt+1, m.maxRetries+1, to, lastErr)
		if attempt < m.maxRetries {
			// 1s, 2s, 4s, ...
			time.Sleep(m.backoffBase << uint(attempt))
		}
	}

	log.Printf("Failed to send email to %s after %d attempts: %v", to, m.maxRetries+1, lastErr)
	return false
}

// envelopeAddress strips a display name ("Next CRM <a@b>") down to the bare
// address SMTP MAIL FROM requires.
func envelopeAddress(sender string) string {
	if start := strings.LastIndex(sender, "<"); start >= 0 {
		if end := strings.LastIndex(sender, ">"); end > start {
			return sender[start+1 : end]
		}
	}
	return sender
}

// buildMessage assembles a multipart/alternative MIME message so clients can
// pick between the text and HTML bodies.
func (m *Mailer) buildMessage(to string, tpl Template) []byte {
	boundary := "nextcrm-alt-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.sender)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", tpl.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(tpl.Text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(tpl.HTML)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}
