package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"time"
)

// SMTPMailer delivers mail through a plain SMTP relay with optional AUTH.
type SMTPMailer struct {
	Addr     string // host:port of the relay
	From     string
	Username string
	Password string
	BaseURL  string        // frontend origin the reset link points at
	TokenTTL time.Duration // how long the mailed link stays valid
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Reset your password\r\n"+
			"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.From, to, resetBody(m.BaseURL, token, m.TokenTTL),
	)

	var auth smtp.Auth
	if m.Username != "" {
		host, _, err := net.SplitHostPort(m.Addr)
		if err != nil {
			host = m.Addr
		}
		auth = smtp.PlainAuth("", m.Username, m.Password, host)
	}

	if err := smtp.SendMail(m.Addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
