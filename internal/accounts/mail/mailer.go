// Package mail delivers transactional email. The only message the service
// sends today is the password reset link.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/billfold/accounts/pkg/slogx"
)

// Mailer sends transactional mail. Implementations must return an error when
// delivery to the outbound relay fails; the reset flow treats that as fatal
// and rolls back the token it just minted.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// LogMailer writes the mail to the log instead of sending it. Default in
// development so the flow is testable without an SMTP relay.
type LogMailer struct {
	BaseURL  string
	TokenTTL time.Duration
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	slogx.FromContext(ctx).Info("password reset email (log delivery)",
		"to", to,
		"reset_url", resetURL(m.BaseURL, token),
		"valid_for", ttlText(m.TokenTTL),
	)
	return nil
}

func resetURL(baseURL, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", baseURL, token)
}

func resetBody(baseURL, token string, ttl time.Duration) string {
	return fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"We received a request to reset the password for your account.\r\n"+
			"Use the link below within the next %s to choose a new password:\r\n\r\n"+
			"%s\r\n\r\n"+
			"If you did not request this, you can safely ignore this email.\r\n",
		ttlText(ttl),
		resetURL(baseURL, token),
	)
}

// ttlText renders the token lifetime for the mail copy. A zero value falls
// back to one hour, matching the reset flow's default TTL.
func ttlText(ttl time.Duration) string {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if ttl >= time.Hour && ttl%time.Hour == 0 {
		if h := int(ttl / time.Hour); h > 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "hour"
	}
	if m := int(ttl / time.Minute); m > 1 {
		return fmt.Sprintf("%d minutes", m)
	}
	return "minute"
}
