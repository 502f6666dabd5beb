package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/billfold/accounts/internal/accounts/domain"
	"github.com/billfold/accounts/internal/accounts/kvstore"
	"github.com/billfold/accounts/internal/accounts/mail"
	"github.com/billfold/accounts/internal/accounts/store"
	"github.com/billfold/accounts/pkg/cryptox"
	"github.com/billfold/accounts/pkg/slogx"
)

// DefaultResetTokenTTL is how long a reset token stays valid.
const DefaultResetTokenTTL = time.Hour

var (
	// ErrTokenInvalid covers every unusable reset token: never issued,
	// expired, already consumed, superseded, or simply wrong. Collapsing
	// these denies an attacker any detail about token state.
	ErrTokenInvalid = errors.New("invalid_reset_token")

	// ErrAccountNotFound is returned by Consume when the account behind a
	// valid token no longer exists or has been disabled.
	ErrAccountNotFound = errors.New("account_not_found")

	// ErrDeliveryFailed is returned when the reset email cannot be handed
	// to the outbound relay.
	ErrDeliveryFailed = errors.New("reset_email_delivery_failed")
)

// ResetService implements the forgot-password flow: minting single-use
// expiring tokens, verifying them, and consuming them to set a new password.
//
// Tokens are stored keyed by normalized email, so each account holds at most
// one live token and a re-request silently invalidates the previous one.
type ResetService struct {
	Store    store.Store
	Tokens   kvstore.TokenStore
	Mailer   mail.Mailer
	TokenTTL time.Duration
}

func (s *ResetService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return DefaultResetTokenTTL
}

// Request starts a password reset for email. Whether or not an account
// exists the caller gets a nil error, so the endpoint cannot be used to
// enumerate registered addresses. A delivery failure for a real account is
// the one exception: the token is rolled back and ErrDeliveryFailed returned.
func (s *ResetService) Request(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.Active {
		l.Info("password reset requested for disabled account", "user_id", user.ID)
		return nil
	}

	token := cryptox.NewResetToken()

	// Overwrites any previous token for this account and restarts the TTL.
	if err := s.Tokens.Put(ctx, email, token, s.tokenTTL()); err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		l.Error("password reset email delivery failed", "user_id", user.ID, "error", err)
		// Don't leave a live token the user never received.
		_ = s.Tokens.Delete(ctx, email)
		return ErrDeliveryFailed
	}

	l.Info("password reset token issued", "user_id", user.ID)
	return nil
}

// Verify checks whether (email, token) identifies a live reset token without
// consuming it. Front-ends call this before rendering the new-password form.
// Missing fields are a validation failure, distinct from the invalid-token
// answer an unusable token gets.
func (s *ResetService) Verify(ctx context.Context, email, token string) error {
	email = domain.NormalizeEmail(email)

	fields := FieldErrors{}
	if email == "" {
		fields.add("email", "is required")
	}
	if token == "" {
		fields.add("token", "is required")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	stored, err := s.Tokens.Get(ctx, email)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return ErrTokenInvalid
		}
		return err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return ErrTokenInvalid
	}
	return nil
}

// ConsumeParams carries the reset-password request fields.
type ConsumeParams struct {
	Email           string
	Token           string
	NewPassword     string
	ConfirmPassword string
}

// Consume redeems a reset token and sets the account's password to the new
// one. On success every refresh token the user holds is revoked, so sessions
// opened with the old password die immediately.
//
// The stored token is released only after the password update has been
// durably applied: a failed update leaves the token valid so the user can
// retry, while a failed release after a successful update can only cause a
// redundant reset, never a replay onto a second password change with the
// same proof.
func (s *ResetService) Consume(ctx context.Context, p ConsumeParams) error {
	l := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(p.Email)

	if err := s.Verify(ctx, email, p.Token); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !user.Active {
		return ErrAccountNotFound
	}

	fields := FieldErrors{}
	for _, msg := range ValidatePassword(p.NewPassword) {
		fields.add("new_password", msg)
	}
	if p.NewPassword != p.ConfirmPassword {
		fields.add("confirm_password", "does not match the new password")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	hash, err := cryptox.HashPassword(p.NewPassword)
	if err != nil {
		return err
	}

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, user.ID)
	}); err != nil {
		return err
	}

	if err := s.Tokens.Delete(ctx, email); err != nil {
		// Password is already changed; the leftover token only allows a
		// second reset, so log and move on rather than failing the request.
		l.Error("reset token release failed after password update", "user_id", user.ID, "error", err)
	}

	l.Info("password reset completed", "user_id", user.ID)
	return nil
}
