package service

import (
	"context"
	"errors"
	"strings"

	"github.com/billfold/accounts/internal/accounts/domain"
	"github.com/billfold/accounts/internal/accounts/store"
	"github.com/billfold/accounts/pkg/cryptox"
	"github.com/billfold/accounts/pkg/idx"
	"github.com/billfold/accounts/pkg/slogx"
)

var (
	// ErrInvalidCredentials is returned for both unknown-email and
	// wrong-password so login responses cannot be used to probe which
	// addresses hold accounts.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrAccountDisabled is returned when credentials are correct but the
	// account has been deactivated.
	ErrAccountDisabled = errors.New("account_disabled")

	// ErrEmailTaken is returned by Register when the email already has an
	// account.
	ErrEmailTaken = errors.New("email_taken")
)

// UserService implements registration and credential checks.
type UserService struct {
	Store store.Store
}

// RegisterParams are the inputs to Register, pre-decoding. Email is
// normalized and the password is policy-checked before anything is stored.
type RegisterParams struct {
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

// Register creates a new active account. It returns *ValidationError for
// malformed input and ErrEmailTaken when the address already has an account.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (domain.User, error) {
	l := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(params.Email)

	fields := FieldErrors{}
	if email == "" {
		fields.add("email", "is required")
	} else if !validEmail(email) {
		fields.add("email", "is not a valid email address")
	}
	if strings.TrimSpace(params.FirstName) == "" {
		fields.add("first_name", "is required")
	}
	if strings.TrimSpace(params.LastName) == "" {
		fields.add("last_name", "is required")
	}
	for _, msg := range ValidatePassword(params.Password) {
		fields.add("password", msg)
	}
	if params.PasswordConfirm != params.Password {
		fields.add("password_confirm", "does not match password")
	}
	if len(fields) > 0 {
		return domain.User{}, &ValidationError{Fields: fields}
	}

	hash, err := cryptox.HashPassword(params.Password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		PasswordHash: hash,
		Active:       true,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	l.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate checks an email/password pair. The unknown-email and
// wrong-password paths return the same error; only a disabled account with
// correct credentials is distinguished.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn comparable time so the two failure paths are not
			// trivially distinguishable by latency.
			_ = cryptox.VerifyPassword(password, cryptox.DummyHash)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed: password mismatch", "user_id", user.ID)
		return domain.User{}, ErrInvalidCredentials
	}

	if !user.Active {
		l.Info("login rejected: account disabled", "user_id", user.ID)
		return domain.User{}, ErrAccountDisabled
	}

	return user, nil
}
