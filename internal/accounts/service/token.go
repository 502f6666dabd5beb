package service

import (
	"context"
	"errors"
	"time"

	"github.com/billfold/accounts/internal/accounts/domain"
	"github.com/billfold/accounts/internal/accounts/store"
	"github.com/billfold/accounts/pkg/cryptox"
	"github.com/billfold/accounts/pkg/idx"
	"github.com/billfold/accounts/pkg/jwtx"
	"github.com/billfold/accounts/pkg/slogx"
)

// ErrInvalidRefresh is returned for any refresh token that cannot be used:
// unknown, expired, or revoked. Callers get no finer detail.
var ErrInvalidRefresh = errors.New("invalid_refresh_token")

// TokenService issues, refreshes, and revokes session tokens. Access tokens
// are signed JWTs verified statelessly; refresh tokens are opaque values
// whose SHA-256 fingerprint is persisted so they can be revoked.
type TokenService struct {
	Signer     jwtx.Signer
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issue creates a fresh token pair for an already-authenticated user.
func (s *TokenService) Issue(ctx context.Context, user domain.User) (*domain.TokenPair, error) {
	now := time.Now()

	accessToken, err := s.signAccess(user, now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	refresh := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		ExpiresAt: now.Add(s.RefreshTTL).UTC(),
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		ExpiresIn:    int(s.AccessTTL.Seconds()),
	}, nil
}

// Refresh validates a refresh token and rotates it: the old token is revoked
// and a new pair is issued in a single transaction, so a replayed old token
// always fails.
func (s *TokenService) Refresh(ctx context.Context, refreshOpaque string) (*domain.TokenPair, error) {
	now := time.Now()

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if rt.Revoked || now.After(rt.ExpiresAt) {
		return nil, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrInvalidRefresh
	}

	accessToken, err := s.signAccess(user, now)
	if err != nil {
		return nil, err
	}

	newRefreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	newRT := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(newRefreshOpaque),
		ExpiresAt: now.Add(s.RefreshTTL).UTC(),
	}

	// Atomically: revoke old token and create new one
	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, newRT)
	}); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshOpaque,
		ExpiresIn:    int(s.AccessTTL.Seconds()),
	}, nil
}

// Revoke invalidates a single refresh token (logout). A token that was never
// issued gets ErrInvalidRefresh; re-revoking an existing token is not an
// error, so a repeated logout still succeeds.
func (s *TokenService) Revoke(ctx context.Context, refreshOpaque string) error {
	fp := cryptox.FingerprintToken(refreshOpaque)
	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidRefresh
		}
		slogx.FromContext(ctx).Error("refresh token revocation failed", "error", err)
		return err
	}
	return nil
}

// RevokeAllForUser invalidates every live refresh token a user holds. Called
// after a password reset so stolen sessions die with the old password.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
}

func (s *TokenService) signAccess(u domain.User, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(
		u.ID,         // subject
		u.Email,      // email
		u.FullName(), // display name
		s.AccessTTL,  // token lifetime
		s.Issuer,     // issuer
		now,          // current time
	)
	return s.Signer.Sign(claims)
}
