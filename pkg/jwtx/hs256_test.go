package jwtx_test

import (
	"testing"
	"time"

	"github.com/billfold/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "accounts-test"

func testSigner() *jwtx.HS256 {
	return jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), testIssuer)
}

func TestHS256RoundTrip(t *testing.T) {
	t.Parallel()

	s := testSigner()
	now := time.Now().UTC()

	claims := jwtx.NewAccessClaims("user-1", "a@b.com", "Ada Lovelace", 15*time.Minute, testIssuer, now)
	raw, err := s.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := s.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "a@b.com", got.Email)
	require.Equal(t, "Ada Lovelace", got.FullName)
	require.Equal(t, testIssuer, got.Issuer)
	require.NotEmpty(t, got.ID) // jti
}

func TestHS256Verify(t *testing.T) {
	t.Parallel()

	s := testSigner()
	now := time.Now().UTC()

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := s.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		other := jwtx.NewHS256([]byte("ffffffffffffffffffffffffffffffff"), testIssuer)
		raw, err := other.Sign(jwtx.NewAccessClaims("user-1", "a@b.com", "", time.Minute, testIssuer, now))
		require.NoError(t, err)

		_, err = s.Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		raw, err := s.Sign(jwtx.NewAccessClaims("user-1", "a@b.com", "", time.Minute, testIssuer, now.Add(-time.Hour)))
		require.NoError(t, err)

		_, err = s.Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("rejects issuer mismatch", func(t *testing.T) {
		raw, err := s.Sign(jwtx.NewAccessClaims("user-1", "a@b.com", "", time.Minute, "someone-else", now))
		require.NoError(t, err)

		_, err = s.Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})
}

func TestClaimsValidateExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	fresh := jwtx.NewAccessClaims("u", "e", "", time.Minute, testIssuer, now)
	require.NoError(t, fresh.ValidateExpiry())

	stale := jwtx.NewAccessClaims("u", "e", "", time.Minute, testIssuer, now.Add(-time.Hour))
	require.ErrorIs(t, stale.ValidateExpiry(), jwtx.ErrExpired)

	future := jwtx.NewAccessClaims("u", "e", "", time.Minute, testIssuer, now.Add(time.Hour))
	require.ErrorIs(t, future.ValidateExpiry(), jwtx.ErrNotYetValid)
}
