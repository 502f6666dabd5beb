package cryptox_test

import (
	"strings"
	"testing"

	"github.com/billfold/accounts/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive size", func(t *testing.T) {
		_, err := cryptox.GenerateToken(0)
		require.Error(t, err)
		_, err = cryptox.GenerateToken(-1)
		require.Error(t, err)
	})

	t.Run("generates unique url-safe tokens", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 100 {
			token, err := cryptox.GenerateToken(cryptox.TokenSize256)
			require.NoError(t, err)
			require.Len(t, token, 43) // 32 bytes base64url, no padding
			require.NotContains(t, token, "=")
			require.NotContains(t, token, "+")
			require.NotContains(t, token, "/")

			_, dup := seen[token]
			require.False(t, dup, "token collision")
			seen[token] = struct{}{}
		}
	})
}

func TestNewResetToken(t *testing.T) {
	t.Parallel()

	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	t.Run("fixed length from letters and digits", func(t *testing.T) {
		for range 50 {
			token := cryptox.NewResetToken()
			require.Len(t, token, cryptox.ResetTokenLength)
			for _, c := range token {
				require.True(t, strings.ContainsRune(alphabet, c), "unexpected character %q", c)
			}
		}
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 100 {
			token := cryptox.NewResetToken()
			_, dup := seen[token]
			require.False(t, dup, "token collision")
			seen[token] = struct{}{}
		}
	})
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp := cryptox.FingerprintToken("some-token")
	require.Len(t, fp, 43)

	// Deterministic, but distinct for distinct inputs.
	require.Equal(t, fp, cryptox.FingerprintToken("some-token"))
	require.NotEqual(t, fp, cryptox.FingerprintToken("other-token"))
}
