package cryptox_test

import (
	"strings"
	"testing"

	"github.com/billfold/accounts/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	t.Run("produces PHC-format hash", func(t *testing.T) {
		hash, err := cryptox.HashPassword("Str0ngP@ss!")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		a, err := cryptox.HashPassword("hunter22")
		require.NoError(t, err)
		b, err := cryptox.HashPassword("hunter22")
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.HashPassword("Str0ngP@ss!")
	require.NoError(t, err)

	t.Run("accepts correct password", func(t *testing.T) {
		require.NoError(t, cryptox.VerifyPassword("Str0ngP@ss!", hash))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		err := cryptox.VerifyPassword("wrong-password", hash)
		require.ErrorIs(t, err, cryptox.ErrPasswordMismatch)
	})

	t.Run("rejects malformed hash", func(t *testing.T) {
		require.Error(t, cryptox.VerifyPassword("anything", "not-a-phc-hash"))
	})

	t.Run("rejects non-argon2id hash", func(t *testing.T) {
		require.Error(t, cryptox.VerifyPassword("anything", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"))
	})
}
