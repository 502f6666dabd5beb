package kvstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/billfold/accounts/internal/accounts/kvstore"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("backend down")

// flakyStore wraps a MemoryStore and fails every operation while down.
type flakyStore struct {
	*kvstore.MemoryStore
	down bool
}

func (f *flakyStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.down {
		return errDown
	}
	return f.MemoryStore.Put(ctx, key, value, ttl)
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, error) {
	if f.down {
		return "", errDown
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.down {
		return errDown
	}
	return f.MemoryStore.Delete(ctx, key)
}

func (f *flakyStore) Ping(ctx context.Context) error {
	if f.down {
		return errDown
	}
	return nil
}

func TestFailoverStore(t *testing.T) {
	ctx := context.Background()

	setup := func() (*kvstore.FailoverStore, *flakyStore, *kvstore.MemoryStore) {
		primary := &flakyStore{MemoryStore: kvstore.NewMemoryStore()}
		fallback := kvstore.NewMemoryStore()
		return kvstore.NewFailoverStore(primary, fallback), primary, fallback
	}

	t.Run("uses primary when healthy", func(t *testing.T) {
		f, primary, fallback := setup()
		require.NoError(t, f.Put(ctx, "k", "v", time.Hour))

		val, err := primary.MemoryStore.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v", val)

		_, err = fallback.Get(ctx, "k")
		require.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("put falls back when primary is down", func(t *testing.T) {
		f, primary, fallback := setup()
		primary.down = true

		require.NoError(t, f.Put(ctx, "k", "v", time.Hour))

		val, err := fallback.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v", val)
	})

	t.Run("get reads fallback during outage", func(t *testing.T) {
		f, primary, _ := setup()
		primary.down = true
		require.NoError(t, f.Put(ctx, "k", "v", time.Hour))

		val, err := f.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v", val)
	})

	t.Run("get checks fallback when primary has no entry", func(t *testing.T) {
		// Token written during an outage must stay readable after the
		// primary recovers empty.
		f, primary, _ := setup()
		primary.down = true
		require.NoError(t, f.Put(ctx, "k", "v", time.Hour))
		primary.down = false

		val, err := f.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v", val)
	})

	t.Run("put after recovery clears stale fallback entry", func(t *testing.T) {
		f, primary, fallback := setup()
		primary.down = true
		require.NoError(t, f.Put(ctx, "k", "old", time.Hour))
		primary.down = false

		require.NoError(t, f.Put(ctx, "k", "new", time.Hour))

		_, err := fallback.Get(ctx, "k")
		require.ErrorIs(t, err, kvstore.ErrNotFound)

		val, err := f.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "new", val)
	})

	t.Run("delete removes from both stores", func(t *testing.T) {
		f, primary, fallback := setup()
		require.NoError(t, primary.MemoryStore.Put(ctx, "k", "v", time.Hour))
		require.NoError(t, fallback.Put(ctx, "k", "v", time.Hour))

		require.NoError(t, f.Delete(ctx, "k"))

		_, err := f.Get(ctx, "k")
		require.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("missing everywhere returns ErrNotFound", func(t *testing.T) {
		f, _, _ := setup()
		_, err := f.Get(ctx, "ghost")
		require.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("ping succeeds if either side is up", func(t *testing.T) {
		f, primary, _ := setup()
		require.NoError(t, f.Ping(ctx))

		primary.down = true
		require.NoError(t, f.Ping(ctx)) // fallback still answers
	})
}
