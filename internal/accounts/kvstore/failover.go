package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/billfold/accounts/pkg/slogx"
)

// FailoverStore wraps a primary TokenStore (Redis) with an in-process
// fallback so reset flows keep working across a short Redis outage. The
// fallback is best-effort: tokens written to it are lost on restart and are
// not shared between replicas, which is acceptable for a store whose worst
// failure mode is "user requests another reset email".
type FailoverStore struct {
	primary  TokenStore
	fallback TokenStore
}

func NewFailoverStore(primary, fallback TokenStore) *FailoverStore {
	return &FailoverStore{primary: primary, fallback: fallback}
}

func (f *FailoverStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := f.primary.Put(ctx, key, value, ttl); err != nil {
		slogx.FromContext(ctx).Warn("token store primary put failed, using fallback", "error", err)
		return f.fallback.Put(ctx, key, value, ttl)
	}
	// The primary holds the authoritative copy now; drop any stale
	// fallback entry from a previous outage.
	_ = f.fallback.Delete(ctx, key)
	return nil
}

func (f *FailoverStore) Get(ctx context.Context, key string) (string, error) {
	val, err := f.primary.Get(ctx, key)
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, ErrNotFound) {
		slogx.FromContext(ctx).Warn("token store primary get failed, using fallback", "error", err)
	}
	// Also checked on NotFound: the token may have been written to the
	// fallback while the primary was down.
	return f.fallback.Get(ctx, key)
}

func (f *FailoverStore) Delete(ctx context.Context, key string) error {
	// Delete from both so a consumed token cannot resurface from either side.
	errPrimary := f.primary.Delete(ctx, key)
	errFallback := f.fallback.Delete(ctx, key)
	if errPrimary != nil {
		return errPrimary
	}
	return errFallback
}

func (f *FailoverStore) Ping(ctx context.Context) error {
	if err := f.primary.Ping(ctx); err == nil {
		return nil
	}
	return f.fallback.Ping(ctx)
}

func (f *FailoverStore) Close() error {
	errPrimary := f.primary.Close()
	errFallback := f.fallback.Close()
	if errPrimary != nil {
		return errPrimary
	}
	return errFallback
}
