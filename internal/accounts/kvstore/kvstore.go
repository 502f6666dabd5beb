// Package kvstore holds short-lived keyed secrets, currently the password
// reset tokens. Values live under a namespaced key with a TTL and are
// deleted once consumed.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no live value (never stored,
// expired, or already consumed). Callers must treat all three identically.
var ErrNotFound = errors.New("kvstore: not found")

// TokenStore is the reset-token state interface. Implementations must make
// Put an unconditional overwrite (a re-request invalidates the previous
// token) and Delete idempotent.
type TokenStore interface {
	// Put stores value under key with the given TTL, replacing any
	// existing value and its remaining TTL.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the live value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
