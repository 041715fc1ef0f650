// Package store defines the shared session state contract.
//
// Request handlers are stateless and share no process memory; the store is
// the single coordination point. Every read-then-write on shared state must
// therefore go through one of the atomic primitives here — an increment or
// a compare-and-swap — never through separate Get and Put calls.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable reports that the backing store could not be reached.
// Writes surface it loudly; rate limiting fails open on it.
var ErrUnavailable = errors.New("state store unavailable")

// Store is a key-value store with the atomic primitives the engine relies
// on. Implementations must make each method a single atomic operation.
type Store interface {
	// Get returns the value and its version. ok is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (val []byte, version int64, ok bool, err error)

	// Put writes unconditionally, clearing any expiry.
	Put(ctx context.Context, key string, val []byte) error

	// CompareAndSwap writes only if the current version equals expect.
	// expect 0 means "create only if absent". Returns whether the swap
	// happened.
	CompareAndSwap(ctx context.Context, key string, expect int64, val []byte) (bool, error)

	// Incr atomically adds delta to an integer counter, creating it at
	// delta if absent or expired, and returns the new value.
	Incr(ctx context.Context, key string, delta int64) (int64, error)

	// Expire sets a time-to-live on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Keys lists the live keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Wipe clears the whole store (session-wide reset).
	Wipe(ctx context.Context) error
}
