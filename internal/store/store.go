// Package store provides the key/value adapter backing session state.
// All cross-request state lives here; handlers treat read failures as
// "not found" so a store outage can never fail open into an
// authenticated state.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = errors.New("not found")

// Store is a narrow key/value abstraction with per-entry TTL. The TTL
// is a hard-expiry backstop enforced by the backend; record-level age
// checks remain the primary expiry mechanism because a record rewritten
// in place keeps its original semantic age.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes value under key. A zero ttl stores the entry without
	// backend expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
