// Package store persists batch checkpoint state behind a small
// key-value interface with token-guarded advisory locks.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// MaxPayload is the largest value Set accepts, in bytes. Batch state
// that grows past it must be compacted by the caller before persisting.
const MaxPayload = 500 * 1024

// ErrLockHeld is returned by Lock while another live run owns the key.
var ErrLockHeld = eris.New("store: lock held")

// ErrLockLost is returned by Refresh when the token no longer owns the
// key. The caller must stop mutating state for that key.
var ErrLockLost = eris.New("store: lock lost")

// ErrPayloadTooLarge is returned by Set when the value exceeds MaxPayload.
var ErrPayloadTooLarge = eris.New("store: payload exceeds size limit")

// Store defines the persistence interface for batch checkpoint state.
type Store interface {
	// Checkpoints. Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Locks. Lock returns an owner token; a lock past its TTL counts
	// as abandoned and is reclaimed. Refresh pushes a held lock's expiry
	// out, keeping a long run from going stale between checkpoints.
	// Unlock only releases while token still owns the key and is a
	// no-op otherwise.
	Lock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Refresh(ctx context.Context, key, token string, ttl time.Duration) error
	Unlock(ctx context.Context, key, token string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
