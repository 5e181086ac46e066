// package store provides the expiring key-value store backing server-side sessions.
package store

import (
	"context"
	"fmt"
	"time"
)

// ErrNotFound signals that a key is absent from the store, either because it
// was never written or because its TTL elapsed. Callers cannot distinguish
// the two cases.
var ErrNotFound = fmt.Errorf("key not found")

// Store is an expiring key-value store. All operations are atomic at
// single-key granularity; no cross-key transactions exist.
//
// Implementations wrap infrastructure failures in [shared.ErrStoreUnavailable]
// so callers can keep outages distinct from absent keys.
type Store interface {
	// Set writes value under key, unconditionally overwriting any previous
	// value and resetting the TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key, or [ErrNotFound].
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's underlying resources.
	Close() error
}
