// Package cache provides the key/value layer that backs the engine's read
// views. Entries are a pure performance optimization and never the system of
// record: losing all of them changes latency, not results.
package cache

import (
	"context"
	"time"
)

// Cache is the contract the rating engine depends on. Delete is idempotent
// (removing an absent key is a no-op) and DeleteMatching makes wildcard
// invalidation a capability of the layer itself, so business code never
// enumerates keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteMatching(ctx context.Context, pattern string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// DefaultTTL bounds how long a stale entry can survive a failed invalidation.
const DefaultTTL = time.Hour
