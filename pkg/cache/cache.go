// Package cache provides byte-oriented caches for GitHub API responses.
//
// The indexer caches repository metadata across runs so that repeated runs
// within the TTL do not spend rate-limit quota on unchanged repositories.
// Descriptor contents are never cached here; descriptor validation results
// live only for the duration of one run.
//
// # Implementations
//
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: JSON entries on local disk, for CLI use
//   - [RedisCache]: shared cache for scheduled or serve-mode deployments
//
// Use [Namespaced] to prefix every key, and [Key] to derive stable keys
// from several components.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values by key with an optional TTL.
//
// Get returns hit=false (and no error) for missing or expired keys.
// A ttl of zero on Set means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
