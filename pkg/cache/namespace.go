package cache

import (
	"context"
	"time"
)

// namespaced prefixes every key before delegating to the wrapped cache.
type namespaced struct {
	inner  Cache
	prefix string
}

// Namespaced wraps c so that every key is prefixed with prefix.
// A nil c is treated as a [NullCache].
//
//	gh := cache.Namespaced(redisCache, "github:")
//	gh.Set(ctx, "repo:anthropics/skills", data, time.Hour) // stored as "github:repo:anthropics/skills"
func Namespaced(c Cache, prefix string) Cache {
	if c == nil {
		c = NewNullCache()
	}
	return &namespaced{inner: c, prefix: prefix}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return n.inner.Set(ctx, n.prefix+key, data, ttl)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

// Close closes the wrapped cache.
func (n *namespaced) Close() error {
	return n.inner.Close()
}
