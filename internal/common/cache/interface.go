package cache

import (
	"context"
	"time"
)

// Cache is the key-value surface the services rely on. Get returns "" with a nil
// error for a missing key.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores a value; ttl 0 means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// SetNX reports whether the key was set.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// Exists returns how many of keys exist.
	Exists(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL follows Redis semantics: -1 no expiry, -2 missing key.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Incr(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
