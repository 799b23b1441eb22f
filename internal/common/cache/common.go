package cache

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"time"
)

// NullCacheValue marks a cached absence so repeated misses do not reach the store.
const NullCacheValue = "$NULL$"

// GetWithCached implements cache-aside with null value caching. A nil cache
// degrades to calling fn directly. Cache failures never fail the read.
func GetWithCached[T any](
	ctx context.Context,
	cache Cache,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) string,
	unmarshal func(string) (T, error),
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T
	if cache == nil {
		return fn(ctx)
	}

	if cached, err := cache.Get(ctx, key); err == nil && cached != "" {
		if cached == NullCacheValue {
			return zero, nil
		}
		if result, err := unmarshal(cached); err == nil {
			return result, nil
		}
	}

	data, err := fn(ctx)
	if err != nil {
		return zero, err
	}
	if isEmpty(data) {
		_ = cache.Set(ctx, key, NullCacheValue, emptyTTL)
		return zero, nil
	}
	_ = cache.Set(ctx, key, marshal(data), JitterTTL(ttl))
	return data, nil
}

// GetJSONWithCached is GetWithCached for pointer values stored as JSON.
func GetJSONWithCached[T any](
	ctx context.Context,
	cache Cache,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	fn func(context.Context) (*T, error),
) (*T, error) {
	return GetWithCached(ctx, cache, key, ttl, emptyTTL,
		func(v *T) bool { return v == nil },
		func(v *T) string {
			data, _ := json.Marshal(v)
			return string(data)
		},
		func(raw string) (*T, error) {
			var v T
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, err
			}
			return &v, nil
		},
		fn,
	)
}

// UpdateCached runs fn and invalidates key once it succeeds.
func UpdateCached(ctx context.Context, cache Cache, key string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	if cache != nil {
		_ = cache.Del(ctx, key)
	}
	return nil
}

// DeleteCached is UpdateCached for deletes.
func DeleteCached(ctx context.Context, cache Cache, key string, fn func(context.Context) error) error {
	return UpdateCached(ctx, cache, key, fn)
}

// JitterTTL shortens ttl by up to 10% so hot keys do not expire together.
func JitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	maxJitter := int64(ttl / 10)
	if maxJitter <= 0 {
		return ttl
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxJitter+1))
	if err != nil {
		return ttl
	}
	return ttl - time.Duration(n.Int64())
}
