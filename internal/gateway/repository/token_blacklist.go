package repository

import (
	"context"
	"errors"
	"time"

	"codequest/internal/common/cache"
)

const tokenKeyPrefix = "token:"

const revokedMarker = "revoked"

// TokenBlacklistRepository records revoked access tokens in Redis under
// token:<hash> until the token would have expired anyway. Positive lookups are
// memoised in a local LRU; negative ones always reach Redis.
type TokenBlacklistRepository struct {
	local        *LRUCache[bool]
	redis        cache.Cache
	redisTimeout time.Duration
}

func NewTokenBlacklistRepository(local *LRUCache[bool], redis cache.Cache, redisTimeout time.Duration) *TokenBlacklistRepository {
	if redisTimeout <= 0 {
		redisTimeout = 500 * time.Millisecond
	}
	return &TokenBlacklistRepository{
		local:        local,
		redis:        redis,
		redisTimeout: redisTimeout,
	}
}

// Revoke blacklists tokenHash for ttl. A non-positive ttl means the token has already expired.
func (r *TokenBlacklistRepository) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if tokenHash == "" || ttl <= 0 {
		return nil
	}
	if r.redis == nil {
		return errors.New("redis is nil")
	}
	ctxCache, cancel := context.WithTimeout(ctx, r.redisTimeout)
	defer cancel()
	if err := r.redis.Set(ctxCache, tokenKeyPrefix+tokenHash, revokedMarker, ttl); err != nil {
		return err
	}
	if r.local != nil {
		r.local.Set(tokenHash, true, ttl)
	}
	return nil
}

func (r *TokenBlacklistRepository) IsBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	if tokenHash == "" {
		return false, nil
	}
	if r.local != nil {
		if val, ok := r.local.Get(tokenHash); ok {
			return val, nil
		}
	}
	if r.redis == nil {
		return false, errors.New("redis is nil")
	}
	ctxCache, cancel := context.WithTimeout(ctx, r.redisTimeout)
	defer cancel()
	n, err := r.redis.Exists(ctxCache, tokenKeyPrefix+tokenHash)
	if err != nil {
		return false, err
	}
	blacklisted := n > 0
	if blacklisted && r.local != nil {
		ttl, err := r.redis.TTL(ctxCache, tokenKeyPrefix+tokenHash)
		if err == nil && ttl > 0 {
			r.local.Set(tokenHash, true, ttl)
		}
	}
	return blacklisted, nil
}
