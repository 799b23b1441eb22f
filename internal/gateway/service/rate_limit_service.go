package service

import (
	"context"
	"time"

	"codequest/internal/common/cache"
	pkgerrors "codequest/pkg/errors"
)

// RateLimitService enforces fixed-window limits using Redis.
type RateLimitService struct {
	cache        cache.Cache
	window       time.Duration
	redisTimeout time.Duration
}

func NewRateLimitService(cacheClient cache.Cache, window time.Duration, redisTimeout time.Duration) *RateLimitService {
	if window <= 0 {
		window = time.Minute
	}
	if redisTimeout <= 0 {
		redisTimeout = 500 * time.Millisecond
	}
	return &RateLimitService{cache: cacheClient, window: window, redisTimeout: redisTimeout}
}

// Allow counts one hit on key and fails with TooManyRequests once max is exceeded within window.
func (s *RateLimitService) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if s.cache == nil {
		return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("rate limit cache is unavailable")
	}
	if max <= 0 {
		return nil
	}
	if window <= 0 {
		window = s.window
	}

	ctxCache, cancel := context.WithTimeout(ctx, s.redisTimeout)
	defer cancel()

	acquired, err := s.cache.SetNX(ctxCache, key, 1, window)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
	}
	count := int64(1)
	if !acquired {
		count, err = s.cache.Incr(ctxCache, key)
		if err != nil {
			return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
		}
		// A key without expiry would block forever.
		if ttl, ttlErr := s.cache.TTL(ctxCache, key); ttlErr == nil && ttl < 0 {
			_ = s.cache.Expire(ctxCache, key, window)
		}
	}
	if int(count) > max {
		return pkgerrors.New(pkgerrors.TooManyRequests).WithDetail("retry_after_seconds", int(window.Seconds()))
	}
	return nil
}
