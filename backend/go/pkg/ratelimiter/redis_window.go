package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisWindow is a fixed window counter stored in Redis so that every
// instance behind a load balancer shares one budget per key.
// When Redis is unreachable requests are allowed.
type RedisWindow struct {
	client    redis.Cmdable
	limit     int64
	window    time.Duration
	keyPrefix string
	now       func() time.Time
	onError   func(error)
}

// NewRedisWindow creates a new RedisWindow. onError may be nil.
func NewRedisWindow(client redis.Cmdable, limit int, window time.Duration, keyPrefix string, onError func(error)) *RedisWindow {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &RedisWindow{
		client:    client,
		limit:     int64(limit),
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
		onError:   onError,
	}
}

// WindowKey returns the Redis key counting key's requests at t.
func (rw *RedisWindow) WindowKey(key string, t time.Time) string {
	return fmt.Sprintf("%s:%s:%d", rw.keyPrefix, key, t.UnixNano()/int64(rw.window))
}

// Allow increments the key's counter for the current window.
func (rw *RedisWindow) Allow(ctx context.Context, key string) bool {
	redisKey := rw.WindowKey(key, rw.now())

	pipe := rw.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rw.window)
	if _, err := pipe.Exec(ctx); err != nil {
		rw.onError(err)
		return true
	}
	return incr.Val() <= rw.limit
}
