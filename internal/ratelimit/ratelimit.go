// Package ratelimit provides the injected request limiter collaborator used
// by the HTTP layer. Implementations share a small interface so the redis
// limiter can be swapped for the in-memory one in tests and local runs.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter per key backed by redis, shared
// across service instances.
type RedisLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
}

// NewRedisLimiter creates a redis-backed limiter.
func NewRedisLimiter(client *redis.Client, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, requests: requests, window: window}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(l.window.Seconds()))

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return count.Val() <= int64(l.requests), nil
}

// TokenBucket is an in-process token bucket limiter for tests and local
// single-instance runs.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewTokenBucket creates a limiter allowing requests per window.
func NewTokenBucket(requests int, window time.Duration) *TokenBucket {
	return &TokenBucket{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: time.Now(),
	}
}

// Allow implements Limiter. The key is ignored; the bucket is global.
func (b *TokenBucket) Allow(_ context.Context, _ string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastTime).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastTime = now

	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}
