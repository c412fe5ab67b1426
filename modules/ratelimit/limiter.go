package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a connection may relay another frame.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string)
}

// New creates the limiter selected by cfg and a function releasing its resources.
// A non-positive limit disables rate limiting and returns a nil Limiter.
func New(ctx context.Context, cfg Config) (Limiter, func() error, error) {
	noop := func() error { return nil }
	if cfg.Limit <= 0 {
		return nil, noop, nil
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.RedisAddr == "" {
		log.Printf("[ratelimit] Using in-memory token bucket (%d per %s)", cfg.Limit, cfg.Window)
		return NewMemoryLimiter(cfg.Limit, cfg.Window), noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Printf("[ratelimit] Using Redis sliding window at %s (%d per %s)", cfg.RedisAddr, cfg.Limit, cfg.Window)
	return NewRedisLimiter(client, cfg.KeyPrefix, cfg.Limit, cfg.Window), client.Close, nil
}

// bucket implements a token bucket refilled continuously.
type bucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// MemoryLimiter is a per-key token bucket limiter held in process memory.
type MemoryLimiter struct {
	maxTokens  float64
	refillRate float64 // tokens per second
	buckets    sync.Map
	now        func() time.Time
}

// NewMemoryLimiter allows bursts of limit frames, refilled at limit per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		maxTokens:  float64(limit),
		refillRate: float64(limit) / window.Seconds(),
		now:        time.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	val, _ := l.buckets.LoadOrStore(key, &bucket{tokens: l.maxTokens, lastRefill: now})
	b := val.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.maxTokens {
			b.tokens = l.maxTokens
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Forget drops key's bucket.
func (l *MemoryLimiter) Forget(_ context.Context, key string) {
	l.buckets.Delete(key)
}

// RedisLimiter implements sliding window rate limiting using Redis.
type RedisLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewRedisLimiter creates a new rate limiter with Redis backend.
func NewRedisLimiter(client *redis.Client, keyPrefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
	}
}

// slidingWindow atomically trims expired entries and records the frame if under the limit.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)
	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_ms = window_ms + 1000
		redis.call('PEXPIRE', key, expire_ms)
		redis.call('PEXPIRE', key .. ':counter', expire_ms)
		return 1
	end
	return 0
`)

// Allow checks if a frame is allowed under the rate limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-l.window)

	allowed, err := slidingWindow.Run(ctx, l.client, []string{l.keyPrefix + key},
		now.UnixMilli(), windowStart.UnixMilli(), l.limit, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis script error: %w", err)
	}
	return allowed == 1, nil
}

// Forget clears the rate limit state for key.
func (l *RedisLimiter) Forget(ctx context.Context, key string) {
	redisKey := l.keyPrefix + key
	if err := l.client.Del(ctx, redisKey, redisKey+":counter").Err(); err != nil {
		log.Printf("[ratelimit] Failed to reset %s: %v", key, err)
	}
}
