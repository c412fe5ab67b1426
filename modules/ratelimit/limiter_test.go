package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const testRedisAddr = "localhost:6379"

func TestMemoryLimiter_Burst(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(3, time.Second)
	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "c1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !ok {
			t.Errorf("frame %d should be allowed", i)
		}
	}
	if ok, _ := limiter.Allow(ctx, "c1"); ok {
		t.Error("frame beyond burst should be rejected")
	}

	// Other keys have their own bucket.
	if ok, _ := limiter.Allow(ctx, "c2"); !ok {
		t.Error("independent key should be allowed")
	}
}

func TestMemoryLimiter_Refill(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(2, time.Second)
	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	limiter.Allow(ctx, "c1")
	limiter.Allow(ctx, "c1")
	if ok, _ := limiter.Allow(ctx, "c1"); ok {
		t.Fatal("bucket should be empty")
	}

	now = now.Add(500 * time.Millisecond)
	if ok, _ := limiter.Allow(ctx, "c1"); !ok {
		t.Error("half a window should refill one token")
	}
	if ok, _ := limiter.Allow(ctx, "c1"); ok {
		t.Error("only one token should have been refilled")
	}

	now = now.Add(time.Hour)
	allowed := 0
	for i := 0; i < 5; i++ {
		if ok, _ := limiter.Allow(ctx, "c1"); ok {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed %d after long idle, want burst of 2", allowed)
	}
}

func TestMemoryLimiter_Forget(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(1, time.Minute)

	limiter.Allow(ctx, "c1")
	if ok, _ := limiter.Allow(ctx, "c1"); ok {
		t.Fatal("second frame should be rejected")
	}
	limiter.Forget(ctx, "c1")
	if ok, _ := limiter.Allow(ctx, "c1"); !ok {
		t.Error("Forget() should reset the bucket")
	}
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(10, time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(ctx, "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("allowed = %d, want 10", allowed)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	limiter, closeFn, err := New(ctx, Config{Limit: 0})
	if err != nil || limiter != nil {
		t.Errorf("New(limit=0) = %v, %v; want nil limiter", limiter, err)
	}
	_ = closeFn()

	limiter, closeFn, err = New(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeFn()
	if _, ok := limiter.(*MemoryLimiter); !ok {
		t.Errorf("New() without Redis returned %T, want *MemoryLimiter", limiter)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RELAY_RATE_LIMIT", "5")
	t.Setenv("RELAY_RATE_WINDOW", "2s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")

	cfg := ConfigFromEnv(WithKeyPrefix("test:"))
	if cfg.Limit != 5 || cfg.Window != 2*time.Second {
		t.Errorf("limit = %d/%s, want 5/2s", cfg.Limit, cfg.Window)
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 3 {
		t.Errorf("redis = %s/%d", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.KeyPrefix != "test:" {
		t.Errorf("KeyPrefix = %q, want test:", cfg.KeyPrefix)
	}
}

func setupRedisLimiter(t *testing.T, limit int, window time.Duration) *RedisLimiter {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: testRedisAddr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { _ = client.Close() })

	prefix := fmt.Sprintf("test:relay:%d:", time.Now().UnixNano())
	return NewRedisLimiter(client, prefix, limit, window)
}

func TestRedisLimiter_Allow(t *testing.T) {
	limiter := setupRedisLimiter(t, 3, time.Minute)
	ctx := context.Background()
	defer limiter.Forget(ctx, "c1")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "c1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !ok {
			t.Errorf("frame %d should be allowed", i)
		}
	}
	ok, err := limiter.Allow(ctx, "c1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if ok {
		t.Error("frame beyond limit should be rejected")
	}

	limiter.Forget(ctx, "c1")
	if ok, _ := limiter.Allow(ctx, "c1"); !ok {
		t.Error("Forget() should clear the window")
	}
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	limiter := setupRedisLimiter(t, 1, 200*time.Millisecond)
	ctx := context.Background()
	defer limiter.Forget(ctx, "c1")

	if ok, _ := limiter.Allow(ctx, "c1"); !ok {
		t.Fatal("first frame should be allowed")
	}
	if ok, _ := limiter.Allow(ctx, "c1"); ok {
		t.Fatal("second frame should be rejected inside the window")
	}
	time.Sleep(250 * time.Millisecond)
	if ok, _ := limiter.Allow(ctx, "c1"); !ok {
		t.Error("frame after the window should be allowed")
	}
}
