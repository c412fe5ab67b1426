package ratelimit

import (
	"os"
	"strconv"
	"time"
)

// Config holds relay rate limiter configuration.
type Config struct {
	// Limit is the number of relay frames allowed per window per connection
	Limit int

	// Window is the time window for the rate limit
	Window time.Duration

	// RedisAddr selects the Redis sliding-window backend when non-empty
	RedisAddr string

	// RedisPassword is the Redis authentication password (optional)
	RedisPassword string

	// RedisDB is the Redis database number (default: 0)
	RedisDB int

	// KeyPrefix is the prefix for Redis keys (default: "relay:")
	KeyPrefix string
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Limit:     20,
		Window:    time.Second,
		KeyPrefix: "relay:",
	}
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithLimit sets the rate limit.
func WithLimit(limit int, window time.Duration) Option {
	return func(c *Config) {
		c.Limit = limit
		c.Window = window
	}
}

// WithRedisAddr sets the Redis server address.
func WithRedisAddr(addr string) Option {
	return func(c *Config) {
		c.RedisAddr = addr
	}
}

// WithRedisPassword sets the Redis authentication password.
func WithRedisPassword(password string) Option {
	return func(c *Config) {
		c.RedisPassword = password
	}
}

// WithRedisDB sets the Redis database number.
func WithRedisDB(db int) Option {
	return func(c *Config) {
		c.RedisDB = db
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// ConfigFromEnv builds a Config from RELAY_RATE_* and REDIS_* variables.
func ConfigFromEnv(opts ...Option) Config {
	cfg := DefaultConfig()

	if v := os.Getenv("RELAY_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limit = n
		}
	}
	if v := os.Getenv("RELAY_RATE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Window = d
		}
	}
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		}
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
