package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements sliding window rate limiting shared across processes
// ⭐ SSOT: 분산 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // provider id (vci, yahoo, cafef)
	Limit  int           // max requests per window
	Window time.Duration
}

var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, now .. '-' .. count)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end
	return {0, 0}
`)

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// Allow checks if a request is allowed under the rate limit.
// Returns (allowed, remaining, error); a disabled client allows everything.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()

	result, err := slidingWindowScript.Run(ctx, r.client.Redis(), []string{key},
		now,
		now-cfg.Window.Milliseconds(),
		cfg.Limit,
		cfg.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	allowed := result[0].(int64) == 1
	remaining := int(result[1].(int64))
	return allowed, remaining, nil
}

// Wait blocks until a request is allowed or context is cancelled
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Predefined rate limit configs for market data providers
var (
	// VCI chart API: 초당 5회 (보수적)
	VCIRateLimit = RateLimitConfig{Key: "vci", Limit: 5, Window: time.Second}

	// Yahoo chart API: 분당 60회
	YahooRateLimit = RateLimitConfig{Key: "yahoo", Limit: 60, Window: time.Minute}

	// CafeF HTML: 초당 2회
	CafeFRateLimit = RateLimitConfig{Key: "cafef", Limit: 2, Window: time.Second}
)
