package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching on top of Client
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(k string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, k)
}

// Get retrieves a cached value. found is false on a miss or when disabled.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

// Set stores a value with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// Predefined TTLs
const (
	TTLEvaluation = 15 * time.Minute // 장중 재계산 주기
	TTLRatios     = 24 * time.Hour   // 재무비율은 하루 1회
	TTLScanReport = 6 * time.Hour
)

// RatiosKey caches a fundamental snapshot per symbol
func RatiosKey(symbol string) string {
	return fmt.Sprintf("ratios:%s", symbol)
}

// EvaluationKey caches an evaluation per symbol and last bar date (YYYY-MM-DD)
func EvaluationKey(symbol, lastDate string, withFundamentals bool) string {
	return fmt.Sprintf("eval:%s:%s:%t", symbol, lastDate, withFundamentals)
}

// ScanReportKey caches the latest scheduled scan per investment type
func ScanReportKey(investmentType string) string {
	return fmt.Sprintf("scan:latest:%s", investmentType)
}
