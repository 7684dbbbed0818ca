package s0_data

import (
	"context"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
	"github.com/wonny/vnquant/pkg/redis"
)

// RatiosCache is a Redis read-through cache in front of a ratios source.
// With Redis disabled every call goes to the source.
type RatiosCache struct {
	source contracts.RatiosFetcher
	cache  *redis.Cache
	logger *logger.Logger
}

// NewRatiosCache wraps source with cache
func NewRatiosCache(source contracts.RatiosFetcher, cache *redis.Cache, log *logger.Logger) *RatiosCache {
	return &RatiosCache{source: source, cache: cache, logger: log.Module("ratios_cache")}
}

// FetchRatios returns the cached snapshot or fetches and stores a fresh one
func (c *RatiosCache) FetchRatios(ctx context.Context, symbol string) (*contracts.Ratios, error) {
	key := redis.RatiosKey(symbol)

	var cached contracts.Ratios
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Ratios cache read failed")
	}
	if found {
		return &cached, nil
	}

	ratios, err := c.source.FetchRatios(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, ratios, redis.TTLRatios); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Ratios cache write failed")
	}
	return ratios, nil
}
