package s0_data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

// CacheConfig holds the bar cache policy
type CacheConfig struct {
	InitialDays   int // 최초 적재 기간 (일)
	RetentionDays int // 보관 기간 (일)
}

// DefaultCacheConfig returns two years on first load and three years of retention
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		InitialDays:   730,
		RetentionDays: 1095,
	}
}

// DataCache is a read-through cache of daily bars in front of a provider chain
// ⭐ SSOT: S0 가격 캐시 진입점
type DataCache struct {
	repo   contracts.SeriesRepository
	source contracts.SeriesFetcher
	config CacheConfig
	logger *logger.Logger
	now    func() time.Time

	// backfilled: 종목별 마지막으로 소급 조회한 시작일 (상장 이후 이력만 있는 종목 반복 조회 방지)
	mu         sync.Mutex
	backfilled map[string]time.Time
}

// NewDataCache creates a new cache
func NewDataCache(repo contracts.SeriesRepository, source contracts.SeriesFetcher, cfg CacheConfig, log *logger.Logger) *DataCache {
	if cfg.InitialDays <= 0 {
		cfg.InitialDays = DefaultCacheConfig().InitialDays
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultCacheConfig().RetentionDays
	}
	return &DataCache{
		repo:   repo,
		source: source,
		config: cfg,
		logger:     log.Module("s0_cache"),
		now:        time.Now,
		backfilled: make(map[string]time.Time),
	}
}

// WithClock overrides the clock
func (c *DataCache) WithClock(now func() time.Time) *DataCache {
	c.now = now
	return c
}

// FetchSeries serves bars from the cache. An empty cache, or one whose history starts
// more than a week after from, is filled from the source first. A successful backfill
// is remembered so a symbol listed after from is not refetched on every call.
func (c *DataCache) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	bars, err := c.repo.GetBars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", symbol, err)
	}

	gap := len(bars) > 0 && bars[0].Date.After(from.AddDate(0, 0, 7)) && !c.backfilledSince(symbol, from)
	if len(bars) == 0 || gap {
		c.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"cached": len(bars),
			"from":   from.Format(dateLayout),
		}).Debug("Cache miss, fetching from source")

		if _, err := c.fill(ctx, symbol, from, to); err != nil {
			if len(bars) > 0 {
				// 부분 캐시라도 반환
				c.logger.WithError(err).WithField("symbol", symbol).Warn("Backfill failed, serving partial cache")
				return &contracts.PriceSeries{Symbol: symbol, Bars: bars}, nil
			}
			return nil, err
		}
		c.markBackfilled(symbol, from)
		if bars, err = c.repo.GetBars(ctx, symbol, from, to); err != nil {
			return nil, fmt.Errorf("read cache %s: %w", symbol, err)
		}
	}

	return &contracts.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

func (c *DataCache) backfilledSince(symbol string, from time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	start, ok := c.backfilled[symbol]
	return ok && !start.After(from)
}

func (c *DataCache) markBackfilled(symbol string, from time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if start, ok := c.backfilled[symbol]; !ok || from.Before(start) {
		c.backfilled[symbol] = from
	}
}

// Update fetches bars after the last cached date, or InitialDays of history on first load
// (or when force is set). It returns the number of bars written.
func (c *DataCache) Update(ctx context.Context, symbol string, force bool) (int, error) {
	today := truncateDay(c.now())

	start := today.AddDate(0, 0, -c.config.InitialDays)
	if !force {
		last, ok, err := c.repo.LastDate(ctx, symbol)
		if err != nil {
			return 0, err
		}
		if ok {
			start = last.AddDate(0, 0, 1)
		}
	}

	if start.After(today) {
		c.logger.WithField("symbol", symbol).Debug("Cache up to date")
		return 0, nil
	}

	return c.fill(ctx, symbol, start, today)
}

func (c *DataCache) fill(ctx context.Context, symbol string, from, to time.Time) (int, error) {
	series, err := c.source.FetchSeries(ctx, symbol, from, to)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if series.Len() == 0 {
		return 0, nil
	}
	if err := series.Validate(); err != nil {
		return 0, err
	}

	n, err := c.repo.SaveBars(ctx, symbol, series.Bars)
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  n,
		"from":   series.Bars[0].Date.Format(dateLayout),
		"to":     series.Bars[len(series.Bars)-1].Date.Format(dateLayout),
	}).Debug("Cached bars")
	return n, nil
}

// SaveListing stores listing metadata for each stock
func (c *DataCache) SaveListing(ctx context.Context, stocks []contracts.StockInfo) error {
	for _, s := range stocks {
		if err := c.repo.SaveInfo(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Symbols lists cached symbols
func (c *DataCache) Symbols(ctx context.Context) ([]string, error) {
	return c.repo.Symbols(ctx)
}

// MarketOverview returns the latest cached bar of every symbol
func (c *DataCache) MarketOverview(ctx context.Context) ([]contracts.OverviewRow, error) {
	return c.repo.LatestBars(ctx)
}

// Cleanup removes bars older than retentionDays (the configured retention when <= 0)
func (c *DataCache) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = c.config.RetentionDays
	}
	cutoff := truncateDay(c.now()).AddDate(0, 0, -retentionDays)

	n, err := c.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	c.logger.WithFields(map[string]interface{}{
		"cutoff":  cutoff.Format(dateLayout),
		"deleted": n,
	}).Info("Cache cleanup completed")
	return n, nil
}

// Stats returns cache statistics
func (c *DataCache) Stats(ctx context.Context) (*contracts.CacheStats, error) {
	return c.repo.Stats(ctx)
}

// GetBars reads cached bars only, never touching the source
func (c *DataCache) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	return c.repo.GetBars(ctx, symbol, from, to)
}

// LastDate exposes the last cached date of a symbol
func (c *DataCache) LastDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return c.repo.LastDate(ctx, symbol)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
