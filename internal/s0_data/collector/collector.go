package collector

import (
	"context"
	"sync"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

// Updater refreshes one symbol in the bar cache (s0_data.DataCache)
type Updater interface {
	Update(ctx context.Context, symbol string, force bool) (int, error)
}

// Collector orchestrates bulk cache updates
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	cache  Updater
	logger *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int  // Number of concurrent workers
	Force   bool // 전체 재적재
}

// DefaultConfig returns 4 workers, incremental mode
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// NewCollector creates a new Collector instance
func NewCollector(cache Updater, log *logger.Logger) *Collector {
	return &Collector{
		cache:  cache,
		logger: log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of one symbol update
type FetchResult struct {
	Symbol string
	Bars   int
	Error  error
}

// Summary aggregates a bulk update
type Summary struct {
	Total   int           `json:"total"`
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
	Bars    int           `json:"bars"`
	Results []FetchResult `json:"-"`
}

// UpdateAll refreshes every symbol with a worker pool. Progress is reported once per
// finished symbol from a single goroutine, so done is strictly increasing.
func (c *Collector) UpdateAll(ctx context.Context, symbols []string, cfg Config, progress contracts.ProgressFunc) *Summary {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_count": len(symbols),
		"workers":     cfg.Workers,
		"force":       cfg.Force,
	}).Info("Starting cache update")

	resultCh := make(chan FetchResult, len(symbols))
	stockCh := make(chan string, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.updateWorker(ctx, workerID, stockCh, resultCh, cfg.Force)
		}(i)
	}

	for _, s := range symbols {
		stockCh <- s
	}
	close(stockCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	summary := &Summary{Total: len(symbols), Results: make([]FetchResult, 0, len(symbols))}
	for result := range resultCh {
		summary.Results = append(summary.Results, result)
		if result.Error != nil {
			summary.Failed++
		} else {
			summary.Success++
			summary.Bars += result.Bars
		}
		if progress != nil {
			progress(len(summary.Results), summary.Total, result.Symbol)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": summary.Success,
		"failed":  summary.Failed,
		"bars":    summary.Bars,
		"total":   summary.Total,
	}).Info("Cache update completed")

	return summary
}

// updateWorker processes symbols until the channel closes
func (c *Collector) updateWorker(ctx context.Context, workerID int, stockCh <-chan string, resultCh chan<- FetchResult, force bool) {
	for symbol := range stockCh {
		select {
		case <-ctx.Done():
			resultCh <- FetchResult{Symbol: symbol, Error: ctx.Err()}
			continue
		default:
		}

		n, err := c.cache.Update(ctx, symbol, force)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to update symbol")
			resultCh <- FetchResult{Symbol: symbol, Error: err}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"symbol": symbol,
			"count":  n,
		}).Debug("Updated symbol")

		resultCh <- FetchResult{Symbol: symbol, Bars: n}
	}
}
