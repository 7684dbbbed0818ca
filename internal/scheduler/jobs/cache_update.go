package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/s0_data/collector"
	"github.com/wonny/vnquant/internal/s0_data/quality"
	"github.com/wonny/vnquant/pkg/logger"
)

// UniverseBuilder builds the universe to refresh (s1_universe.Builder)
type UniverseBuilder interface {
	Build(ctx context.Context) (*contracts.Universe, error)
}

// UniverseStore persists universe snapshots (s1_universe.Repository)
type UniverseStore interface {
	SaveUniverse(ctx context.Context, universe *contracts.Universe) error
}

// BulkUpdater refreshes many symbols (collector.Collector)
type BulkUpdater interface {
	UpdateAll(ctx context.Context, symbols []string, cfg collector.Config, progress contracts.ProgressFunc) *collector.Summary
}

// QualityChecker checks the refreshed cache (quality.QualityGate)
type QualityChecker interface {
	Check(ctx context.Context, symbols []string, date time.Time) (*quality.Snapshot, error)
}

// CacheUpdateJob refreshes the bar cache for the universe after the close
// ⭐ SSOT: 캐시 갱신 스케줄은 이 Job에서만
type CacheUpdateJob struct {
	schedule  string
	builder   UniverseBuilder
	store     UniverseStore
	collector BulkUpdater
	gate      QualityChecker
	config    collector.Config
	logger    *logger.Logger
}

// NewCacheUpdateJob creates a new cache update job. store and gate may be nil.
func NewCacheUpdateJob(
	schedule string,
	builder UniverseBuilder,
	store UniverseStore,
	col BulkUpdater,
	gate QualityChecker,
	cfg collector.Config,
	log *logger.Logger,
) *CacheUpdateJob {
	return &CacheUpdateJob{
		schedule:  schedule,
		builder:   builder,
		store:     store,
		collector: col,
		gate:      gate,
		config:    cfg,
		logger:    log,
	}
}

// Name returns the job name
func (j *CacheUpdateJob) Name() string {
	return "cache_update"
}

// Schedule returns the cron schedule (weekdays 15:30 by default)
func (j *CacheUpdateJob) Schedule() string {
	return j.schedule
}

// Run builds the universe, refreshes it incrementally and checks quality.
// It fails only when no symbol could be refreshed.
func (j *CacheUpdateJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled cache update")

	// 1. Build universe
	universe, err := j.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}
	if j.store != nil {
		if err := j.store.SaveUniverse(ctx, universe); err != nil {
			j.logger.WithError(err).Warn("Failed to save universe snapshot")
		}
	}

	// 2. Refresh bars
	summary := j.collector.UpdateAll(ctx, universe.Stocks, j.config, nil)
	if summary.Total > 0 && summary.Success == 0 {
		return fmt.Errorf("cache update: all %d symbols failed", summary.Total)
	}

	// 3. Quality gate (경고만)
	if j.gate != nil {
		snapshot, err := j.gate.Check(ctx, universe.Stocks, time.Now())
		if err != nil {
			j.logger.WithError(err).Warn("Quality check failed")
		} else if !snapshot.Passed {
			j.logger.WithFields(map[string]interface{}{
				"quality_score": snapshot.QualityScore,
				"valid_stocks":  snapshot.ValidStocks,
				"total_stocks":  snapshot.TotalStocks,
			}).Warn("Cache quality below threshold")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"universe": len(universe.Stocks),
		"success":  summary.Success,
		"failed":   summary.Failed,
		"bars":     summary.Bars,
	}).Info("Scheduled cache update completed")

	return nil
}
