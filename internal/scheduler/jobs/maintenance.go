package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/vnquant/pkg/logger"
)

// Cleaner drops bars past retention (s0_data.DataCache)
type Cleaner interface {
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// CacheCleanupJob removes bars older than the retention window
type CacheCleanupJob struct {
	schedule      string
	cache         Cleaner
	retentionDays int
	logger        *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job. retentionDays <= 0 uses the
// cache's configured retention.
func NewCacheCleanupJob(schedule string, cache Cleaner, retentionDays int, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		schedule:      schedule,
		cache:         cache,
		retentionDays: retentionDays,
		logger:        log,
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule (Sunday 03:00 by default)
func (j *CacheCleanupJob) Schedule() string {
	return j.schedule
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache cleanup")

	count, err := j.cache.Cleanup(ctx, j.retentionDays)
	if err != nil {
		return fmt.Errorf("cache cleanup: %w", err)
	}

	if count > 0 {
		j.logger.WithField("removed", count).Info("Cache cleanup completed")
	}

	return nil
}
