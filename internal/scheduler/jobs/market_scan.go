package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
	"github.com/wonny/vnquant/pkg/redis"
)

// MarketScanner scans the universe for one horizon (selection.Scanner)
type MarketScanner interface {
	ScanMarket(ctx context.Context, investment contracts.InvestmentType, topN int, progress contracts.ProgressFunc) (*contracts.ScanReport, error)
}

// ReportSaver persists scan reports (selection.Repository)
type ReportSaver interface {
	SaveReport(ctx context.Context, report *contracts.ScanReport) error
}

// investmentTypes 스캔 순서
var investmentTypes = []contracts.InvestmentType{
	contracts.ShortTerm,
	contracts.MediumTerm,
	contracts.LongTerm,
}

// MarketScanJob scans every investment horizon and caches the reports
// ⭐ SSOT: 시장 스캔 스케줄은 이 Job에서만
type MarketScanJob struct {
	schedule string
	scanner  MarketScanner
	cache    *redis.Cache
	saver    ReportSaver
	topN     int
	logger   *logger.Logger
}

// NewMarketScanJob creates a new market scan job. saver may be nil.
func NewMarketScanJob(schedule string, scanner MarketScanner, cache *redis.Cache, saver ReportSaver, topN int, log *logger.Logger) *MarketScanJob {
	return &MarketScanJob{
		schedule: schedule,
		scanner:  scanner,
		cache:    cache,
		saver:    saver,
		topN:     topN,
		logger:   log,
	}
}

// Name returns the job name
func (j *MarketScanJob) Name() string {
	return "market_scan"
}

// Schedule returns the cron schedule (weekdays 16:00 by default)
func (j *MarketScanJob) Schedule() string {
	return j.schedule
}

// Run scans each horizon in turn. A failed horizon does not stop the others;
// the job fails only when every horizon failed.
func (j *MarketScanJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled market scan")

	var errs []error
	for _, inv := range investmentTypes {
		if err := j.scanOne(ctx, inv); err != nil {
			j.logger.WithError(err).WithField("type", inv).Error("Market scan failed")
			errs = append(errs, fmt.Errorf("%s: %w", inv, err))
		}
	}

	if len(errs) == len(investmentTypes) {
		return errors.Join(errs...)
	}

	j.logger.WithFields(map[string]interface{}{
		"scanned": len(investmentTypes) - len(errs),
		"failed":  len(errs),
	}).Info("Scheduled market scan completed")
	return nil
}

func (j *MarketScanJob) scanOne(ctx context.Context, inv contracts.InvestmentType) error {
	report, err := j.scanner.ScanMarket(ctx, inv, j.topN, nil)
	if err != nil {
		return err
	}

	if err := j.cache.Set(ctx, redis.ScanReportKey(string(inv)), report, redis.TTLScanReport); err != nil {
		j.logger.WithError(err).WithField("type", inv).Warn("Failed to cache scan report")
	}
	if j.saver != nil {
		if err := j.saver.SaveReport(ctx, report); err != nil {
			j.logger.WithError(err).WithField("type", inv).Warn("Failed to save scan report")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"type":      inv,
		"results":   len(report.Results),
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	}).Info("Market scan stored")
	return nil
}
