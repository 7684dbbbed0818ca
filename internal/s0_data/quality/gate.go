package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
)

// BarReader reads cached bars (contracts.SeriesRepository satisfies it)
type BarReader interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error)
}

// Config holds quality gate thresholds
type Config struct {
	MaxStaleDays int     `yaml:"max_stale_days"` // 5 (주말 포함)
	HistoryDays  int     `yaml:"history_days"`   // 365
	MinBars      int     `yaml:"min_bars"`       // 200
	MinScore     float64 `yaml:"min_score"`      // 0.8
}

// DefaultConfig returns the thresholds used by the scheduler
func DefaultConfig() Config {
	return Config{
		MaxStaleDays: 5,
		HistoryDays:  365,
		MinBars:      200,
		MinScore:     0.8,
	}
}

// Snapshot is the cache quality for one as-of date
type Snapshot struct {
	Date         time.Time          `json:"date"`
	TotalStocks  int                `json:"total_stocks"`
	ValidStocks  int                `json:"valid_stocks"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
	Stale        []string           `json:"stale,omitempty"`
	Missing      []string           `json:"missing,omitempty"`
}

// QualityGate validates cache freshness and depth before a scan
type QualityGate struct {
	reader BarReader
	config Config
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(reader BarReader, config Config) *QualityGate {
	return &QualityGate{
		reader: reader,
		config: config,
	}
}

// Check validates cache quality for symbols as of date
// ⭐ SSOT: S0 → S1 품질 검증
func (g *QualityGate) Check(ctx context.Context, symbols []string, date time.Time) (*Snapshot, error) {
	snapshot := &Snapshot{
		Date:        date,
		TotalStocks: len(symbols),
		Coverage:    make(map[string]float64),
	}
	if len(symbols) == 0 {
		return snapshot, nil
	}

	staleBefore := date.AddDate(0, 0, -g.config.MaxStaleDays)
	from := date.AddDate(0, 0, -g.config.HistoryDays)

	var fresh, traded, deep int
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := g.reader.GetBars(ctx, symbol, from, date)
		if err != nil {
			return nil, fmt.Errorf("read bars %s: %w", symbol, err)
		}
		if len(bars) == 0 {
			snapshot.Missing = append(snapshot.Missing, symbol)
			continue
		}

		last := bars[len(bars)-1]
		isFresh := !last.Date.Before(staleBefore)
		if isFresh {
			fresh++
		} else {
			snapshot.Stale = append(snapshot.Stale, symbol)
		}
		if last.Volume > 0 {
			traded++
		}
		if len(bars) >= g.config.MinBars {
			deep++
		}
		if isFresh && last.Volume > 0 && len(bars) >= g.config.MinBars {
			snapshot.ValidStocks++
		}
	}

	total := float64(len(symbols))
	snapshot.Coverage["price"] = float64(fresh) / total
	snapshot.Coverage["volume"] = float64(traded) / total
	snapshot.Coverage["history"] = float64(deep) / total

	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = snapshot.QualityScore >= g.config.MinScore

	return snapshot, nil
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		"price":   0.50, // 최신 가격 필수
		"volume":  0.20,
		"history": 0.30, // 지표 계산용 이력
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}
