package contracts

import (
	"context"
	"time"
)

// SeriesFetcher returns daily bars for a symbol in [from, to]
// ⭐ SSOT: 외부 가격 데이터 소스 인터페이스
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, symbol string, from, to time.Time) (*PriceSeries, error)
}

// RatiosFetcher returns the latest fundamental snapshot
type RatiosFetcher interface {
	FetchRatios(ctx context.Context, symbol string) (*Ratios, error)
}

// SymbolLister lists tradable symbols with their exchange
type SymbolLister interface {
	ListSymbols(ctx context.Context) ([]StockInfo, error)
}

// SeriesRepository persists daily bars (S0 cache)
// ⭐ SSOT: S0 가격 캐시 저장소 인터페이스
type SeriesRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveBars(ctx context.Context, symbol string, bars []Bar) (int, error)
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
	LastDate(ctx context.Context, symbol string) (time.Time, bool, error)
	SaveInfo(ctx context.Context, info StockInfo) error
	Symbols(ctx context.Context) ([]string, error)
	LatestBars(ctx context.Context) ([]OverviewRow, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (*CacheStats, error)
}

// OverviewRow is the latest cached bar of a symbol joined with its listing info
type OverviewRow struct {
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name"`
	Exchange string    `json:"exchange"`
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
}

// CacheStats summarizes the bar cache
type CacheStats struct {
	Backend      string    `json:"backend"`
	TotalSymbols int       `json:"total_symbols"`
	TotalRecords int64     `json:"total_records"`
	FirstDate    time.Time `json:"first_date"`
	LastDate     time.Time `json:"last_date"`
	SizeMB       float64   `json:"db_size_mb"`
}

// ProgressFunc receives monotonic scan progress
type ProgressFunc func(done, total int, message string)
