package s0_data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/vnquant/internal/contracts"
)

// PriceRepository implements contracts.SeriesRepository on PostgreSQL
// ⭐ SSOT: 가격 데이터 저장소 (postgres)
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// EnsureSchema creates the data schema tables
func (r *PriceRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS data;

		CREATE TABLE IF NOT EXISTS data.stocks (
			symbol     VARCHAR(16) PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			exchange   VARCHAR(16) NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS data.daily_prices (
			symbol      VARCHAR(16) NOT NULL,
			trade_date  DATE NOT NULL,
			open_price  DOUBLE PRECISION NOT NULL,
			high_price  DOUBLE PRECISION NOT NULL,
			low_price   DOUBLE PRECISION NOT NULL,
			close_price DOUBLE PRECISION NOT NULL,
			volume      BIGINT NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (symbol, trade_date)
		);

		CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON data.daily_prices(trade_date);
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create data schema: %w", err)
	}
	return nil
}

// SaveBars upserts bars with a single batch
func (r *PriceRepository) SaveBars(ctx context.Context, symbol string, bars []contracts.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO data.daily_prices (
			symbol, trade_date, open_price, high_price, low_price, close_price, volume, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, b := range bars {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("insert bar %s %s: %w", symbol, b.Date.Format("2006-01-02"), err)
		}
	}
	return len(bars), nil
}

// GetBars retrieves bars for a symbol within the date range
func (r *PriceRepository) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM data.daily_prices
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LastDate returns the most recent trade date of the symbol
func (r *PriceRepository) LastDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	var last *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(trade_date) FROM data.daily_prices WHERE symbol = $1`, symbol).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last date: %w", err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return last.UTC(), true, nil
}

// SaveInfo upserts listing metadata
func (r *PriceRepository) SaveInfo(ctx context.Context, info contracts.StockInfo) error {
	query := `
		INSERT INTO data.stocks (symbol, name, exchange, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			exchange = EXCLUDED.exchange,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, info.Symbol, info.Name, info.Exchange); err != nil {
		return fmt.Errorf("save stock info %s: %w", info.Symbol, err)
	}
	return nil
}

// Symbols lists every symbol with cached bars
func (r *PriceRepository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT symbol FROM data.daily_prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// LatestBars returns the latest bar per symbol with listing info
func (r *PriceRepository) LatestBars(ctx context.Context) ([]contracts.OverviewRow, error) {
	query := `
		SELECT DISTINCT ON (dp.symbol)
			dp.symbol,
			COALESCE(s.name, '') AS name,
			COALESCE(s.exchange, '') AS exchange,
			dp.trade_date,
			dp.close_price,
			dp.volume
		FROM data.daily_prices dp
		LEFT JOIN data.stocks s ON dp.symbol = s.symbol
		ORDER BY dp.symbol, dp.trade_date DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest bars: %w", err)
	}
	defer rows.Close()

	var out []contracts.OverviewRow
	for rows.Next() {
		var row contracts.OverviewRow
		if err := rows.Scan(&row.Symbol, &row.Name, &row.Exchange, &row.Date, &row.Close, &row.Volume); err != nil {
			return nil, fmt.Errorf("scan overview row: %w", err)
		}
		row.Date = row.Date.UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteBefore removes bars older than cutoff
func (r *PriceRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM data.daily_prices WHERE trade_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old bars: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats summarizes the cache contents
func (r *PriceRepository) Stats(ctx context.Context) (*contracts.CacheStats, error) {
	stats := &contracts.CacheStats{Backend: "postgres"}

	var first, last *time.Time
	var sizeBytes int64
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(DISTINCT symbol),
			COUNT(*),
			MIN(trade_date),
			MAX(trade_date),
			pg_total_relation_size('data.daily_prices')
		FROM data.daily_prices
	`).Scan(&stats.TotalSymbols, &stats.TotalRecords, &first, &last, &sizeBytes)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("query cache stats: %w", err)
	}
	if first != nil {
		stats.FirstDate = first.UTC()
	}
	if last != nil {
		stats.LastDate = last.UTC()
	}
	stats.SizeMB = float64(sizeBytes) / (1024 * 1024)

	return stats, nil
}
