package s0_data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/database"
)

const dateLayout = "2006-01-02"

// SQLiteRepository implements contracts.SeriesRepository on a local sqlite file
// ⭐ SSOT: 기본 가격 캐시 (sqlite)
type SQLiteRepository struct {
	db *database.SQLite
}

// NewSQLiteRepository creates a new sqlite-backed repository
func NewSQLiteRepository(db *database.SQLite) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// EnsureSchema creates the cache tables
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_price (
			symbol TEXT NOT NULL,
			date   TEXT NOT NULL,
			open   REAL NOT NULL,
			high   REAL NOT NULL,
			low    REAL NOT NULL,
			close  REAL NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_price_date ON stock_price(date)`,
		`CREATE TABLE IF NOT EXISTS stock_info (
			symbol     TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			exchange   TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create sqlite schema: %w", err)
		}
	}
	return nil
}

// SaveBars upserts bars in one transaction and returns the number written
func (r *SQLiteRepository) SaveBars(ctx context.Context, symbol string, bars []contracts.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stock_price (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, b.Date.Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return 0, fmt.Errorf("insert bar %s %s: %w", symbol, b.Date.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(bars), nil
}

// GetBars returns bars in [from, to] ordered by date
func (r *SQLiteRepository) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM stock_price
		WHERE symbol = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC
	`, symbol, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var (
			b    contracts.Bar
			date string
		)
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		if b.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LastDate returns the most recent cached date of the symbol
func (r *SQLiteRepository) LastDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	var date sql.NullString
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT MAX(date) FROM stock_price WHERE symbol = ?`, symbol).Scan(&date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last date: %w", err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(dateLayout, date.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse date %q: %w", date.String, err)
	}
	return t, true, nil
}

// SaveInfo upserts listing metadata
func (r *SQLiteRepository) SaveInfo(ctx context.Context, info contracts.StockInfo) error {
	updated := info.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.db.DB.ExecContext(ctx, `
		INSERT OR REPLACE INTO stock_info (symbol, name, exchange, updated_at)
		VALUES (?, ?, ?, ?)
	`, info.Symbol, info.Name, info.Exchange, updated.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save stock info %s: %w", info.Symbol, err)
	}
	return nil
}

// Symbols lists every symbol with at least one cached bar
func (r *SQLiteRepository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.DB.QueryContext(ctx, `SELECT DISTINCT symbol FROM stock_price ORDER BY symbol`)
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

// LatestBars returns the latest bar of each symbol joined with its listing info
func (r *SQLiteRepository) LatestBars(ctx context.Context) ([]contracts.OverviewRow, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT p.symbol, COALESCE(i.name, ''), COALESCE(i.exchange, ''), p.date, p.close, p.volume
		FROM stock_price p
		JOIN (SELECT symbol, MAX(date) AS max_date FROM stock_price GROUP BY symbol) m
		  ON p.symbol = m.symbol AND p.date = m.max_date
		LEFT JOIN stock_info i ON p.symbol = i.symbol
		ORDER BY p.symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("query latest bars: %w", err)
	}
	defer rows.Close()

	var out []contracts.OverviewRow
	for rows.Next() {
		var (
			row  contracts.OverviewRow
			date string
		)
		if err := rows.Scan(&row.Symbol, &row.Name, &row.Exchange, &date, &row.Close, &row.Volume); err != nil {
			return nil, fmt.Errorf("scan overview row: %w", err)
		}
		if row.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteBefore removes bars older than cutoff
func (r *SQLiteRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.DB.ExecContext(ctx, `DELETE FROM stock_price WHERE date < ?`, cutoff.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("delete old bars: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Stats summarizes the cache contents
func (r *SQLiteRepository) Stats(ctx context.Context) (*contracts.CacheStats, error) {
	stats := &contracts.CacheStats{Backend: "sqlite"}

	var first, last sql.NullString
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT symbol), COUNT(*), MIN(date), MAX(date) FROM stock_price
	`).Scan(&stats.TotalSymbols, &stats.TotalRecords, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("query cache stats: %w", err)
	}
	if first.Valid {
		stats.FirstDate, _ = time.Parse(dateLayout, first.String)
	}
	if last.Valid {
		stats.LastDate, _ = time.Parse(dateLayout, last.String)
	}
	stats.SizeMB = r.db.SizeMB()

	return stats, nil
}
