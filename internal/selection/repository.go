package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/vnquant/internal/contracts"
)

// ErrNoReport is returned when no stored scan report matches
var ErrNoReport = errors.New("no scan report found")

// Repository persists scan reports in PostgreSQL
// ⭐ SSOT: 스캔 리포트 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the scan history table
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS selection;
		CREATE TABLE IF NOT EXISTS selection.scan_reports (
			run_id          UUID PRIMARY KEY,
			investment_type TEXT NOT NULL DEFAULT '',
			started_at      TIMESTAMPTZ NOT NULL,
			duration_ms     BIGINT NOT NULL,
			total           INT NOT NULL,
			succeeded       INT NOT NULL,
			failed          INT NOT NULL,
			skipped         INT NOT NULL,
			results         JSONB NOT NULL,
			failures        JSONB NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_scan_reports_type_started
			ON selection.scan_reports (investment_type, started_at DESC);
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create scan report schema: %w", err)
	}
	return nil
}

// SaveReport stores a scan report. Per-result evaluations are dropped to keep rows small.
func (r *Repository) SaveReport(ctx context.Context, report *contracts.ScanReport) error {
	slim := make([]contracts.ScanResult, len(report.Results))
	for i, res := range report.Results {
		res.Evaluation = nil
		slim[i] = res
	}

	resultsJSON, err := json.Marshal(slim)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	failures := report.Failures
	if failures == nil {
		failures = map[string]string{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}

	query := `
		INSERT INTO selection.scan_reports (
			run_id, investment_type, started_at, duration_ms,
			total, succeeded, failed, skipped, results, failures
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO NOTHING
	`

	_, err = r.pool.Exec(ctx, query,
		report.RunID, string(report.Investment), report.StartedAt, report.Duration.Milliseconds(),
		report.Total, report.Succeeded, report.Failed, report.Skipped, resultsJSON, failuresJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	return nil
}

// LatestReport returns the most recent report for an investment type ("" for ad-hoc scans)
func (r *Repository) LatestReport(ctx context.Context, investment contracts.InvestmentType) (*contracts.ScanReport, error) {
	query := `
		SELECT run_id::text, started_at, duration_ms, total, succeeded, failed, skipped, results, failures
		FROM selection.scan_reports
		WHERE investment_type = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	var (
		report       contracts.ScanReport
		durationMS   int64
		resultsJSON  []byte
		failuresJSON []byte
	)
	err := r.pool.QueryRow(ctx, query, string(investment)).Scan(
		&report.RunID, &report.StartedAt, &durationMS,
		&report.Total, &report.Succeeded, &report.Failed, &report.Skipped,
		&resultsJSON, &failuresJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w for %q", ErrNoReport, investment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	if err := json.Unmarshal(resultsJSON, &report.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	if err := json.Unmarshal(failuresJSON, &report.Failures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failures: %w", err)
	}
	report.Investment = investment
	report.Duration = time.Duration(durationMS) * time.Millisecond

	return &report, nil
}
