package s1_universe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/vnquant/internal/contracts"
)

// Repository handles universe snapshot persistence (postgres only)
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the snapshot table
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS data;
		CREATE TABLE IF NOT EXISTS data.universe_snapshots (
			snapshot_date DATE PRIMARY KEY,
			stocks        TEXT[] NOT NULL,
			total_count   INT NOT NULL,
			excluded      JSONB NOT NULL DEFAULT '{}',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create universe schema: %w", err)
	}
	return nil
}

// SaveUniverse saves a universe snapshot, one per day
func (r *Repository) SaveUniverse(ctx context.Context, universe *contracts.Universe) error {
	excludedJSON, err := json.Marshal(universe.Excluded)
	if err != nil {
		return fmt.Errorf("marshal excluded: %w", err)
	}

	query := `
		INSERT INTO data.universe_snapshots (
			snapshot_date, stocks, total_count, excluded, created_at
		) VALUES ($1::date, $2, $3, $4, NOW())
		ON CONFLICT (snapshot_date) DO UPDATE SET
			stocks = EXCLUDED.stocks,
			total_count = EXCLUDED.total_count,
			excluded = EXCLUDED.excluded,
			created_at = NOW()
	`

	_, err = r.db.Exec(ctx, query,
		universe.Date,
		universe.Stocks,
		universe.TotalCount,
		excludedJSON,
	)
	if err != nil {
		return fmt.Errorf("insert universe: %w", err)
	}

	return nil
}

// GetLatestUniverse retrieves the most recent universe snapshot
func (r *Repository) GetLatestUniverse(ctx context.Context) (*contracts.Universe, error) {
	query := `
		SELECT snapshot_date, stocks, total_count, excluded
		FROM data.universe_snapshots
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	universe := &contracts.Universe{
		Excluded: make(map[string]string),
	}

	var excludedJSON []byte
	err := r.db.QueryRow(ctx, query).Scan(
		&universe.Date,
		&universe.Stocks,
		&universe.TotalCount,
		&excludedJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest universe: %w", err)
	}

	if len(excludedJSON) > 0 {
		if err := json.Unmarshal(excludedJSON, &universe.Excluded); err != nil {
			return nil, fmt.Errorf("unmarshal excluded: %w", err)
		}
	}

	return universe, nil
}
