package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite wraps a database/sql handle on a local sqlite file
// ⭐ SSOT: sqlite 파일 연결은 여기서만 생성
type SQLite struct {
	DB   *sql.DB
	Path string
}

// OpenSQLite opens (and creates if missing) the sqlite file at path.
// ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache dir: %w", err)
			}
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite는 단일 writer
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLite{DB: db, Path: path}, nil
}

// Close closes the sqlite handle
func (s *SQLite) Close() error {
	return s.DB.Close()
}

// SizeMB returns the on-disk size of the database file
func (s *SQLite) SizeMB() float64 {
	info, err := os.Stat(s.Path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / (1024 * 1024)
}

// HealthCheck pings the sqlite handle
func (s *SQLite) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{Backend: "sqlite", Timestamp: time.Now()}

	start := time.Now()
	if err := s.DB.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	stats := s.DB.Stats()
	status.OpenConns = stats.OpenConnections
	status.InUse = stats.InUse
	status.Idle = stats.Idle
	status.Healthy = true
	return status, nil
}
