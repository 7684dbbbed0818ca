package s0_data

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/database"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLiteRepository(db)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekdaySource returns one bar per weekday in [from, to]
type weekdaySource struct {
	mu    sync.Mutex
	calls int
	fail  bool

	listedOn time.Time // 이 날짜 이전 이력 없음
}

func (s *weekdaySource) FetchSeries(_ context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.fail {
		return nil, errors.New("provider down")
	}

	series := &contracts.PriceSeries{Symbol: symbol}
	for d := truncateDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday || d.Before(s.listedOn) {
			continue
		}
		c := 10 + float64(len(series.Bars))
		series.Bars = append(series.Bars, contracts.Bar{
			Date: d, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		})
	}
	return series, nil
}

func (s *weekdaySource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
