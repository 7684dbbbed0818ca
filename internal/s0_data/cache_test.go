package s0_data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

func newTestCache(t *testing.T, src *weekdaySource, now *time.Time) *DataCache {
	t.Helper()
	cfg := CacheConfig{InitialDays: 30, RetentionDays: 365}
	return NewDataCache(newSQLiteRepo(t), src, cfg, logger.Nop()).
		WithClock(func() time.Time { return *now })
}

func TestDataCache_Update(t *testing.T) {
	src := &weekdaySource{}
	now := time.Date(2024, 6, 14, 17, 0, 0, 0, time.UTC) // 금요일
	cache := newTestCache(t, src, &now)
	ctx := context.Background()

	// 최초 적재: 2024-05-15 ~ 2024-06-14 평일
	n, err := cache.Update(ctx, "VNM", false)
	require.NoError(t, err)
	assert.Equal(t, 23, n)

	// 이미 최신
	n, err = cache.Update(ctx, "VNM", false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, src.Calls())

	// 증분: 06-15 ~ 06-18
	now = time.Date(2024, 6, 18, 9, 0, 0, 0, time.UTC)
	n, err = cache.Update(ctx, "VNM", false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	last, ok, err := cache.LastDate(ctx, "VNM")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, date(2024, 6, 18), last)

	// 강제 재적재
	n, err = cache.Update(ctx, "VNM", true)
	require.NoError(t, err)
	assert.Equal(t, 22, n)
}

func TestDataCache_UpdateFailure(t *testing.T) {
	src := &weekdaySource{fail: true}
	now := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)

	_, err := newTestCache(t, src, &now).Update(context.Background(), "VNM", false)
	assert.Error(t, err)
}

func TestDataCache_FetchSeriesReadThrough(t *testing.T) {
	src := &weekdaySource{}
	now := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	cache := newTestCache(t, src, &now)
	ctx := context.Background()

	var _ contracts.SeriesFetcher = cache

	series, err := cache.FetchSeries(ctx, "FPT", date(2024, 6, 3), date(2024, 6, 14))
	require.NoError(t, err)
	assert.Equal(t, 10, series.Len())
	assert.Equal(t, 1, src.Calls())
	assert.NoError(t, series.Validate())

	series, err = cache.FetchSeries(ctx, "FPT", date(2024, 6, 5), date(2024, 6, 14))
	require.NoError(t, err)
	assert.Equal(t, 8, series.Len())
	assert.Equal(t, 1, src.Calls(), "served from cache")
}

func TestDataCache_FetchSeriesPartialOnFailure(t *testing.T) {
	src := &weekdaySource{}
	now := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	cache := newTestCache(t, src, &now)
	ctx := context.Background()

	_, err := cache.FetchSeries(ctx, "HPG", date(2024, 6, 10), date(2024, 6, 14))
	require.NoError(t, err)

	// 더 긴 기간 요청 시 backfill 실패하면 캐시된 부분만 반환
	src.fail = true
	series, err := cache.FetchSeries(ctx, "HPG", date(2024, 5, 1), date(2024, 6, 14))
	require.NoError(t, err)
	assert.Equal(t, 5, series.Len())

	_, err = cache.FetchSeries(ctx, "MWG", date(2024, 5, 1), date(2024, 6, 14))
	assert.Error(t, err)
}

func TestDataCache_FetchSeriesRecentListing(t *testing.T) {
	src := &weekdaySource{listedOn: date(2024, 6, 3)}
	now := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	cache := newTestCache(t, src, &now)
	ctx := context.Background()

	series, err := cache.FetchSeries(ctx, "VRE", date(2024, 3, 1), date(2024, 6, 14))
	require.NoError(t, err)
	assert.Equal(t, 10, series.Len())
	assert.Equal(t, 1, src.Calls())

	// 상장일 이전 이력은 없음: 같은 기간이나 더 짧은 기간은 다시 조회하지 않음
	for _, from := range []time.Time{date(2024, 3, 1), date(2024, 4, 1)} {
		series, err = cache.FetchSeries(ctx, "VRE", from, date(2024, 6, 14))
		require.NoError(t, err)
		assert.Equal(t, 10, series.Len())
	}
	assert.Equal(t, 1, src.Calls(), "served from cache")

	// 더 이른 시작일은 다시 소급 조회
	_, err = cache.FetchSeries(ctx, "VRE", date(2024, 1, 2), date(2024, 6, 14))
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls())
}

func TestDataCache_CleanupAndOverview(t *testing.T) {
	src := &weekdaySource{}
	now := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	cache := newTestCache(t, src, &now)
	ctx := context.Background()

	_, err := cache.Update(ctx, "VNM", false)
	require.NoError(t, err)
	require.NoError(t, cache.SaveListing(ctx, []contracts.StockInfo{{Symbol: "VNM", Name: "Vinamilk", Exchange: "HOSE"}}))

	rows, err := cache.MarketOverview(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Vinamilk", rows[0].Name)
	assert.Equal(t, date(2024, 6, 14), rows[0].Date)

	// 7일 보관: 2024-06-07 이전 삭제 (05-15 ~ 06-06 평일 17개)
	deleted, err := cache.Cleanup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(17), deleted)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.TotalRecords)

	symbols, err := cache.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"VNM"}, symbols)
}
