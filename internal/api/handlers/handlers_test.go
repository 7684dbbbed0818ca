package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/external/demo"
	"github.com/wonny/vnquant/internal/s0_data/collector"
	"github.com/wonny/vnquant/internal/s0_data/quality"
	"github.com/wonny/vnquant/internal/s2_signals"
	"github.com/wonny/vnquant/internal/selection"
	"github.com/wonny/vnquant/pkg/logger"
	"github.com/wonny/vnquant/pkg/redis"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeAnalyzer struct {
	eval *contracts.Evaluation
	err  error
	args []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, symbol, period string, withFundamentals bool) (*contracts.Evaluation, error) {
	f.args = []string{symbol, period, fmt.Sprint(withFundamentals)}
	return f.eval, f.err
}

func (f *fakeAnalyzer) Panel(ctx context.Context, symbol, period string) (*s2_signals.Panel, error) {
	if f.err != nil {
		return nil, f.err
	}
	to := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	series, err := demo.NewSource().FetchSeries(ctx, symbol, to.AddDate(0, -6, 0), to)
	if err != nil {
		return nil, err
	}
	return s2_signals.BuildPanel(series)
}

type fakeScanner struct {
	report    *contracts.ScanReport
	err       error
	calls     int
	gotReq    selection.ScanRequest
	gotSyms   []string
	breakouts []contracts.Breakout
}

func (f *fakeScanner) ScanUniverse(_ context.Context, symbols []string, req selection.ScanRequest, _ contracts.ProgressFunc) (*contracts.ScanReport, error) {
	f.calls++
	f.gotSyms, f.gotReq = symbols, req
	return f.report, f.err
}

func (f *fakeScanner) ScanMarket(_ context.Context, investment contracts.InvestmentType, topN int, progress contracts.ProgressFunc) (*contracts.ScanReport, error) {
	f.calls++
	f.gotReq = selection.ScanRequest{Investment: investment, TopN: topN}
	if progress != nil {
		progress(1, 2, "VNM")
		progress(2, 2, "FPT")
	}
	return f.report, f.err
}

func (f *fakeScanner) FindBreakouts(context.Context, contracts.ProgressFunc) ([]contracts.Breakout, error) {
	f.calls++
	return f.breakouts, f.err
}

func (f *fakeScanner) FindOversold(context.Context, contracts.ProgressFunc) ([]contracts.Oversold, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeScanner) ComparisonTable(_ context.Context, listing []contracts.OverviewRow, _ contracts.ProgressFunc) (*contracts.ScanReport, error) {
	f.calls++
	return f.report, f.err
}

type fakeCache struct {
	rows []contracts.OverviewRow
}

func (f *fakeCache) Stats(context.Context) (*contracts.CacheStats, error) {
	return &contracts.CacheStats{Backend: "sqlite", TotalSymbols: len(f.rows)}, nil
}

func (f *fakeCache) MarketOverview(context.Context) ([]contracts.OverviewRow, error) {
	return f.rows, nil
}

func (f *fakeCache) Symbols(context.Context) ([]string, error) {
	out := make([]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.Symbol
	}
	return out, nil
}

type fakeUpdater struct {
	symbols []string
	cfg     collector.Config
}

func (f *fakeUpdater) UpdateAll(_ context.Context, symbols []string, cfg collector.Config, _ contracts.ProgressFunc) *collector.Summary {
	f.symbols, f.cfg = symbols, cfg
	s := &collector.Summary{Total: len(symbols)}
	for _, sym := range symbols {
		if sym == "BAD" {
			s.Failed++
			s.Results = append(s.Results, collector.FetchResult{Symbol: sym, Error: errors.New("boom")})
			continue
		}
		s.Success++
		s.Bars += 10
		s.Results = append(s.Results, collector.FetchResult{Symbol: sym, Bars: 10})
	}
	return s
}

type fakeUniverse struct{ stocks []string }

func (f fakeUniverse) Build(context.Context) (*contracts.Universe, error) {
	return &contracts.Universe{Stocks: f.stocks, TotalCount: len(f.stocks)}, nil
}

type fakeGate struct{}

func (fakeGate) Check(_ context.Context, symbols []string, date time.Time) (*quality.Snapshot, error) {
	return &quality.Snapshot{Date: date, TotalStocks: len(symbols), ValidStocks: len(symbols), Passed: true}, nil
}

func disabledCache() *redis.Cache {
	return redis.NewCache(redis.Disabled(), "test")
}

func serve(t *testing.T, route string, h http.HandlerFunc, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc(route, h).Methods(method)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

// ============================================================================
// Stock handler
// ============================================================================

func TestGetAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{eval: &contracts.Evaluation{
		Symbol:       "VNM",
		Close:        68123.456,
		OverallScore: 72.5,
		Signal:       contracts.LabelBuy,
		EntryPoints:  []contracts.EntryPoint{{Type: contracts.EntryBuy, Price: 67000.129}},
		ExitPoints:   []contracts.ExitPoint{{Type: contracts.ExitStopLoss, Price: 64000.555, LossPct: contracts.F(-6.0554)}},
	}}
	h := NewStockHandler(analyzer, nil, nil, logger.Nop())

	rec := serve(t, "/api/stocks/{symbol}/analysis", h.GetAnalysis, "GET", "/api/stocks/vnm/analysis?period=6M&fundamentals=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"vnm", "6M", "false"}, analyzer.args)

	var eval contracts.Evaluation
	decode(t, rec, &eval)
	assert.Equal(t, 68123.46, eval.Close)
	assert.Equal(t, 67000.13, eval.EntryPoints[0].Price)
	assert.Equal(t, 64000.56, eval.ExitPoints[0].Price)
	assert.Equal(t, -6.06, *eval.ExitPoints[0].LossPct)
}

func TestGetAnalysis_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"bad period", "/api/stocks/VNM/analysis?period=2W", nil, http.StatusBadRequest},
		{"no data", "/api/stocks/ZZZ/analysis", fmt.Errorf("ZZZ: %w", contracts.ErrNoData), http.StatusNotFound},
		{"invalid series", "/api/stocks/VNM/analysis", contracts.ErrInvalidSeries, http.StatusUnprocessableEntity},
		{"other", "/api/stocks/VNM/analysis", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStockHandler(&fakeAnalyzer{err: tt.err}, nil, nil, logger.Nop())
			rec := serve(t, "/api/stocks/{symbol}/analysis", h.GetAnalysis, "GET", tt.target, "")
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			decode(t, rec, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetPanel(t *testing.T) {
	h := NewStockHandler(&fakeAnalyzer{}, nil, nil, logger.Nop())

	rec := serve(t, "/api/stocks/{symbol}/panel", h.GetPanel, "GET", "/api/stocks/VNM/panel?tail=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Symbol string     `json:"symbol"`
		Count  int        `json:"count"`
		Rows   []PanelRow `json:"rows"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "VNM", body.Symbol)
	assert.Equal(t, 5, body.Count)
	require.Len(t, body.Rows, 5)

	last := body.Rows[4]
	assert.Equal(t, "2024-06-28", last.Date)
	require.Contains(t, last.Indicators, string(s2_signals.ColSMA20))
	assert.NotNil(t, last.Indicators[string(s2_signals.ColSMA20)], "SMA20 is defined after six months")

	rec = serve(t, "/api/stocks/{symbol}/panel", h.GetPanel, "GET", "/api/stocks/VNM/panel?tail=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListStocks(t *testing.T) {
	h := NewStockHandler(nil, nil, demo.NewSource(), logger.Nop())

	rec := serve(t, "/api/stocks", h.ListStocks, "GET", "/api/stocks?exchange=hose", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int                   `json:"count"`
		Stocks []contracts.StockInfo `json:"stocks"`
	}
	decode(t, rec, &body)
	assert.Equal(t, len(body.Stocks), body.Count)
	assert.NotZero(t, body.Count)
	for _, s := range body.Stocks {
		assert.Equal(t, "HOSE", s.Exchange)
	}
}

// ============================================================================
// Scan handler
// ============================================================================

func TestScan(t *testing.T) {
	scanner := &fakeScanner{report: &contracts.ScanReport{
		Total:   2,
		Results: []contracts.ScanResult{{Symbol: "FPT", Price: 120000.987, OverallScore: 70}},
	}}
	h := NewScanHandler(scanner, disabledCache(), nil, logger.Nop())

	body := `{"symbols":["FPT","VNM"],"period":"6M","top_n":5}`
	rec := serve(t, "/api/scan", h.Scan, "POST", "/api/scan", body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"FPT", "VNM"}, scanner.gotSyms)
	assert.Equal(t, "6M", scanner.gotReq.Period)
	assert.Equal(t, 5, scanner.gotReq.TopN)

	var report contracts.ScanReport
	decode(t, rec, &report)
	assert.Equal(t, 120000.99, report.Results[0].Price)
}

func TestScan_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"symbols":`},
		{"no symbols", `{"symbols":[]}`},
		{"bad period", `{"symbols":["VNM"],"period":"2W"}`},
		{"bad investment", `{"symbols":["VNM"],"investment_type":"DAY_TRADE"}`},
		{"bad top", `{"symbols":["VNM"],"top_n":1000}`},
		{"bad criteria", `{"symbols":["VNM"],"criteria":{"rsi_min":150}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &fakeScanner{}
			h := NewScanHandler(scanner, disabledCache(), nil, logger.Nop())
			rec := serve(t, "/api/scan", h.Scan, "POST", "/api/scan", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, scanner.calls)
		})
	}
}

func TestScanMarket(t *testing.T) {
	scanner := &fakeScanner{report: &contracts.ScanReport{Investment: contracts.ShortTerm}}
	h := NewScanHandler(scanner, disabledCache(), nil, logger.Nop())

	rec := serve(t, "/api/scan/market", h.ScanMarket, "GET", "/api/scan/market?type=SHORT_TERM&top=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contracts.ShortTerm, scanner.gotReq.Investment)
	assert.Equal(t, 7, scanner.gotReq.TopN)

	rec = serve(t, "/api/scan/market", h.ScanMarket, "GET", "/api/scan/market?type=DAY", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, "/api/scan/market", h.ScanMarket, "GET", "/api/scan/market?type=LONG_TERM&top=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLatestReport_NoStore(t *testing.T) {
	h := NewScanHandler(&fakeScanner{}, disabledCache(), nil, logger.Nop())
	rec := serve(t, "/api/scan/latest", h.GetLatestReport, "GET", "/api/scan/latest?type=SHORT_TERM", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestFindBreakouts(t *testing.T) {
	scanner := &fakeScanner{breakouts: []contracts.Breakout{{Symbol: "HPG", Price: 25100.004, RSI: 61.123456}}}
	h := NewScanHandler(scanner, disabledCache(), nil, logger.Nop())

	rec := serve(t, "/api/scan/breakouts", h.FindBreakouts, "GET", "/api/scan/breakouts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count     int                  `json:"count"`
		Breakouts []contracts.Breakout `json:"breakouts"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 25100.0, body.Breakouts[0].Price)
	assert.Equal(t, 61.1235, body.Breakouts[0].RSI)
}

// ============================================================================
// Ranking handler
// ============================================================================

func TestGetComparison(t *testing.T) {
	results := []contracts.ScanResult{
		{Symbol: "AAA", OverallScore: 80, MonthlyReturn: 2, RSI: contracts.F(55)},
		{Symbol: "BBB", OverallScore: 60, MonthlyReturn: 9, RSI: contracts.F(75)},
		{Symbol: "CCC", OverallScore: 40, MonthlyReturn: 5, RSI: contracts.F(45)},
	}
	presets := map[string]contracts.Criteria{
		"calm": {RSIMax: contracts.F(70)},
	}

	tests := []struct {
		name    string
		query   string
		want    []string
		wantErr bool
	}{
		{"overall", "?category=overall&top=2", []string{"AAA", "BBB"}, false},
		{"monthly", "?category=monthly", []string{"BBB", "CCC", "AAA"}, false},
		{"min score", "?min_score=50", []string{"AAA", "BBB"}, false},
		{"preset", "?preset=calm&category=monthly", []string{"CCC", "AAA"}, false},
		{"preset override", "?preset=calm&rsi_max=80&top=1", []string{"AAA"}, false},
		{"unknown preset", "?preset=nope", nil, true},
		{"bad number", "?rsi_min=abc", nil, true},
		{"bad category", "?category=best", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]contracts.ScanResult, len(results))
			copy(rows, results)
			scanner := &fakeScanner{report: &contracts.ScanReport{Results: rows}}
			h := NewRankingHandler(scanner, &fakeCache{}, presets, logger.Nop())

			rec := serve(t, "/api/market/comparison", h.GetComparison, "GET", "/api/market/comparison"+tt.query, "")
			if tt.wantErr {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				return
			}
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Report contracts.ScanReport `json:"report"`
			}
			decode(t, rec, &body)
			got := make([]string, len(body.Report.Results))
			for i, r := range body.Report.Results {
				got[i] = r.Symbol
			}
			assert.Equal(t, tt.want, got)
		})
	}

	// 프리셋 원본은 변경되지 않아야 함
	assert.Equal(t, 70.0, *presets["calm"].RSIMax)
}

// ============================================================================
// Data handler
// ============================================================================

func TestUpdateCache(t *testing.T) {
	updater := &fakeUpdater{}
	h := NewDataHandler(&fakeCache{}, fakeUniverse{stocks: []string{"VNM", "BAD"}}, updater, fakeGate{}, logger.Nop())

	rec := serve(t, "/api/cache/update", h.UpdateCache, "POST", "/api/cache/update", `{"force":true,"workers":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"VNM", "BAD"}, updater.symbols)
	assert.True(t, updater.cfg.Force)
	assert.Equal(t, 2, updater.cfg.Workers)

	var body struct {
		Summary  collector.Summary `json:"summary"`
		Failures map[string]string `json:"failures"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 1, body.Summary.Success)
	assert.Equal(t, 1, body.Summary.Failed)
	assert.Equal(t, "boom", body.Failures["BAD"])

	// 명시한 종목만 갱신
	rec = serve(t, "/api/cache/update", h.UpdateCache, "POST", "/api/cache/update", `{"symbols":["FPT"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"FPT"}, updater.symbols)
	assert.Equal(t, collector.DefaultConfig().Workers, updater.cfg.Workers)

	rec = serve(t, "/api/cache/update", h.UpdateCache, "POST", "/api/cache/update", `{"workers":100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOverviewAndStats(t *testing.T) {
	cache := &fakeCache{rows: []contracts.OverviewRow{{Symbol: "VNM", Close: 68000.456}}}
	h := NewDataHandler(cache, fakeUniverse{}, &fakeUpdater{}, fakeGate{}, logger.Nop())

	rec := serve(t, "/api/cache/overview", h.GetOverview, "GET", "/api/cache/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var overview struct {
		Count int                     `json:"count"`
		Rows  []contracts.OverviewRow `json:"rows"`
	}
	decode(t, rec, &overview)
	assert.Equal(t, 1, overview.Count)
	assert.Equal(t, 68000.46, overview.Rows[0].Close)

	rec = serve(t, "/api/cache/stats", h.GetCacheStats, "GET", "/api/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats contracts.CacheStats
	decode(t, rec, &stats)
	assert.Equal(t, "sqlite", stats.Backend)
	assert.Equal(t, 1, stats.TotalSymbols)

	rec = serve(t, "/api/data/quality", h.GetQuality, "GET", "/api/data/quality", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap quality.Snapshot
	decode(t, rec, &snap)
	assert.Equal(t, 1, snap.TotalStocks)
	assert.True(t, snap.Passed)
}
