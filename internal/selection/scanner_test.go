package selection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

var baseDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesOf(symbol string, closes []float64, volume int64) *contracts.PriceSeries {
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.Bar{
			Date: baseDate.AddDate(0, 0, i), Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: volume,
		}
	}
	return &contracts.PriceSeries{Symbol: symbol, Bars: bars}
}

func ramp(n int, from, to float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return out
}

// stubFetcher serves canned series; symbols in fail return an error, in panics panic
type stubFetcher struct {
	mu     sync.Mutex
	series map[string]*contracts.PriceSeries
	fail   map[string]bool
	panics map[string]bool
	calls  int
}

func (f *stubFetcher) FetchSeries(_ context.Context, symbol string, _, _ time.Time) (*contracts.PriceSeries, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.panics[symbol] {
		panic("provider exploded")
	}
	if f.fail[symbol] {
		return nil, fmt.Errorf("fetch %s: connection reset", symbol)
	}
	return f.series[symbol], nil
}

type stubUniverse []string

func (u stubUniverse) Build(context.Context) (*contracts.Universe, error) {
	return &contracts.Universe{Date: baseDate, Stocks: u}, nil
}

type stubRatios struct{}

func (stubRatios) FetchRatios(_ context.Context, symbol string) (*contracts.Ratios, error) {
	if symbol == "BAD" {
		return nil, errors.New("ratios down")
	}
	return &contracts.Ratios{Symbol: symbol, PE: contracts.F(12)}, nil
}

func newTestScanner(f contracts.SeriesFetcher, universe UniverseSource) *Scanner {
	cfg := Config{Workers: 3, RatePerSec: 0, MinBars: 20}
	return NewScanner(f, stubRatios{}, universe, cfg, logger.Nop())
}

func TestScanUniverse_IsolatesFailures(t *testing.T) {
	f := &stubFetcher{
		series: map[string]*contracts.PriceSeries{
			"VNM": seriesOf("VNM", ramp(60, 50, 60), 1_000_000),
			"FPT": seriesOf("FPT", ramp(60, 120, 110), 1_000_000),
			"HPG": seriesOf("HPG", ramp(60, 25, 26), 500_000),
		},
		fail: map[string]bool{"VIC": true, "VCB": true},
	}

	report, err := newTestScanner(f, nil).ScanUniverse(context.Background(),
		[]string{"VNM", "FPT", "VIC", "HPG", "VCB"}, ScanRequest{Period: "3M"}, nil)
	require.NoError(t, err)

	assert.Len(t, report.Results, 3)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 0, report.Skipped)
	assert.Contains(t, report.Failures, "VIC")
	assert.Contains(t, report.Failures, "VCB")
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 5, f.calls)
}

func TestScanUniverse_SkipsShortAndMissingSeries(t *testing.T) {
	f := &stubFetcher{series: map[string]*contracts.PriceSeries{
		"VNM": seriesOf("VNM", ramp(60, 50, 60), 1000),
		"TCB": seriesOf("TCB", ramp(10, 28, 29), 1000),
	}}

	report, err := newTestScanner(f, nil).ScanUniverse(context.Background(),
		[]string{"VNM", "TCB", "GAS"}, ScanRequest{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "VNM", report.Results[0].Symbol)
}

func TestScanUniverse_ProgressIsMonotonic(t *testing.T) {
	symbols := []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8"}
	f := &stubFetcher{series: map[string]*contracts.PriceSeries{}}
	for i, s := range symbols {
		f.series[s] = seriesOf(s, ramp(40, 10, 10+float64(i)), 1000)
	}

	var dones []int
	var seen []string
	progress := func(done, total int, message string) {
		assert.Equal(t, len(symbols), total)
		dones = append(dones, done)
		seen = append(seen, message)
	}

	_, err := newTestScanner(f, nil).ScanUniverse(context.Background(), symbols, ScanRequest{}, progress)
	require.NoError(t, err)

	require.Len(t, dones, len(symbols))
	for i, d := range dones {
		assert.Equal(t, i+1, d)
	}
	sort.Strings(seen)
	assert.Equal(t, symbols, seen)
}

func TestScanUniverse_SortedWithSymbolTieBreak(t *testing.T) {
	same := ramp(60, 40, 45)
	f := &stubFetcher{series: map[string]*contracts.PriceSeries{
		"MSN": seriesOf("MSN", same, 1000),
		"BID": seriesOf("BID", same, 1000),
		"CTG": seriesOf("CTG", ramp(60, 45, 35), 1000),
		"SAB": seriesOf("SAB", ramp(60, 30, 40), 1000),
	}}

	report, err := newTestScanner(f, nil).ScanUniverse(context.Background(),
		[]string{"MSN", "CTG", "BID", "SAB"}, ScanRequest{}, nil)
	require.NoError(t, err)
	require.Len(t, report.Results, 4)

	for i := 1; i < len(report.Results); i++ {
		prev, cur := report.Results[i-1], report.Results[i]
		assert.GreaterOrEqual(t, prev.OverallScore, cur.OverallScore)
		if prev.OverallScore == cur.OverallScore {
			assert.Less(t, prev.Symbol, cur.Symbol)
		}
	}

	var bid, msn int
	for i, r := range report.Results {
		switch r.Symbol {
		case "BID":
			bid = i
		case "MSN":
			msn = i
		}
	}
	assert.Less(t, bid, msn)
}

func TestScanUniverse_CriteriaAndTopN(t *testing.T) {
	f := &stubFetcher{series: map[string]*contracts.PriceSeries{
		"VNM": seriesOf("VNM", ramp(60, 50, 60), 1000),
		"FPT": seriesOf("FPT", ramp(60, 50, 61), 1000),
		"VIC": seriesOf("VIC", ramp(60, 50, 62), 1000),
	}}
	s := newTestScanner(f, nil)

	report, err := s.ScanUniverse(context.Background(), []string{"VNM", "FPT", "VIC"},
		ScanRequest{Criteria: &contracts.Criteria{MinOverallScore: contracts.F(101)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Empty(t, report.Results)
	assert.NotNil(t, report.Results)

	report, err = s.ScanUniverse(context.Background(), []string{"vnm", " FPT", "VIC", "VIC"},
		ScanRequest{TopN: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Len(t, report.Results, 2)
}

func TestScanUniverse_PanicIsIsolated(t *testing.T) {
	f := &stubFetcher{
		series: map[string]*contracts.PriceSeries{"VNM": seriesOf("VNM", ramp(60, 50, 60), 1000)},
		panics: map[string]bool{"PLX": true},
	}

	report, err := newTestScanner(f, nil).ScanUniverse(context.Background(), []string{"VNM", "PLX"}, ScanRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Failures["PLX"], "panic")
	assert.Len(t, report.Results, 1)
}

func TestScanUniverse_Canceled(t *testing.T) {
	f := &stubFetcher{series: map[string]*contracts.PriceSeries{"VNM": seriesOf("VNM", ramp(60, 50, 60), 1000)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScanner(f, nil, nil, Config{Workers: 2, RatePerSec: 1, MinBars: 20}, logger.Nop())
	_, err := s.ScanUniverse(ctx, []string{"VNM", "FPT"}, ScanRequest{}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestScanUniverse_NoUniverse(t *testing.T) {
	_, err := newTestScanner(&stubFetcher{}, nil).ScanUniverse(context.Background(), nil, ScanRequest{}, nil)
	assert.Error(t, err)
}

func TestScanMarket_KeepsSuitableResults(t *testing.T) {
	f := &stubFetcher{series: map[string]*contracts.PriceSeries{
		"VNM": seriesOf("VNM", ramp(250, 40, 60), 1000),
		"FPT": seriesOf("FPT", ramp(250, 60, 40), 1000),
		"BAD": seriesOf("BAD", ramp(250, 50, 55), 1000),
	}}
	s := newTestScanner(f, stubUniverse{"VNM", "FPT", "BAD"})

	for _, inv := range []contracts.InvestmentType{contracts.ShortTerm, contracts.MediumTerm, contracts.LongTerm} {
		report, err := s.ScanMarket(context.Background(), inv, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, inv, report.Investment)
		assert.Equal(t, 3, report.Succeeded)
		assert.LessOrEqual(t, len(report.Results), defaultTopN)
		for _, r := range report.Results {
			assert.GreaterOrEqual(t, r.OverallScore, minSuitableScore)
			assert.Contains(t, r.Timeframes, inv.Timeframe())
		}
	}
}

func TestFindBreakouts(t *testing.T) {
	// 완만한 하락 후 마지막 봉에서 SMA50 돌파 (RSI ≈ 67.5, 거래량 3배)
	const step = 0.05
	closes := make([]float64, 120)
	for i := 0; i < 119; i++ {
		closes[i] = 100 + step*float64(118-i)
	}
	closes[119] = 100 + 27*step
	breakout := seriesOf("HPG", closes, 1000)
	breakout.Bars[119].Volume = 3000

	f := &stubFetcher{series: map[string]*contracts.PriceSeries{
		"HPG": breakout,
		"VNM": seriesOf("VNM", ramp(120, 50, 60), 1000),
		"FPT": seriesOf("FPT", ramp(80, 50, 60), 1000),
	}}

	found, err := newTestScanner(f, stubUniverse{"HPG", "VNM", "FPT"}).FindBreakouts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, found, 1)

	b := found[0]
	assert.Equal(t, "HPG", b.Symbol)
	assert.InDelta(t, 101.35, b.Price, 1e-9)
	assert.Greater(t, b.Price, b.SMA50)
	assert.InDelta(t, 67.5, b.RSI, 0.1)
	assert.InDelta(t, 3000.0/1100.0, b.VolumeRatio, 1e-9)
}

func TestFindOversold(t *testing.T) {
	f := &stubFetcher{series: map[string]*contracts.PriceSeries{
		"CTG": seriesOf("CTG", ramp(60, 45, 30), 1000),
		"VNM": seriesOf("VNM", ramp(60, 50, 60), 1000),
		"GAS": seriesOf("GAS", ramp(10, 80, 60), 1000),
	}}

	found, err := newTestScanner(f, stubUniverse{"CTG", "VNM", "GAS"}).FindOversold(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, found, 1)

	o := found[0]
	assert.Equal(t, "CTG", o.Symbol)
	require.NotNil(t, o.RSI)
	assert.Equal(t, 0.0, *o.RSI)
	assert.Equal(t, "RSI quá bán", o.BBPosition)
}

func TestComparisonTable_FillsListingInfo(t *testing.T) {
	f := &stubFetcher{series: map[string]*contracts.PriceSeries{
		"VNM": seriesOf("VNM", ramp(60, 50, 60), 1000),
		"FPT": seriesOf("FPT", ramp(40, 50, 60), 1000),
	}}
	listing := []contracts.OverviewRow{
		{Symbol: "VNM", Name: "Vinamilk", Exchange: "HOSE"},
		{Symbol: "FPT", Name: "FPT Corp", Exchange: "HOSE"},
	}

	report, err := newTestScanner(f, nil).ComparisonTable(context.Background(), listing, nil)
	require.NoError(t, err)

	// 50봉 미만은 비교표에서 제외
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "Vinamilk", report.Results[0].Name)
	assert.Equal(t, "HOSE", report.Results[0].Exchange)
}
