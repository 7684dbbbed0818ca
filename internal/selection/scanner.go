package selection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/s2_signals"
	"github.com/wonny/vnquant/pkg/logger"
	"github.com/wonny/vnquant/pkg/redis"
)

const (
	defaultTopN       = 20
	minSuitableScore  = 55.0
	breakoutMinBars   = 100
	comparisonMinBars = 50
	oversoldMinBars   = 20
)

// Config holds scanner configuration
type Config struct {
	Workers    int     // 동시 처리 워커 수
	RatePerSec float64 // 스캔당 종목 처리 속도 제한 (0 = 무제한)
	MinBars    int     // 최소 봉 개수, 미만이면 skip
}

// DefaultConfig returns default scanner configuration
func DefaultConfig() Config {
	return Config{Workers: 8, RatePerSec: 10, MinBars: 20}
}

// UniverseSource supplies the symbols of a market-wide scan
type UniverseSource interface {
	Build(ctx context.Context) (*contracts.Universe, error)
}

// ScanRequest parameterizes a universe scan
type ScanRequest struct {
	Investment   contracts.InvestmentType `json:"investment_type,omitempty" validate:"omitempty,oneof=SHORT_TERM MEDIUM_TERM LONG_TERM"`
	Period       string                   `json:"period,omitempty" validate:"omitempty,oneof=1M 3M 6M 1Y 3Y 5Y"`
	Fundamentals bool                     `json:"fundamentals"`
	Criteria     *contracts.Criteria      `json:"criteria,omitempty" validate:"omitempty"`
	TopN         int                      `json:"top_n,omitempty" validate:"omitempty,min=1,max=500"`

	minBars int
}

// period resolves the lookback code: explicit period, then the investment horizon, then 1Y
func (r ScanRequest) period() string {
	switch {
	case r.Period != "":
		return r.Period
	case r.Investment != "":
		return r.Investment.Period()
	}
	return "1Y"
}

func (r ScanRequest) withFundamentals() bool {
	return r.Fundamentals || (r.Investment != "" && r.Investment.NeedsFundamentals())
}

// Scanner repeats the single-symbol evaluation across many symbols
// ⭐ SSOT: 시장 스캔 오케스트레이션은 여기서만
type Scanner struct {
	series    contracts.SeriesFetcher
	ratios    contracts.RatiosFetcher
	universe  UniverseSource
	evaluator *s2_signals.Evaluator
	screener  *Screener
	config    Config
	logger    *logger.Logger
	now       func() time.Time
	evalCache *redis.Cache
}

// NewScanner creates a new scanner. ratios and universe may be nil.
func NewScanner(
	series contracts.SeriesFetcher,
	ratios contracts.RatiosFetcher,
	universe UniverseSource,
	cfg Config,
	log *logger.Logger,
) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MinBars < 1 {
		cfg.MinBars = DefaultConfig().MinBars
	}
	return &Scanner{
		series:    series,
		ratios:    ratios,
		universe:  universe,
		evaluator: s2_signals.NewEvaluator(log),
		screener:  NewScreener(log.Module("screener")),
		config:    cfg,
		logger:    log.Module("scanner"),
		now:       time.Now,
	}
}

// WithClock overrides the scan clock
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// ScanUniverse evaluates symbols concurrently and returns the ranked report.
// nil symbols scans the configured universe. A failing symbol is recorded in the
// report and never aborts the others; only context cancellation fails the scan.
func (s *Scanner) ScanUniverse(ctx context.Context, symbols []string, req ScanRequest, progress contracts.ProgressFunc) (*contracts.ScanReport, error) {
	if symbols == nil {
		var err error
		if symbols, err = s.universeSymbols(ctx); err != nil {
			return nil, err
		}
	}
	symbols = normalizeSymbols(symbols)

	days, err := contracts.Period(req.period())
	if err != nil {
		return nil, err
	}
	to := s.now()
	from := to.AddDate(0, 0, -days)
	withFundamentals := req.withFundamentals()
	minBars := req.minBars
	if minBars <= 0 {
		minBars = s.config.MinBars
	}

	report := &contracts.ScanReport{
		RunID:      uuid.NewString(),
		StartedAt:  to,
		Total:      len(symbols),
		Investment: req.Investment,
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":       report.RunID,
		"symbols":      len(symbols),
		"period":       req.period(),
		"fundamentals": withFundamentals,
		"workers":      s.config.Workers,
	}).Info("Starting scan")

	start := time.Now()
	run, err := runPool(ctx, s, symbols, progress, func(ctx context.Context, symbol string) (*contracts.ScanResult, error) {
		series, err := s.series.FetchSeries(ctx, symbol, from, to)
		if err != nil {
			return nil, err
		}
		if series.Len() < minBars {
			return nil, nil
		}
		return s.evaluate(ctx, series, withFundamentals)
	})
	if err != nil {
		return nil, err
	}

	report.Succeeded = len(run.values)
	report.Failed = len(run.failures)
	report.Skipped = run.skipped
	report.Failures = run.failures
	report.Results = s.reduce(run.values, req)
	report.Duration = time.Since(start)

	s.logger.WithFields(map[string]interface{}{
		"run_id":    report.RunID,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
		"results":   len(report.Results),
		"duration":  report.Duration.String(),
	}).Info("Scan completed")

	return report, nil
}

// ScanMarket scans the universe for symbols suited to an investment horizon
func (s *Scanner) ScanMarket(ctx context.Context, investment contracts.InvestmentType, topN int, progress contracts.ProgressFunc) (*contracts.ScanReport, error) {
	if topN <= 0 {
		topN = defaultTopN
	}
	return s.ScanUniverse(ctx, nil, ScanRequest{Investment: investment, TopN: topN}, progress)
}

// reduce applies suitability and criteria filters, ranks once, then truncates
func (s *Scanner) reduce(results []contracts.ScanResult, req ScanRequest) []contracts.ScanResult {
	if req.Investment != "" {
		label := req.Investment.Timeframe()
		suitable := results[:0]
		for _, r := range results {
			if r.Evaluation.HasTimeframe(label) && r.OverallScore >= minSuitableScore {
				suitable = append(suitable, r)
			}
		}
		results = suitable
	}

	if req.Criteria != nil {
		results = s.screener.Filter(results, *req.Criteria)
	}

	Rank(results)

	if req.TopN > 0 && len(results) > req.TopN {
		results = results[:req.TopN]
	}
	if results == nil {
		results = []contracts.ScanResult{}
	}
	return results
}

func (s *Scanner) evaluate(ctx context.Context, series *contracts.PriceSeries, withFundamentals bool) (*contracts.ScanResult, error) {
	var ratios *contracts.Ratios
	if withFundamentals && s.ratios != nil {
		r, err := s.ratios.FetchRatios(ctx, series.Symbol)
		if err != nil {
			// 재무 데이터 실패는 중립 점수로 진행
			s.logger.WithError(err).WithField("symbol", series.Symbol).Warn("Ratios unavailable")
		} else if !r.IsEmpty() {
			ratios = r
		}
	}

	panel, err := s2_signals.BuildPanel(series)
	if err != nil {
		return nil, err
	}

	res := buildResult(panel, s.evaluator.EvaluatePanel(panel, ratios))
	return &res, nil
}

// FindBreakouts lists symbols whose close crossed above sma_50 on the latest bar
// with volume_ratio > 1.5 and 50 < RSI < 70
func (s *Scanner) FindBreakouts(ctx context.Context, progress contracts.ProgressFunc) ([]contracts.Breakout, error) {
	symbols, err := s.universeSymbols(ctx)
	if err != nil {
		return nil, err
	}
	to := s.now()
	from := to.AddDate(0, 0, -180)

	run, err := runPool(ctx, s, symbols, progress, func(ctx context.Context, symbol string) (*contracts.Breakout, error) {
		series, err := s.series.FetchSeries(ctx, symbol, from, to)
		if err != nil {
			return nil, err
		}
		if series.Len() < breakoutMinBars {
			return nil, nil
		}
		p, err := s2_signals.BuildPanel(series)
		if err != nil {
			return nil, err
		}
		return breakoutAt(p), nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(run.values, func(i, j int) bool { return run.values[i].Symbol < run.values[j].Symbol })
	return run.values, nil
}

func breakoutAt(p *s2_signals.Panel) *contracts.Breakout {
	last := p.Latest()
	prev := last - 1
	if prev < 0 {
		return nil
	}

	row := p.Row(last)
	sma50, ok := row.Get(s2_signals.ColSMA50)
	if !ok {
		return nil
	}
	vr, ok := row.Get(s2_signals.ColVolumeRatio)
	if !ok {
		return nil
	}
	rsi, ok := row.Get(s2_signals.ColRSI)
	if !ok {
		return nil
	}
	prevSMA := p.At(s2_signals.ColSMA50, prev)

	crossed := p.Close(prev) < prevSMA && row.Close > sma50
	if !crossed || vr <= 1.5 || rsi <= 50 || rsi >= 70 {
		return nil
	}

	return &contracts.Breakout{
		Symbol:      p.Symbol,
		Date:        row.Date,
		Price:       row.Close,
		SMA50:       sma50,
		VolumeRatio: vr,
		RSI:         rsi,
	}
}

// FindOversold lists symbols with RSI < 30 or a close at or below the lower Bollinger band
func (s *Scanner) FindOversold(ctx context.Context, progress contracts.ProgressFunc) ([]contracts.Oversold, error) {
	symbols, err := s.universeSymbols(ctx)
	if err != nil {
		return nil, err
	}
	to := s.now()
	from := to.AddDate(0, 0, -90)

	run, err := runPool(ctx, s, symbols, progress, func(ctx context.Context, symbol string) (*contracts.Oversold, error) {
		series, err := s.series.FetchSeries(ctx, symbol, from, to)
		if err != nil {
			return nil, err
		}
		if series.Len() < oversoldMinBars {
			return nil, nil
		}
		p, err := s2_signals.BuildPanel(series)
		if err != nil {
			return nil, err
		}
		return oversoldAt(p), nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(run.values, func(i, j int) bool { return run.values[i].Symbol < run.values[j].Symbol })
	return run.values, nil
}

func oversoldAt(p *s2_signals.Panel) *contracts.Oversold {
	row := p.Row(p.Latest())
	rsi, rsiOK := row.Get(s2_signals.ColRSI)
	bbLow, bbOK := row.Get(s2_signals.ColBBLow)

	atBand := bbOK && row.Close <= bbLow
	if !atBand && !(rsiOK && rsi < 30) {
		return nil
	}

	o := &contracts.Oversold{Symbol: p.Symbol, Date: row.Date, Price: row.Close, BBPosition: "RSI quá bán"}
	if rsiOK {
		o.RSI = contracts.F(rsi)
	}
	if atBand {
		o.BBPosition = "Chạm dải dưới"
	}
	return o
}

// ComparisonTable evaluates cached symbols over one year and ranks them by overall score.
// listing carries the names and exchanges shown in the table.
func (s *Scanner) ComparisonTable(ctx context.Context, listing []contracts.OverviewRow, progress contracts.ProgressFunc) (*contracts.ScanReport, error) {
	info := make(map[string]contracts.OverviewRow, len(listing))
	symbols := make([]string, 0, len(listing))
	for _, row := range listing {
		info[row.Symbol] = row
		symbols = append(symbols, row.Symbol)
	}

	report, err := s.ScanUniverse(ctx, symbols, ScanRequest{Period: "1Y", minBars: comparisonMinBars}, progress)
	if err != nil {
		return nil, err
	}

	for i := range report.Results {
		if row, ok := info[report.Results[i].Symbol]; ok {
			report.Results[i].Name = row.Name
			report.Results[i].Exchange = row.Exchange
		}
	}
	return report, nil
}

// Screener exposes the scanner's criteria filter
func (s *Scanner) Screener() *Screener {
	return s.screener
}

func (s *Scanner) universeSymbols(ctx context.Context) ([]string, error) {
	if s.universe == nil {
		return nil, fmt.Errorf("scan: no universe source configured")
	}
	u, err := s.universe.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build universe: %w", err)
	}
	return u.Stocks, nil
}

func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// poolRun collects the outcomes of one worker pool run
type poolRun[T any] struct {
	values   []T
	failures map[string]string
	skipped  int
}

type outcome[T any] struct {
	symbol string
	value  *T
	err    error
}

// runPool fans symbols out to a bounded set of workers, throttled by the scan
// rate limiter. work returns (nil, nil) to skip a symbol. Progress is reported
// from the collecting goroutine only, so done counts are monotonic.
func runPool[T any](
	ctx context.Context,
	s *Scanner,
	symbols []string,
	progress contracts.ProgressFunc,
	work func(ctx context.Context, symbol string) (*T, error),
) (*poolRun[T], error) {
	limit := rate.Inf
	if s.config.RatePerSec > 0 {
		limit = rate.Limit(s.config.RatePerSec)
	}
	limiter := rate.NewLimiter(limit, 1)

	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan outcome[T], len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for symbol := range symbolCh {
				if err := limiter.Wait(ctx); err != nil {
					resultCh <- outcome[T]{symbol: symbol, err: err}
					continue
				}
				resultCh <- safeWork(ctx, symbol, work)
			}
		}(i)
	}

	for _, symbol := range symbols {
		symbolCh <- symbol
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	run := &poolRun[T]{values: make([]T, 0, len(symbols)), failures: make(map[string]string)}
	done := 0
	for o := range resultCh {
		done++
		switch {
		case o.err != nil:
			run.failures[o.symbol] = o.err.Error()
			s.logger.WithError(o.err).WithField("symbol", o.symbol).Warn("Symbol failed")
		case o.value == nil:
			run.skipped++
		default:
			run.values = append(run.values, *o.value)
		}
		if progress != nil {
			progress(done, len(symbols), o.symbol)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan canceled: %w", err)
	}
	return run, nil
}

// safeWork turns a panic in one symbol's work into that symbol's failure
func safeWork[T any](ctx context.Context, symbol string, work func(context.Context, string) (*T, error)) (o outcome[T]) {
	o.symbol = symbol
	defer func() {
		if r := recover(); r != nil {
			o.value = nil
			o.err = fmt.Errorf("panic: %v", r)
		}
	}()
	o.value, o.err = work(ctx, symbol)
	return o
}
