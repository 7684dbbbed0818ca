package selection

import (
	"context"
	"fmt"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/s2_signals"
	"github.com/wonny/vnquant/pkg/redis"
)

// WithEvaluationCache enables Redis caching of single-symbol evaluations
func (s *Scanner) WithEvaluationCache(cache *redis.Cache) *Scanner {
	s.evalCache = cache
	return s
}

// Analyze evaluates one symbol over period. Cached evaluations are keyed by the
// last bar date, so a new bar always produces a fresh evaluation.
func (s *Scanner) Analyze(ctx context.Context, symbol, period string, withFundamentals bool) (*contracts.Evaluation, error) {
	series, err := s.fetch(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	last, _ := series.Last()

	key := redis.EvaluationKey(series.Symbol, period+":"+last.Date.Format("2006-01-02"), withFundamentals)
	if s.evalCache != nil {
		var cached contracts.Evaluation
		found, err := s.evalCache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", series.Symbol).Warn("Evaluation cache read failed")
		}
		if found {
			return &cached, nil
		}
	}

	res, err := s.evaluate(ctx, series, withFundamentals)
	if err != nil {
		return nil, err
	}

	if s.evalCache != nil {
		if err := s.evalCache.Set(ctx, key, res.Evaluation, redis.TTLEvaluation); err != nil {
			s.logger.WithError(err).WithField("symbol", series.Symbol).Warn("Evaluation cache write failed")
		}
	}
	return res.Evaluation, nil
}

// Panel builds the indicator panel of one symbol over period
func (s *Scanner) Panel(ctx context.Context, symbol, period string) (*s2_signals.Panel, error) {
	series, err := s.fetch(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	return s2_signals.BuildPanel(series)
}

func (s *Scanner) fetch(ctx context.Context, symbol, period string) (*contracts.PriceSeries, error) {
	days, err := contracts.Period(period)
	if err != nil {
		return nil, err
	}
	symbols := normalizeSymbols([]string{symbol})
	if len(symbols) == 0 {
		return nil, fmt.Errorf("empty symbol")
	}

	to := s.now()
	series, err := s.series.FetchSeries(ctx, symbols[0], to.AddDate(0, 0, -days), to)
	if err != nil {
		return nil, err
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", symbols[0], contracts.ErrNoData)
	}
	return series, nil
}
