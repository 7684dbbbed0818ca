package s2_signals

import (
	"fmt"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

// Evaluator runs the single-symbol pipeline: panel → scores → signals → levels
// ⭐ SSOT: 종목 평가 오케스트레이션은 여기서만
type Evaluator struct {
	logger *logger.Logger
}

// NewEvaluator creates a new evaluator
func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{logger: log.Module("s2_signals")}
}

// Evaluate builds the panel for series and evaluates its latest row.
// ratios may be nil; the fundamental score then defaults to neutral.
func (e *Evaluator) Evaluate(series *contracts.PriceSeries, ratios *contracts.Ratios) (*contracts.Evaluation, error) {
	if series.Len() == 0 {
		return nil, fmt.Errorf("evaluate %s: %w", symbolOf(series), contracts.ErrNoData)
	}

	panel, err := BuildPanel(series)
	if err != nil {
		return nil, err
	}

	return e.EvaluatePanel(panel, ratios), nil
}

// EvaluatePanel evaluates an already built panel
func (e *Evaluator) EvaluatePanel(p *Panel, ratios *contracts.Ratios) *contracts.Evaluation {
	technical := TechnicalScore(p)
	fundamental := FundamentalScore(ratios)
	overall := OverallScore(technical, fundamental)
	trend := Trend(p)

	last := p.Bar(p.Latest())
	exits := ExitPoints(p)

	eval := &contracts.Evaluation{
		Symbol:           p.Symbol,
		Date:             last.Date,
		Close:            last.Close,
		TechnicalScore:   technical,
		FundamentalScore: fundamental,
		OverallScore:     overall,
		Signal:           Label(overall),
		Trend:            trend,
		Signals:          DetectSignals(p),
		EntryPoints:      EntryPoints(p),
		ExitPoints:       exits,
		RiskReward:       RiskRewardFor(last.Close, exits),
		Timeframes:       Timeframes(technical, fundamental, trend, ratios != nil),
		Fundamentals:     AnalyzeFundamentals(ratios),
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":    p.Symbol,
		"rows":      p.Len(),
		"technical": technical,
		"overall":   overall,
		"signal":    eval.Signal,
		"events":    len(eval.Signals),
	}).Debug("Evaluated symbol")

	return eval
}

func symbolOf(s *contracts.PriceSeries) string {
	if s == nil {
		return ""
	}
	return s.Symbol
}
