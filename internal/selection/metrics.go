package selection

import (
	"math"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/s2_signals"
)

// 시장 비교 지표 윈도우
const (
	monthBars      = 21
	quarterBars    = 63
	volatilityBars = 20
	volumeBars     = 20
	yearBars       = 252
)

// buildResult flattens an evaluation and its panel into a comparison row
func buildResult(p *s2_signals.Panel, eval *contracts.Evaluation) contracts.ScanResult {
	last := p.Latest()
	bar := p.Bar(last)
	closes := p.Closes()

	res := contracts.ScanResult{
		Symbol:           eval.Symbol,
		Date:             bar.Date,
		Price:            bar.Close,
		Volume:           bar.Volume,
		TechnicalScore:   eval.TechnicalScore,
		FundamentalScore: eval.FundamentalScore,
		OverallScore:     eval.OverallScore,
		Signal:           eval.Signal,
		Trend:            eval.Trend,
		Timeframes:       eval.Timeframes,

		MonthlyReturn:   periodReturn(closes, monthBars),
		QuarterlyReturn: periodReturn(closes, quarterBars),
		Volatility:      annualizedVolatility(closes, volatilityBars),
		VolumeRatio:     relativeVolume(p, volumeBars),
		BBPosition:      bandPosition(p, last),
		PriceVsSMA20:    distanceFrom(p, s2_signals.ColSMA20, last),
		PriceVsSMA50:    distanceFrom(p, s2_signals.ColSMA50, last),

		RSI:   optional(p.At(s2_signals.ColRSI, last)),
		MACD:  optional(p.At(s2_signals.ColMACD, last)),
		SMA20: optional(p.At(s2_signals.ColSMA20, last)),
		SMA50: optional(p.At(s2_signals.ColSMA50, last)),

		SignalCount:     len(eval.Signals),
		EntryPointCount: len(eval.EntryPoints),
		ExitPointCount:  len(eval.ExitPoints),
		RiskReward:      eval.RiskReward,
		Evaluation:      eval,
	}

	res.High52W, res.Low52W = yearRange(p)
	if res.High52W > 0 {
		res.DistFromHigh = (bar.Close - res.High52W) / res.High52W * 100
	}
	if res.Low52W > 0 {
		res.DistFromLow = (bar.Close - res.Low52W) / res.Low52W * 100
	}

	return res
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return contracts.F(v)
}

// periodReturn compares the last close with the close `bars` rows back
// (first row when the series is shorter), in percent
func periodReturn(closes []float64, bars int) float64 {
	n := len(closes)
	if n == 0 {
		return 0
	}
	ref := closes[0]
	if n >= bars {
		ref = closes[n-bars]
	}
	if ref == 0 {
		return 0
	}
	return (closes[n-1] - ref) / ref * 100
}

// annualizedVolatility is the sample stdev of the last `bars` daily returns × √252, in percent
func annualizedVolatility(closes []float64, bars int) *float64 {
	returns := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) > bars {
		returns = returns[len(returns)-bars:]
	}
	if len(returns) < 2 {
		return nil
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	ss := 0.0
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / float64(len(returns)-1))
	return contracts.F(std * math.Sqrt(yearBars) * 100)
}

// relativeVolume divides the last volume by the mean of the last `bars` volumes (1 when the mean is 0)
func relativeVolume(p *s2_signals.Panel, bars int) float64 {
	n := p.Len()
	start := n - bars
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for i := start; i < n; i++ {
		sum += float64(p.Bar(i).Volume)
	}
	mean := sum / float64(n-start)
	if mean <= 0 {
		return 1
	}
	return float64(p.Bar(n-1).Volume) / mean
}

// yearRange returns the highest high and lowest low over the last 252 rows
func yearRange(p *s2_signals.Panel) (high, low float64) {
	n := p.Len()
	start := n - yearBars
	if start < 0 {
		start = 0
	}
	high, low = p.Bar(start).High, p.Bar(start).Low
	for i := start + 1; i < n; i++ {
		b := p.Bar(i)
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low
}

// bandPosition places the close inside the Bollinger band: 0 at the lower band, 1 at the upper
func bandPosition(p *s2_signals.Panel, i int) *float64 {
	hi, lo := p.At(s2_signals.ColBBHigh, i), p.At(s2_signals.ColBBLow, i)
	if math.IsNaN(hi) || math.IsNaN(lo) {
		return nil
	}
	if hi == lo {
		return contracts.F(0.5)
	}
	return contracts.F((p.Close(i) - lo) / (hi - lo))
}

// distanceFrom is the close's distance from column c in percent, 0 when c is undefined
func distanceFrom(p *s2_signals.Panel, c s2_signals.Column, i int) float64 {
	v := p.At(c, i)
	if math.IsNaN(v) || v == 0 {
		return 0
	}
	return (p.Close(i) - v) / v * 100
}
