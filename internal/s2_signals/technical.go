package s2_signals

import (
	"fmt"

	"github.com/wonny/vnquant/internal/contracts"
)

// 기술적 점수 규칙 상수
const (
	neutralScore = 50.0

	rsiOversold     = 30.0
	rsiOverbought   = 70.0
	adxTrending     = 25.0
	stochOversold   = 20.0
	stochOverbought = 80.0
	volumeSurge     = 1.5

	minTrendRows = 50
)

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// TechnicalScore scores the latest row on a 0..100 scale, 50 neutral.
// Rules whose columns are undefined are skipped.
func TechnicalScore(p *Panel) float64 {
	if p.Len() < 2 {
		return neutralScore
	}

	last := p.Row(p.Latest())
	score := neutralScore

	if rsi, ok := last.Get(ColRSI); ok {
		switch {
		case rsi < rsiOversold:
			score += 10
		case rsi > rsiOverbought:
			score -= 10
		case rsi > 40 && rsi < 60:
			score += 5
		}
	}

	macdLine, okM := last.Get(ColMACD)
	signal, okS := last.Get(ColMACDSignal)
	if okM && okS {
		if macdLine > signal {
			score += 8
		} else {
			score -= 8
		}
	}

	sma20, ok20 := last.Get(ColSMA20)
	sma50, ok50 := last.Get(ColSMA50)
	if ok20 && ok50 {
		if last.Close > sma20 && sma20 > sma50 {
			score += 12
		} else if last.Close < sma20 && sma20 < sma50 {
			score -= 12
		}
	}

	if adx, ok := last.Get(ColADX); ok && adx > adxTrending {
		pos, okP := last.Get(ColADXPos)
		neg, okN := last.Get(ColADXNeg)
		if okP && okN {
			if pos > neg {
				score += 5
			} else {
				score -= 5
			}
		}
	}

	if k, ok := last.Get(ColStochK); ok {
		if k < stochOversold {
			score += 5
		} else if k > stochOverbought {
			score -= 5
		}
	}

	return clamp(score)
}

// Trend labels the latest row from the close / SMA stack with an ADX strength suffix
func Trend(p *Panel) string {
	if p.Len() < minTrendRows {
		return contracts.TrendInsufficient
	}

	last := p.Row(p.Latest())
	sma20, ok20 := last.Get(ColSMA20)
	sma50, ok50 := last.Get(ColSMA50)

	trend := contracts.TrendUndetermined
	if ok20 && ok50 {
		c := last.Close
		switch {
		case c > sma20 && sma20 > sma50:
			trend = contracts.TrendStrongUp
		case c > sma20:
			trend = contracts.TrendUp
		case c < sma20 && sma20 < sma50:
			trend = contracts.TrendStrongDown
		case c < sma20:
			trend = contracts.TrendDown
		default:
			trend = contracts.TrendSideways
		}
	}

	if adx, ok := last.Get(ColADX); ok {
		if adx > adxTrending {
			trend += " (Mạnh)"
		} else {
			trend += " (Yếu)"
		}
	}
	return trend
}

// DetectSignals compares the last two rows and emits discrete BUY/SELL events
// ⭐ SSOT: 매매 신호 탐지는 여기서만
func DetectSignals(p *Panel) []contracts.SignalEvent {
	signals := []contracts.SignalEvent{}
	if p.Len() < 2 {
		return signals
	}

	last := p.Row(p.Latest())
	prev := p.Row(p.Latest() - 1)

	add := func(t contracts.SignalType, indicator string, s contracts.Strength, reason string) {
		signals = append(signals, contracts.SignalEvent{Type: t, Indicator: indicator, Strength: s, Reason: reason})
	}

	if rsi, ok := last.Get(ColRSI); ok {
		if rsi < rsiOversold {
			add(contracts.Buy, contracts.IndicatorRSI, contracts.Strong, fmt.Sprintf("RSI quá bán (%.2f)", rsi))
		} else if rsi > rsiOverbought {
			add(contracts.Sell, contracts.IndicatorRSI, contracts.Strong, fmt.Sprintf("RSI quá mua (%.2f)", rsi))
		}
	}

	if cross, ok := crossing(prev, last, ColMACD, ColMACDSignal); ok {
		switch cross {
		case crossUp:
			add(contracts.Buy, contracts.IndicatorMACD, contracts.Medium, "MACD cắt lên đường tín hiệu")
		case crossDown:
			add(contracts.Sell, contracts.IndicatorMACD, contracts.Medium, "MACD cắt xuống đường tín hiệu")
		}
	}

	if cross, ok := crossing(prev, last, ColSMA20, ColSMA50); ok {
		switch cross {
		case crossUp:
			add(contracts.Buy, contracts.IndicatorMA, contracts.Strong, "Golden Cross: SMA 20 cắt lên SMA 50")
		case crossDown:
			add(contracts.Sell, contracts.IndicatorMA, contracts.Strong, "Death Cross: SMA 20 cắt xuống SMA 50")
		}
	}

	bbLow, okL := last.Get(ColBBLow)
	bbHigh, okH := last.Get(ColBBHigh)
	if okL && last.Close < bbLow {
		add(contracts.Buy, contracts.IndicatorBB, contracts.Medium, "Giá chạm dải Bollinger dưới")
	} else if okH && last.Close > bbHigh {
		add(contracts.Sell, contracts.IndicatorBB, contracts.Medium, "Giá chạm dải Bollinger trên")
	}

	if k, ok := last.Get(ColStochK); ok {
		if k < stochOversold {
			add(contracts.Buy, contracts.IndicatorStoch, contracts.Medium, fmt.Sprintf("Stochastic quá bán (%.2f)", k))
		} else if k > stochOverbought {
			add(contracts.Sell, contracts.IndicatorStoch, contracts.Medium, fmt.Sprintf("Stochastic quá mua (%.2f)", k))
		}
	}

	if vr, ok := last.Get(ColVolumeRatio); ok && vr > volumeSurge {
		if last.Close > prev.Close {
			add(contracts.Buy, contracts.IndicatorVolume, contracts.Medium,
				fmt.Sprintf("Khối lượng tăng mạnh (%.2fx) với giá tăng", vr))
		} else {
			add(contracts.Sell, contracts.IndicatorVolume, contracts.Medium,
				fmt.Sprintf("Khối lượng tăng mạnh (%.2fx) với giá giảm", vr))
		}
	}

	return signals
}

type crossDirection int

const (
	noCross crossDirection = iota
	crossUp
	crossDown
)

// crossing reports whether line a crossed line b between prev and last.
// ok is false when any of the four values is undefined.
func crossing(prev, last Row, a, b Column) (crossDirection, bool) {
	pa, ok1 := prev.Get(a)
	pb, ok2 := prev.Get(b)
	la, ok3 := last.Get(a)
	lb, ok4 := last.Get(b)
	if !(ok1 && ok2 && ok3 && ok4) {
		return noCross, false
	}

	switch {
	case pa < pb && la > lb:
		return crossUp, true
	case pa > pb && la < lb:
		return crossDown, true
	}
	return noCross, true
}
