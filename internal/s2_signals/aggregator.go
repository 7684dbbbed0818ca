package s2_signals

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/wonny/vnquant/internal/contracts"
)

// 종합 점수 가중치 (고정 상수)
const (
	technicalWeight   = 0.6
	fundamentalWeight = 0.4
)

// OverallScore blends the technical and fundamental scores
func OverallScore(technical, fundamental float64) float64 {
	return technical*technicalWeight + fundamental*fundamentalWeight
}

// Label maps an overall score to a recommendation label
func Label(overall float64) string {
	switch {
	case overall >= 70:
		return contracts.LabelStrongBuy
	case overall >= 60:
		return contracts.LabelBuy
	case overall >= 45:
		return contracts.LabelHold
	case overall >= 35:
		return contracts.LabelSell
	default:
		return contracts.LabelStrongSell
	}
}

// vnd renders a price quoted in thousands as whole VND with thousands separators
func vnd(price float64) string {
	return humanize.Comma(int64(math.Round(price*1000))) + " VNĐ"
}

// EntryPoints lists buy levels for the latest row in evaluation order
func EntryPoints(p *Panel) []contracts.EntryPoint {
	entries := []contracts.EntryPoint{}
	if p.Len() < 2 {
		return entries
	}

	last := p.Row(p.Latest())
	c := last.Close

	add := func(price float64, reason string) {
		entries = append(entries, contracts.EntryPoint{Type: contracts.EntryBuy, Price: price, Reason: reason})
	}

	if bbLow, ok := last.Get(ColBBLow); ok && c <= bbLow*1.02 {
		add(bbLow, fmt.Sprintf("Support Bollinger Band dưới (%s)", vnd(bbLow)))
	}
	if sma20, ok := last.Get(ColSMA20); ok && c <= sma20*1.03 {
		add(sma20, fmt.Sprintf("Support SMA 20 (%s)", vnd(sma20)))
	}
	if sma50, ok := last.Get(ColSMA50); ok && c <= sma50*1.05 {
		add(sma50, fmt.Sprintf("Support SMA 50 (%s)", vnd(sma50)))
	}
	if rsi, ok := last.Get(ColRSI); ok && rsi < rsiOversold {
		add(c, fmt.Sprintf("RSI quá bán (%.1f) - Cơ hội mua", rsi))
	}
	if k, ok := last.Get(ColStochK); ok && k < stochOversold {
		add(c, fmt.Sprintf("Stochastic quá bán (%.1f) - Tín hiệu mua", k))
	}

	return entries
}

// ExitPoints lists take-profit then stop-loss levels for the latest row
func ExitPoints(p *Panel) []contracts.ExitPoint {
	exits := []contracts.ExitPoint{}
	if p.Len() < 2 {
		return exits
	}

	last := p.Row(p.Latest())
	c := last.Close

	takeProfit := func(price, pct float64, reason string) {
		exits = append(exits, contracts.ExitPoint{
			Type: contracts.ExitTakeProfit, Price: price, ProfitPct: contracts.F(pct), Reason: reason,
		})
	}
	stopLoss := func(price, pct float64, reason string) {
		exits = append(exits, contracts.ExitPoint{
			Type: contracts.ExitStopLoss, Price: price, LossPct: contracts.F(pct), Reason: reason,
		})
	}

	if bbHigh, ok := last.Get(ColBBHigh); ok {
		if pct := (bbHigh - c) / c * 100; pct > 0 {
			takeProfit(bbHigh, pct, fmt.Sprintf("Resistance Bollinger Band trên (+%.1f%%)", pct))
		}
	}
	if rsi, ok := last.Get(ColRSI); ok && rsi > rsiOverbought {
		takeProfit(c, 0, fmt.Sprintf("RSI quá mua (%.1f) - Nên chốt lời", rsi))
	}
	if k, ok := last.Get(ColStochK); ok && k > stochOverbought {
		takeProfit(c, 0, fmt.Sprintf("Stochastic quá mua (%.1f) - Tín hiệu bán", k))
	}

	if sma20, ok := last.Get(ColSMA20); ok {
		stop := sma20 * 0.97
		pct := (stop - c) / c * 100
		stopLoss(stop, pct, fmt.Sprintf("Stop Loss: 3%% dưới SMA 20 (%.1f%%)", pct))
	}

	emergency := c * 0.95
	stopLoss(emergency, -5.0, fmt.Sprintf("Stop Loss khẩn cấp: -5%% (%s)", vnd(emergency)))

	return exits
}

// RiskRewardFor pairs the first take-profit with the first stop-loss.
// Returns nil unless the position has both a positive upside and a positive downside.
func RiskRewardFor(close float64, exits []contracts.ExitPoint) *contracts.RiskReward {
	var tp, sl *contracts.ExitPoint
	for i := range exits {
		switch exits[i].Type {
		case contracts.ExitTakeProfit:
			if tp == nil {
				tp = &exits[i]
			}
		case contracts.ExitStopLoss:
			if sl == nil {
				sl = &exits[i]
			}
		}
	}
	if tp == nil || sl == nil {
		return nil
	}

	profit := tp.Price - close
	loss := close - sl.Price
	if loss <= 0 || profit <= 0 {
		return nil
	}

	return &contracts.RiskReward{
		Ratio:           profit / loss,
		PotentialProfit: profit,
		PotentialLoss:   loss,
		TakeProfit:      tp.Price,
		StopLoss:        sl.Price,
	}
}

// Timeframes classifies suitable holding horizons
func Timeframes(technical, fundamental float64, trend string, hasFundamentals bool) []string {
	var out []string

	if technical >= 65 {
		out = append(out, contracts.TimeframeShort)
	}
	if technical >= 60 && strings.Contains(trend, contracts.TrendUp) {
		out = append(out, contracts.TimeframeMedium)
	}
	if hasFundamentals && fundamental >= 60 && technical >= 55 {
		out = append(out, contracts.TimeframeLong)
	}

	if len(out) == 0 {
		return []string{contracts.TimeframeUnsuitable}
	}
	return out
}
