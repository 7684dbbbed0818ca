package selection

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wonny/vnquant/internal/contracts"
)

var csvHeader = []string{
	"symbol", "name", "exchange", "date", "price", "volume",
	"overall_score", "technical_score", "fundamental_score", "signal", "trend",
	"monthly_return", "quarterly_return", "volatility", "volume_ratio",
	"high_52w", "low_52w", "dist_from_high", "dist_from_low",
	"rsi", "macd", "sma_20", "sma_50", "bb_position",
	"entry_points_count", "exit_points_count", "risk_reward_ratio", "investment_timeframe",
}

// WriteCSV writes scan results as CSV, one row per result in the given order.
// Undefined metrics are written as empty cells.
func WriteCSV(w io.Writer, results []contracts.ScanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		rr := ""
		if r.RiskReward != nil {
			rr = num(r.RiskReward.Ratio)
		}
		record := []string{
			r.Symbol, r.Name, r.Exchange, r.Date.Format("2006-01-02"),
			num(r.Price), strconv.FormatInt(r.Volume, 10),
			num(r.OverallScore), num(r.TechnicalScore), num(r.FundamentalScore), r.Signal, r.Trend,
			num(r.MonthlyReturn), num(r.QuarterlyReturn), optNum(r.Volatility), num(r.VolumeRatio),
			num(r.High52W), num(r.Low52W), num(r.DistFromHigh), num(r.DistFromLow),
			optNum(r.RSI), optNum(r.MACD), optNum(r.SMA20), optNum(r.SMA50), optNum(r.BBPosition),
			strconv.Itoa(r.EntryPointCount), strconv.Itoa(r.ExitPointCount), rr,
			strings.Join(r.Timeframes, "; "),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Symbol, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}
