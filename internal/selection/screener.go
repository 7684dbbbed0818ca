package selection

import (
	"strings"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

// Screener filters scan results by criteria
// ⭐ SSOT: 스크리닝 조건 판정은 여기서만
type Screener struct {
	logger *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(log *logger.Logger) *Screener {
	return &Screener{logger: log}
}

// Filter keeps results that satisfy every set criterion, preserving order
func (s *Screener) Filter(results []contracts.ScanResult, criteria contracts.Criteria) []contracts.ScanResult {
	passed := make([]contracts.ScanResult, 0, len(results))
	filtered := make(map[string]int) // filter name -> count

	for _, r := range results {
		if reason := checkConditions(r, criteria); reason != "" {
			filtered[reason]++
			continue
		}
		passed = append(passed, r)
	}

	s.logger.WithFields(map[string]interface{}{
		"total_input":  len(results),
		"passed":       len(passed),
		"filtered_out": len(results) - len(passed),
		"filters":      filtered,
	}).Debug("Screening completed")

	return passed
}

// checkConditions returns the first failing filter name, empty when r passes
func checkConditions(r contracts.ScanResult, c contracts.Criteria) string {
	if c.MinOverallScore != nil && r.OverallScore < *c.MinOverallScore {
		return "overall_score"
	}

	// RSI 범위: RSI가 정의되지 않으면 탈락
	if c.RSIMin != nil || c.RSIMax != nil {
		if r.RSI == nil {
			return "rsi"
		}
		if c.RSIMin != nil && *r.RSI < *c.RSIMin {
			return "rsi"
		}
		if c.RSIMax != nil && *r.RSI > *c.RSIMax {
			return "rsi"
		}
	}

	if c.MinMonthlyReturn != nil && r.MonthlyReturn < *c.MinMonthlyReturn {
		return "monthly_return"
	}

	if c.MinVolumeRatio != nil && r.VolumeRatio < *c.MinVolumeRatio {
		return "volume_ratio"
	}

	if len(c.TrendFilter) > 0 && !containsAny(r.Trend, c.TrendFilter) {
		return "trend"
	}

	if len(c.SignalFilter) > 0 && !oneOf(r.Signal, c.SignalFilter) {
		return "signal"
	}

	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
