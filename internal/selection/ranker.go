package selection

import (
	"fmt"
	"sort"

	"github.com/wonny/vnquant/internal/contracts"
)

// Category selects the metric used by TopPerformers
type Category string

const (
	CategoryOverall    Category = "overall"
	CategoryMonthly    Category = "monthly"
	CategoryQuarterly  Category = "quarterly"
	CategoryTechnical  Category = "technical"
	CategoryLowRisk    Category = "low_risk"
	CategoryHighVolume Category = "high_volume"
)

// ParseCategory validates a top performers category
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryOverall, CategoryMonthly, CategoryQuarterly, CategoryTechnical, CategoryLowRisk, CategoryHighVolume:
		return c, nil
	case "":
		return CategoryOverall, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Rank sorts results in place by overall score descending, symbol ascending on ties
// ⭐ SSOT: 스캔 결과 정렬은 여기서만
func Rank(results []contracts.ScanResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].OverallScore != results[j].OverallScore {
			return results[i].OverallScore > results[j].OverallScore
		}
		return results[i].Symbol < results[j].Symbol
	})
}

// TopPerformers returns up to n results ranked by category. The input is not modified.
func TopPerformers(results []contracts.ScanResult, category Category, n int) []contracts.ScanResult {
	out := make([]contracts.ScanResult, 0, len(results))

	for _, r := range results {
		// 변동성이 없으면 저위험 순위에서 제외
		if category == CategoryLowRisk && r.Volatility == nil {
			continue
		}
		out = append(out, r)
	}

	key := func(r contracts.ScanResult) float64 {
		switch category {
		case CategoryMonthly:
			return r.MonthlyReturn
		case CategoryQuarterly:
			return r.QuarterlyReturn
		case CategoryTechnical:
			return r.TechnicalScore
		case CategoryLowRisk:
			return -*r.Volatility
		case CategoryHighVolume:
			return r.VolumeRatio
		default:
			return r.OverallScore
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := key(out[i]), key(out[j])
		if ki != kj {
			return ki > kj
		}
		return out[i].Symbol < out[j].Symbol
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
