package s2_signals

import (
	"fmt"

	"github.com/wonny/vnquant/internal/contracts"
)

// FundamentalScore scores a ratios snapshot on a 0..100 scale.
// nil snapshot or nil fields contribute nothing.
func FundamentalScore(r *contracts.Ratios) float64 {
	score := neutralScore
	if r == nil {
		return score
	}

	if r.PE != nil {
		pe := *r.PE
		switch {
		case pe > 0 && pe < 15:
			score += 10
		case pe >= 15 && pe < 25:
			score += 5
		case pe >= 40:
			score -= 10
		}
	}

	if r.PB != nil {
		pb := *r.PB
		switch {
		case pb > 0 && pb < 1.5:
			score += 8
		case pb >= 1.5 && pb < 3:
			score += 4
		case pb >= 5:
			score -= 8
		}
	}

	if r.ROE != nil {
		roe := *r.ROE
		switch {
		case roe > 20:
			score += 10
		case roe > 15:
			score += 7
		case roe > 10:
			score += 4
		case roe < 5:
			score -= 10
		}
	}

	if r.ROA != nil {
		roa := *r.ROA
		switch {
		case roa > 10:
			score += 7
		case roa > 5:
			score += 4
		case roa < 2:
			score -= 7
		}
	}

	if r.DebtToEquity != nil {
		de := *r.DebtToEquity
		switch {
		case de < 0.5:
			score += 8
		case de < 1:
			score += 4
		case de > 2:
			score -= 8
		}
	}

	if r.EPSGrowth != nil {
		g := *r.EPSGrowth
		switch {
		case g > 20:
			score += 7
		case g > 10:
			score += 4
		case g < 0:
			score -= 7
		}
	}

	return clamp(score)
}

// AnalyzeFundamentals derives the categorical verdicts. Returns nil for a nil snapshot.
func AnalyzeFundamentals(r *contracts.Ratios) *contracts.FundamentalAnalysis {
	if r == nil {
		return nil
	}

	score := FundamentalScore(r)
	return &contracts.FundamentalAnalysis{
		Score:           score,
		Valuation:       valuation(r, score),
		Profitability:   profitability(r, score),
		FinancialHealth: financialHealth(r),
		Growth:          growth(r),
	}
}

func detail(g contracts.Grade, format string, args ...interface{}) contracts.Detail {
	return contracts.Detail{Grade: g, Text: fmt.Sprintf(format, args...)}
}

func byScore(score float64, good, bad string) string {
	switch {
	case score > 65:
		return good
	case score < 40:
		return bad
	}
	return "TRUNG LẬP"
}

func valuation(r *contracts.Ratios, score float64) contracts.AnalysisBlock {
	block := contracts.AnalysisBlock{Details: []contracts.Detail{}}

	if r.PE != nil {
		pe := *r.PE
		switch {
		case pe > 0 && pe < 15:
			block.Details = append(block.Details, detail(contracts.GradeGood, "P/E = %.2f (Định giá hấp dẫn)", pe))
		case pe >= 15 && pe < 25:
			block.Details = append(block.Details, detail(contracts.GradeNeutral, "P/E = %.2f (Định giá hợp lý)", pe))
		case pe >= 25:
			block.Details = append(block.Details, detail(contracts.GradeBad, "P/E = %.2f (Định giá cao)", pe))
		}
	}

	if r.PB != nil {
		pb := *r.PB
		switch {
		case pb > 0 && pb < 1:
			block.Details = append(block.Details, detail(contracts.GradeGood, "P/B = %.2f (Giá rẻ so với giá trị sổ sách)", pb))
		case pb >= 1 && pb < 3:
			block.Details = append(block.Details, detail(contracts.GradeNeutral, "P/B = %.2f (Hợp lý)", pb))
		case pb >= 3:
			block.Details = append(block.Details, detail(contracts.GradeBad, "P/B = %.2f (Cao)", pb))
		}
	}

	block.Verdict = byScore(score, "HẤP DẪN", "ĐẮT")
	return block
}

// tiered grades v as good above hi, neutral above mid, bad otherwise
func tiered(label string, v, hi, mid float64, unit string) contracts.Detail {
	switch {
	case v > hi:
		return detail(contracts.GradeGood, "%s = %.2f%s (Tốt)", label, v, unit)
	case v > mid:
		return detail(contracts.GradeNeutral, "%s = %.2f%s (Trung bình)", label, v, unit)
	}
	return detail(contracts.GradeBad, "%s = %.2f%s (Thấp)", label, v, unit)
}

func profitability(r *contracts.Ratios, score float64) contracts.AnalysisBlock {
	block := contracts.AnalysisBlock{Details: []contracts.Detail{}}

	if r.ROE != nil {
		block.Details = append(block.Details, tiered("ROE", *r.ROE, 15, 10, "%"))
	}
	if r.ROA != nil {
		block.Details = append(block.Details, tiered("ROA", *r.ROA, 5, 2, "%"))
	}
	if r.NetMargin != nil {
		block.Details = append(block.Details, tiered("Biên lợi nhuận", *r.NetMargin, 10, 5, "%"))
	}

	block.Verdict = byScore(score, "TỐT", "YẾU")
	return block
}

func financialHealth(r *contracts.Ratios) contracts.AnalysisBlock {
	block := contracts.AnalysisBlock{Details: []contracts.Detail{}}

	if r.DebtToEquity != nil {
		de := *r.DebtToEquity
		switch {
		case de < 0.5:
			block.Details = append(block.Details, detail(contracts.GradeGood, "Nợ/Vốn CSH = %.2f (Thấp, tốt)", de))
		case de < 1:
			block.Details = append(block.Details, detail(contracts.GradeNeutral, "Nợ/Vốn CSH = %.2f (Trung bình)", de))
		default:
			block.Details = append(block.Details, detail(contracts.GradeBad, "Nợ/Vốn CSH = %.2f (Cao)", de))
		}
	}

	if r.CurrentRatio != nil {
		cr := *r.CurrentRatio
		switch {
		case cr > 2:
			block.Details = append(block.Details, detail(contracts.GradeGood, "Thanh khoản hiện hành = %.2f (Tốt)", cr))
		case cr > 1:
			block.Details = append(block.Details, detail(contracts.GradeNeutral, "Thanh khoản hiện hành = %.2f (Chấp nhận được)", cr))
		default:
			block.Details = append(block.Details, detail(contracts.GradeBad, "Thanh khoản hiện hành = %.2f (Yếu)", cr))
		}
	}

	if r.QuickRatio != nil {
		qr := *r.QuickRatio
		if qr > 1 {
			block.Details = append(block.Details, detail(contracts.GradeGood, "Thanh khoản nhanh = %.2f (Tốt)", qr))
		} else {
			block.Details = append(block.Details, detail(contracts.GradeBad, "Thanh khoản nhanh = %.2f (Cần cải thiện)", qr))
		}
	}

	good, bad := countGrades(block.Details)
	switch {
	case good > bad:
		block.Verdict = "TỐT"
	case bad > good:
		block.Verdict = "YẾU"
	default:
		block.Verdict = "TRUNG LẬP"
	}
	return block
}

func growth(r *contracts.Ratios) contracts.AnalysisBlock {
	block := contracts.AnalysisBlock{Details: []contracts.Detail{}}

	rate := func(label string, v, high float64) contracts.Detail {
		switch {
		case v > high:
			return detail(contracts.GradeGood, "%s = %.2f%% (Cao)", label, v)
		case v > 0:
			return detail(contracts.GradeNeutral, "%s = %.2f%% (Dương)", label, v)
		}
		return detail(contracts.GradeBad, "%s = %.2f%% (Âm)", label, v)
	}

	if r.EPSGrowth != nil {
		block.Details = append(block.Details, rate("Tăng trưởng EPS", *r.EPSGrowth, 20))
	}
	if r.RevenueGrowth != nil {
		block.Details = append(block.Details, rate("Tăng trưởng doanh thu", *r.RevenueGrowth, 15))
	}

	// 성장 라인은 good/neutral 모두 양(+)의 성장
	negative := 0
	for _, d := range block.Details {
		if d.Grade == contracts.GradeBad {
			negative++
		}
	}
	positive := len(block.Details) - negative

	switch {
	case positive > 0 && negative == 0:
		block.Verdict = "TĂNG TRƯỞNG"
	case negative > positive:
		block.Verdict = "SUY GIẢM"
	default:
		block.Verdict = "ỔN ĐỊNH"
	}
	return block
}

func countGrades(details []contracts.Detail) (good, bad int) {
	for _, d := range details {
		switch d.Grade {
		case contracts.GradeGood:
			good++
		case contracts.GradeBad:
			bad++
		}
	}
	return good, bad
}
