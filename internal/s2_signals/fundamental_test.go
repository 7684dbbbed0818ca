package s2_signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/contracts"
)

var f = contracts.F

func TestFundamentalScore(t *testing.T) {
	tests := []struct {
		name   string
		ratios *contracts.Ratios
		want   float64
	}{
		{"absent snapshot", nil, 50},
		{"empty snapshot", &contracts.Ratios{}, 50},
		{
			"every rule at maximum",
			&contracts.Ratios{PE: f(12), PB: f(1.2), ROE: f(22), ROA: f(11), DebtToEquity: f(0.4), EPSGrowth: f(25)},
			100,
		},
		{
			"every rule at minimum",
			&contracts.Ratios{PE: f(45), PB: f(6), ROE: f(3), ROA: f(1), DebtToEquity: f(3), EPSGrowth: f(-5)},
			0,
		},
		{"middle bands", &contracts.Ratios{PE: f(20), PB: f(2), ROE: f(12), ROA: f(6), DebtToEquity: f(0.8), EPSGrowth: f(15)}, 75},
		{"negative pe is neutral", &contracts.Ratios{PE: f(-3)}, 50},
		{"pe between 25 and 40 is neutral", &contracts.Ratios{PE: f(30)}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FundamentalScore(tt.ratios))
		})
	}
}

func TestAnalyzeFundamentals_StrongCompany(t *testing.T) {
	r := &contracts.Ratios{
		PE: f(12), PB: f(1.2), ROE: f(22), ROA: f(11), DebtToEquity: f(0.4), EPSGrowth: f(25),
		NetMargin: f(12), CurrentRatio: f(2.5), QuickRatio: f(0.8), RevenueGrowth: f(8),
	}

	a := AnalyzeFundamentals(r)
	require.NotNil(t, a)

	assert.Equal(t, 100.0, a.Score)
	assert.Equal(t, "HẤP DẪN", a.Valuation.Verdict)
	assert.Equal(t, []contracts.Detail{
		{Grade: contracts.GradeGood, Text: "P/E = 12.00 (Định giá hấp dẫn)"},
		{Grade: contracts.GradeNeutral, Text: "P/B = 1.20 (Hợp lý)"},
	}, a.Valuation.Details)

	assert.Equal(t, "TỐT", a.Profitability.Verdict)
	require.Len(t, a.Profitability.Details, 3)
	assert.Equal(t, "ROE = 22.00% (Tốt)", a.Profitability.Details[0].Text)
	assert.Equal(t, "Biên lợi nhuận = 12.00% (Tốt)", a.Profitability.Details[2].Text)

	// 좋음 2, 나쁨 1
	assert.Equal(t, "TỐT", a.FinancialHealth.Verdict)
	assert.Equal(t, "Thanh khoản nhanh = 0.80 (Cần cải thiện)", a.FinancialHealth.Details[2].Text)

	assert.Equal(t, "TĂNG TRƯỞNG", a.Growth.Verdict)
	assert.Equal(t, "Tăng trưởng doanh thu = 8.00% (Dương)", a.Growth.Details[1].Text)
}

func TestAnalyzeFundamentals_Verdicts(t *testing.T) {
	weak := AnalyzeFundamentals(&contracts.Ratios{
		PE: f(45), PB: f(6), ROE: f(3), DebtToEquity: f(2.5), CurrentRatio: f(0.9),
		EPSGrowth: f(-4), RevenueGrowth: f(-1),
	})
	assert.Equal(t, "ĐẮT", weak.Valuation.Verdict)
	assert.Equal(t, "YẾU", weak.Profitability.Verdict)
	assert.Equal(t, "YẾU", weak.FinancialHealth.Verdict)
	assert.Equal(t, "SUY GIẢM", weak.Growth.Verdict)

	mixed := AnalyzeFundamentals(&contracts.Ratios{EPSGrowth: f(-4), RevenueGrowth: f(5)})
	assert.Equal(t, "ỔN ĐỊNH", mixed.Growth.Verdict)
	assert.Equal(t, "TRUNG LẬP", mixed.Valuation.Verdict)
	assert.Equal(t, "TRUNG LẬP", mixed.FinancialHealth.Verdict)
	assert.Empty(t, mixed.FinancialHealth.Details)

	assert.Nil(t, AnalyzeFundamentals(nil))
}
