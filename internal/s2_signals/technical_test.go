package s2_signals

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/contracts"
)

func TestTechnicalScore_AllBullishRules(t *testing.T) {
	p := manualPanel([]float64{10, 11}, map[Column][]float64{
		ColRSI:        {nan, 25},
		ColMACD:       {nan, 1.2},
		ColMACDSignal: {nan, 1.0},
		ColSMA20:      {nan, 10.5},
		ColSMA50:      {nan, 10},
		ColADX:        {nan, 30},
		ColADXPos:     {nan, 28},
		ColADXNeg:     {nan, 12},
		ColStochK:     {nan, 15},
	})

	// 50 + 10 + 8 + 12 + 5 + 5
	assert.Equal(t, 90.0, TechnicalScore(p))
}

func TestTechnicalScore_AllBearishRules(t *testing.T) {
	p := manualPanel([]float64{10, 9}, map[Column][]float64{
		ColRSI:        {nan, 75},
		ColMACD:       {nan, -1},
		ColMACDSignal: {nan, 0},
		ColSMA20:      {nan, 9.5},
		ColSMA50:      {nan, 10},
		ColADX:        {nan, 30},
		ColADXPos:     {nan, 10},
		ColADXNeg:     {nan, 20},
		ColStochK:     {nan, 85},
	})

	assert.Equal(t, 10.0, TechnicalScore(p))
}

func TestTechnicalScore_UndefinedColumnsAreSkipped(t *testing.T) {
	p := manualPanel([]float64{10, 11}, nil)
	assert.Equal(t, 50.0, TechnicalScore(p))

	// ADX가 25 초과여도 DI가 없으면 규칙 생략
	p = manualPanel([]float64{10, 11}, map[Column][]float64{
		ColRSI: {nan, 50},
		ColADX: {nan, 40},
	})
	assert.Equal(t, 55.0, TechnicalScore(p))
}

func TestTechnicalScore_SingleRow(t *testing.T) {
	p, err := BuildPanel(seriesFrom("VNM", []float64{57.6}, 1000, 0.01))
	require.NoError(t, err)

	assert.Equal(t, 50.0, TechnicalScore(p))
	assert.Equal(t, contracts.TrendInsufficient, Trend(p))
	assert.Empty(t, DetectSignals(p))
}

func TestTrendLabels(t *testing.T) {
	closes := linear(50, 10, 20)
	tests := []struct {
		name  string
		close float64
		sma20 float64
		sma50 float64
		adx   float64
		want  string
	}{
		{"strong up strong adx", 20, 19, 18, 30, "TĂNG MẠNH (Mạnh)"},
		{"up weak adx", 20, 19, 19.5, 20, "TĂNG (Yếu)"},
		{"strong down", 17, 18, 19, nan, "GIẢM MẠNH"},
		{"down", 17, 18, 17.5, 10, "GIẢM (Yếu)"},
		{"sideways", 18, 18, 17, 10, "SIDEWAY (Yếu)"},
		{"undetermined", 18, nan, 17, nan, "KHÔNG XÁC ĐỊNH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := append([]float64{}, closes...)
			c[49] = tt.close
			col := func(v float64) []float64 {
				s := nanSlice(50)
				s[49] = v
				return s
			}
			p := manualPanel(c, map[Column][]float64{
				ColSMA20: col(tt.sma20),
				ColSMA50: col(tt.sma50),
				ColADX:   col(tt.adx),
			})
			assert.Equal(t, tt.want, Trend(p))
		})
	}

	short := manualPanel(linear(49, 10, 20), nil)
	assert.Equal(t, contracts.TrendInsufficient, Trend(short))
}

func TestDetectSignals_Crossovers(t *testing.T) {
	p := manualPanel([]float64{10, 10.2}, map[Column][]float64{
		ColMACD:       {-0.1, 0.1},
		ColMACDSignal: {0, 0},
		ColSMA20:      {9.9, 10.1},
		ColSMA50:      {10, 10},
	})

	signals := DetectSignals(p)
	require.Len(t, signals, 2)
	assert.Equal(t, contracts.SignalEvent{
		Type: contracts.Buy, Indicator: contracts.IndicatorMACD, Strength: contracts.Medium,
		Reason: "MACD cắt lên đường tín hiệu",
	}, signals[0])
	assert.Equal(t, contracts.SignalEvent{
		Type: contracts.Buy, Indicator: contracts.IndicatorMA, Strength: contracts.Strong,
		Reason: "Golden Cross: SMA 20 cắt lên SMA 50",
	}, signals[1])

	down := manualPanel([]float64{10, 9.8}, map[Column][]float64{
		ColMACD:       {0.1, -0.1},
		ColMACDSignal: {0, 0},
		ColSMA20:      {10.1, 9.9},
		ColSMA50:      {10, 10},
	})
	signals = DetectSignals(down)
	require.Len(t, signals, 2)
	assert.Equal(t, "MACD cắt xuống đường tín hiệu", signals[0].Reason)
	assert.Equal(t, contracts.Sell, signals[1].Type)
	assert.Equal(t, "Death Cross: SMA 20 cắt xuống SMA 50", signals[1].Reason)
}

func TestDetectSignals_ThresholdEvents(t *testing.T) {
	p := manualPanel([]float64{10, 9}, map[Column][]float64{
		ColRSI:         {nan, 25.4},
		ColBBLow:       {nan, 9.5},
		ColBBHigh:      {nan, 11},
		ColStochK:      {nan, 12.3},
		ColVolumeRatio: {nan, 2},
	})

	signals := DetectSignals(p)
	require.Len(t, signals, 4)

	assert.Equal(t, contracts.IndicatorRSI, signals[0].Indicator)
	assert.Equal(t, contracts.Strong, signals[0].Strength)
	assert.Equal(t, "RSI quá bán (25.40)", signals[0].Reason)

	assert.Equal(t, "Giá chạm dải Bollinger dưới", signals[1].Reason)
	assert.Equal(t, "Stochastic quá bán (12.30)", signals[2].Reason)

	assert.Equal(t, contracts.Sell, signals[3].Type)
	assert.Equal(t, "Khối lượng tăng mạnh (2.00x) với giá giảm", signals[3].Reason)
}

func TestDetectSignals_UndefinedPreviousRowSkipsCross(t *testing.T) {
	p := manualPanel([]float64{10, 10.2}, map[Column][]float64{
		ColMACD:       {nan, 0.1},
		ColMACDSignal: {0, 0},
	})
	assert.Empty(t, DetectSignals(p))
}

func TestScenarioRisingSeries(t *testing.T) {
	series := seriesFrom("VNM", linear(252, 50, 60), 1_000_000, 0.01)
	p, err := BuildPanel(series)
	require.NoError(t, err)

	last := p.Latest()
	assert.Less(t, p.At(ColSMA20, last), p.Close(last))
	assert.Greater(t, TechnicalScore(p), 50.0)
	assert.True(t, strings.Contains(Trend(p), contracts.TrendUp))
}

func TestScenarioSidewaysSeries(t *testing.T) {
	cycle := []float64{102, 101, 100, 101}
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = cycle[i%4]
	}
	series := seriesFrom("FPT", closes, 500_000, 0)
	for i := range series.Bars {
		series.Bars[i].High = closes[i] + 0.5
		series.Bars[i].Low = closes[i] - 0.5
	}

	eval, err := NewEvaluator(testLogger()).Evaluate(series, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(eval.Trend, contracts.TrendSideways), eval.Trend)
	assert.InDelta(t, 50, eval.OverallScore, 10)
}

func TestTechnicalScore_ShortSeriesSkipsMACD(t *testing.T) {
	p, err := BuildPanel(seriesFrom("VNM", linear(30, 50, 40), 1000, 0))
	require.NoError(t, err)

	last := p.Latest()
	assert.False(t, math.IsNaN(p.At(ColMACD, last)))
	assert.True(t, math.IsNaN(p.At(ColMACDSignal, last)), "signal needs 34 bars")

	// signal이 정의되면 MACD 규칙이 ±8 반영됨
	n := p.Len()
	bullish := p.with(map[Column][]float64{ColMACDSignal: filled(n, p.At(ColMACD, last)-1)})
	bearish := p.with(map[Column][]float64{ColMACDSignal: filled(n, p.At(ColMACD, last)+1)})

	base := TechnicalScore(p)
	assert.Equal(t, clamp(base+8), TechnicalScore(bullish))
	assert.Equal(t, clamp(base-8), TechnicalScore(bearish))
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
