package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/s2_signals"
	"github.com/wonny/vnquant/pkg/logger"
)

func TestPeriodReturn(t *testing.T) {
	closes := ramp(30, 100, 129)

	// 21봉 전 종가 대비
	assert.InDelta(t, (129.0-109.0)/109.0*100, periodReturn(closes, 21), 1e-9)
	// 시리즈가 짧으면 첫 종가 대비
	assert.InDelta(t, 29.0, periodReturn(closes, 63), 1e-9)
	assert.Equal(t, 0.0, periodReturn(nil, 21))
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Nil(t, annualizedVolatility([]float64{10, 11}, 20))

	// 등락률이 일정하면 변동성 0
	flat := []float64{100, 101, 102.01, 103.0301}
	v := annualizedVolatility(flat, 20)
	require.NotNil(t, v)
	assert.InDelta(t, 0, *v, 1e-9)

	alt := []float64{100, 110, 100, 110}
	v = annualizedVolatility(alt, 20)
	require.NotNil(t, v)
	r := []float64{0.1, 100.0/110.0 - 1, 0.1}
	mean := (r[0] + r[1] + r[2]) / 3
	ss := 0.0
	for _, x := range r {
		ss += (x - mean) * (x - mean)
	}
	assert.InDelta(t, math.Sqrt(ss/2)*math.Sqrt(252)*100, *v, 1e-9)
}

func TestBuildResult_Metrics(t *testing.T) {
	series := seriesOf("VNM", ramp(300, 50, 80), 1000)
	series.Bars[299].Volume = 2000

	p, err := s2_signals.BuildPanel(series)
	require.NoError(t, err)
	eval := s2_signals.NewEvaluator(logger.Nop()).EvaluatePanel(p, nil)

	res := buildResult(p, eval)

	assert.Equal(t, "VNM", res.Symbol)
	assert.Equal(t, 80.0, res.Price)
	assert.InDelta(t, 2000.0/1050.0, res.VolumeRatio, 1e-9)

	// 52주 고가/저가는 최근 252봉의 고가/저가
	assert.InDelta(t, 80*1.01, res.High52W, 1e-9)
	assert.InDelta(t, series.Bars[48].Low, res.Low52W, 1e-9)
	assert.InDelta(t, (80-80*1.01)/(80*1.01)*100, res.DistFromHigh, 1e-9)

	require.NotNil(t, res.RSI)
	assert.Equal(t, 100.0, *res.RSI)
	require.NotNil(t, res.SMA50)
	assert.Greater(t, res.PriceVsSMA20, 0.0)
	require.NotNil(t, res.BBPosition)
	assert.Greater(t, *res.BBPosition, 0.5)
	assert.Equal(t, len(eval.ExitPoints), res.ExitPointCount)
	assert.Same(t, eval, res.Evaluation)
}

func TestBuildResult_ShortSeries(t *testing.T) {
	p, err := s2_signals.BuildPanel(seriesOf("FPT", []float64{100, 101}, 0))
	require.NoError(t, err)
	res := buildResult(p, s2_signals.NewEvaluator(logger.Nop()).EvaluatePanel(p, nil))

	assert.Nil(t, res.RSI)
	assert.Nil(t, res.BBPosition)
	assert.Nil(t, res.Volatility)
	assert.Equal(t, 0.0, res.PriceVsSMA20)
	assert.Equal(t, 1.0, res.VolumeRatio)
	assert.InDelta(t, 1.0, res.MonthlyReturn, 1e-9)
}
