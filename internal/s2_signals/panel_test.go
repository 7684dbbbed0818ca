package s2_signals

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/contracts"
)

func TestBuildPanel_SMAWindows(t *testing.T) {
	p, err := BuildPanel(seriesFrom("VNM", linear(30, 1, 30), 1000, 0))
	require.NoError(t, err)

	for i := 0; i < 19; i++ {
		assert.True(t, math.IsNaN(p.At(ColSMA20, i)), "sma_20 row %d should be undefined", i)
	}
	assert.InDelta(t, 10.5, p.At(ColSMA20, 19), 1e-9)
	assert.InDelta(t, 20.5, p.At(ColSMA20, 29), 1e-9)
	assert.True(t, math.IsNaN(p.At(ColSMA50, 29)))
	assert.True(t, math.IsNaN(p.At(ColSMA200, 29)))
}

func TestBuildPanel_EMASeededByFirstValue(t *testing.T) {
	closes := []float64{10, 13, 12}
	p, err := BuildPanel(seriesFrom("FPT", closes, 1000, 0))
	require.NoError(t, err)

	alpha := 2.0 / 13.0
	e1 := 10 + alpha*(13-10)
	e2 := e1 + alpha*(12-e1)

	assert.Equal(t, 10.0, p.At(ColEMA12, 0))
	assert.InDelta(t, e1, p.At(ColEMA12, 1), 1e-12)
	assert.InDelta(t, e2, p.At(ColEMA12, 2), 1e-12)

	// EMA는 첫 행부터, macd는 slow window 이후부터
	assert.Equal(t, 10.0, p.At(ColEMA26, 0))
	assert.True(t, math.IsNaN(p.At(ColMACD, 0)))
}

func TestBuildPanel_MACDWindows(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 50 + 3*math.Sin(float64(i)/3)
	}
	p, err := BuildPanel(seriesFrom("VNM", closes, 1000, 0.01))
	require.NoError(t, err)

	assert.True(t, math.IsNaN(p.At(ColMACD, 24)), "macd row 24 should be undefined")
	require.False(t, math.IsNaN(p.At(ColMACD, 25)))
	assert.InDelta(t, p.At(ColEMA12, 25)-p.At(ColEMA26, 25), p.At(ColMACD, 25), 1e-12)

	assert.True(t, math.IsNaN(p.At(ColMACDSignal, 32)), "signal row 32 should be undefined")
	assert.False(t, math.IsNaN(p.At(ColMACDSignal, 33)))
	assert.True(t, math.IsNaN(p.At(ColMACDDiff, 32)))
	assert.False(t, math.IsNaN(p.At(ColMACDDiff, 33)))

	// signal은 첫 macd 값으로 시작하는 EMA9
	alpha := 2.0 / 10.0
	want := p.At(ColMACD, 25)
	for i := 26; i <= 33; i++ {
		want += alpha * (p.At(ColMACD, i) - want)
	}
	assert.InDelta(t, want, p.At(ColMACDSignal, 33), 1e-12)
}

func TestBuildPanel_RSIMonotonic(t *testing.T) {
	falling, err := BuildPanel(seriesFrom("HPG", linear(14, 40, 27), 1000, 0))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(falling.At(ColRSI, 12)))
	assert.Equal(t, 0.0, falling.At(ColRSI, 13))

	rising, err := BuildPanel(seriesFrom("HPG", linear(20, 27, 46), 1000, 0))
	require.NoError(t, err)
	assert.Equal(t, 100.0, rising.At(ColRSI, 19))
}

func TestBuildPanel_OBV(t *testing.T) {
	series := seriesFrom("VIC", []float64{10, 11, 11, 9}, 0, 0)
	for i, v := range []int64{100, 200, 300, 400} {
		series.Bars[i].Volume = v
	}

	p, err := BuildPanel(series)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 300, 300, -100}, p.Series(ColOBV))
}

func TestBuildPanel_Stochastic(t *testing.T) {
	flat, err := BuildPanel(seriesFrom("BID", linear(16, 10, 10), 1000, 0))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(flat.At(ColStochK, 15)), "zero range leaves %K undefined")

	up, err := BuildPanel(seriesFrom("BID", linear(16, 1, 16), 1000, 0))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(up.At(ColStochK, 12)))
	assert.InDelta(t, 100, up.At(ColStochK, 13), 1e-9)
	assert.True(t, math.IsNaN(up.At(ColStochD, 14)))
	assert.InDelta(t, 100, up.At(ColStochD, 15), 1e-9)
}

func TestBuildPanel_BollingerAndVolume(t *testing.T) {
	p, err := BuildPanel(seriesFrom("GAS", linear(25, 10, 10), 1000, 0))
	require.NoError(t, err)

	assert.True(t, math.IsNaN(p.At(ColBBMid, 18)))
	assert.InDelta(t, 10, p.At(ColBBHigh, 24), 1e-9)
	assert.InDelta(t, 10, p.At(ColBBMid, 24), 1e-9)
	assert.InDelta(t, 10, p.At(ColBBLow, 24), 1e-9)
	assert.InDelta(t, 0, p.At(ColBBWidth, 24), 1e-9)

	assert.InDelta(t, 1000, p.At(ColVolumeSMA, 24), 1e-9)
	assert.InDelta(t, 1, p.At(ColVolumeRatio, 24), 1e-9)
}

func TestBuildPanel_ADXOnTrend(t *testing.T) {
	p, err := BuildPanel(seriesFrom("MWG", linear(60, 50, 80), 1000, 0.01))
	require.NoError(t, err)

	assert.True(t, math.IsNaN(p.At(ColADX, 26)))
	assert.True(t, math.IsNaN(p.At(ColADXPos, 13)))
	require.False(t, math.IsNaN(p.At(ColADX, 27)))

	last := p.Latest()
	assert.Greater(t, p.At(ColADX, last), 25.0)
	assert.Greater(t, p.At(ColADXPos, last), p.At(ColADXNeg, last))
}

func TestBuildPanel_NoLookahead(t *testing.T) {
	full := seriesFrom("SAB", linear(120, 30, 45), 5000, 0.02)
	for i := range full.Bars {
		// 지그재그로 만들어 모든 지표가 움직이도록
		if i%3 == 0 {
			b := &full.Bars[i]
			b.Open, b.High, b.Low, b.Close = b.Open*0.97, b.High*0.97, b.Low*0.97, b.Close*0.97
		}
	}

	whole, err := BuildPanel(full)
	require.NoError(t, err)

	cut := 80
	prefix, err := BuildPanel(&contracts.PriceSeries{Symbol: "SAB", Bars: full.Bars[:cut]})
	require.NoError(t, err)

	for _, c := range Columns {
		a, b := prefix.At(c, cut-1), whole.At(c, cut-1)
		if math.IsNaN(a) || math.IsNaN(b) {
			assert.Equal(t, math.IsNaN(a), math.IsNaN(b), "column %s definedness", c)
			continue
		}
		assert.InDelta(t, a, b, 1e-9, "column %s", c)
	}
}

func TestBuildPanel_Immutable(t *testing.T) {
	series := seriesFrom("PLX", linear(30, 10, 20), 1000, 0)
	p, err := BuildPanel(series)
	require.NoError(t, err)

	before := p.At(ColSMA20, 29)
	series.Bars[29].Close = 999

	col := p.Series(ColSMA20)
	col[29] = -1

	assert.Equal(t, before, p.At(ColSMA20, 29))
	assert.Equal(t, 20.0, p.Close(29))
}

func TestBuildPanel_InvalidSeries(t *testing.T) {
	series := seriesFrom("POW", []float64{10, 11, 12}, 1000, 0)
	series.Bars[2].Date = series.Bars[1].Date

	_, err := BuildPanel(series)
	assert.True(t, errors.Is(err, contracts.ErrInvalidSeries))

	_, err = BuildPanel(nil)
	assert.True(t, errors.Is(err, contracts.ErrInvalidSeries))

	withNaN := seriesFrom("POW", []float64{10, 11, 12}, 1000, 0)
	withNaN.Bars[1].Close = math.NaN()
	_, err = BuildPanel(withNaN)
	assert.True(t, errors.Is(err, contracts.ErrInvalidSeries))
}

func TestRowGet(t *testing.T) {
	p, err := BuildPanel(seriesFrom("CTG", linear(3, 10, 12), 1000, 0))
	require.NoError(t, err)

	row := p.Row(2)
	_, ok := row.Get(ColSMA20)
	assert.False(t, ok)

	v, ok := row.Get(ColEMA12)
	assert.True(t, ok)
	assert.Greater(t, v, 10.0)
}
