package s2_signals

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
)

// Column names an indicator column of a Panel
type Column string

const (
	ColSMA20       Column = "sma_20"
	ColSMA50       Column = "sma_50"
	ColSMA200      Column = "sma_200"
	ColEMA12       Column = "ema_12"
	ColEMA26       Column = "ema_26"
	ColRSI         Column = "rsi"
	ColMACD        Column = "macd"
	ColMACDSignal  Column = "macd_signal"
	ColMACDDiff    Column = "macd_diff"
	ColBBHigh      Column = "bb_high"
	ColBBMid       Column = "bb_mid"
	ColBBLow       Column = "bb_low"
	ColBBWidth     Column = "bb_width"
	ColADX         Column = "adx"
	ColADXPos      Column = "adx_pos"
	ColADXNeg      Column = "adx_neg"
	ColVolumeSMA   Column = "volume_sma"
	ColVolumeRatio Column = "volume_ratio"
	ColOBV         Column = "obv"
	ColStochK      Column = "stoch_k"
	ColStochD      Column = "stoch_d"
)

// Columns lists every indicator column in build order
var Columns = []Column{
	ColSMA20, ColSMA50, ColSMA200, ColEMA12, ColEMA26, ColRSI,
	ColMACD, ColMACDSignal, ColMACDDiff,
	ColBBHigh, ColBBMid, ColBBLow, ColBBWidth,
	ColADX, ColADXPos, ColADXNeg,
	ColVolumeSMA, ColVolumeRatio, ColOBV, ColStochK, ColStochD,
}

// Panel is a price series extended with row-aligned indicator columns.
// NaN marks an undefined value. A Panel is never mutated after construction.
type Panel struct {
	Symbol string
	bars   []contracts.Bar
	cols   map[Column][]float64
}

// Len returns the number of rows
func (p *Panel) Len() int {
	return len(p.bars)
}

// Bar returns the bar at row i
func (p *Panel) Bar(i int) contracts.Bar {
	return p.bars[i]
}

// Close returns the close at row i
func (p *Panel) Close(i int) float64 {
	return p.bars[i].Close
}

// Closes returns a copy of the close prices
func (p *Panel) Closes() []float64 {
	out := make([]float64, len(p.bars))
	for i, b := range p.bars {
		out[i] = b.Close
	}
	return out
}

// At returns column c at row i, NaN when out of range or not computed
func (p *Panel) At(c Column, i int) float64 {
	col, ok := p.cols[c]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Series returns a copy of column c
func (p *Panel) Series(c Column) []float64 {
	col := p.cols[c]
	out := make([]float64, len(col))
	copy(out, col)
	return out
}

// Row is a snapshot of one panel row
type Row struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Values map[Column]float64
}

// Get returns the value and whether it is defined
func (r Row) Get(c Column) (float64, bool) {
	v, ok := r.Values[c]
	if !ok || !defined(v) {
		return math.NaN(), false
	}
	return v, true
}

// Row returns a snapshot of row i
func (p *Panel) Row(i int) Row {
	b := p.bars[i]
	row := Row{
		Date: b.Date, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		Values: make(map[Column]float64, len(p.cols)),
	}
	for c, col := range p.cols {
		row.Values[c] = col[i]
	}
	return row
}

// Latest returns the last row index, -1 when empty
func (p *Panel) Latest() int {
	return len(p.bars) - 1
}

// with returns a new panel carrying the extra columns
func (p *Panel) with(extra map[Column][]float64) *Panel {
	cols := make(map[Column][]float64, len(p.cols)+len(extra))
	for c, v := range p.cols {
		cols[c] = v
	}
	for c, v := range extra {
		cols[c] = v
	}
	return &Panel{Symbol: p.Symbol, bars: p.bars, cols: cols}
}

// step derives new columns from the panel built so far
type step func(p *Panel, in inputs) map[Column][]float64

type inputs struct {
	open, high, low, close, volume []float64
}

// pipeline is the fixed build order; later steps read columns of earlier ones
var pipeline = []step{
	movingAverages,
	relativeStrength,
	macdLines,
	bollingerBands,
	directionalMovement,
	volumeIndicators,
	stochasticOscillator,
}

// BuildPanel computes every indicator column for the series.
// ⭐ SSOT: 지표 패널 생성은 여기서만
func BuildPanel(series *contracts.PriceSeries) (*Panel, error) {
	if series == nil {
		return nil, fmt.Errorf("%w: nil series", contracts.ErrInvalidSeries)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	bars := make([]contracts.Bar, len(series.Bars))
	copy(bars, series.Bars)

	in := inputs{
		open:   make([]float64, len(bars)),
		high:   make([]float64, len(bars)),
		low:    make([]float64, len(bars)),
		close:  make([]float64, len(bars)),
		volume: make([]float64, len(bars)),
	}
	for i, b := range bars {
		in.open[i] = b.Open
		in.high[i] = b.High
		in.low[i] = b.Low
		in.close[i] = b.Close
		in.volume[i] = float64(b.Volume)
	}

	p := &Panel{Symbol: series.Symbol, bars: bars, cols: map[Column][]float64{}}
	for _, s := range pipeline {
		p = p.with(s(p, in))
	}
	return p, nil
}

func movingAverages(_ *Panel, in inputs) map[Column][]float64 {
	return map[Column][]float64{
		ColSMA20:  sma(in.close, 20),
		ColSMA50:  sma(in.close, 50),
		ColSMA200: sma(in.close, 200),
		ColEMA12:  ema(in.close, 12),
		ColEMA26:  ema(in.close, 26),
	}
}

func relativeStrength(_ *Panel, in inputs) map[Column][]float64 {
	return map[Column][]float64{ColRSI: wilderRSI(in.close, 14)}
}

// macd is undefined until the slow EMA has a full window; the signal line
// seeds at the first macd value and needs macdSignalSpan observations.
const (
	macdSlowSpan   = 26
	macdSignalSpan = 9
)

func macdLines(p *Panel, _ inputs) map[Column][]float64 {
	firstLine := macdSlowSpan - 1
	line := maskBefore(diff(p.cols[ColEMA12], p.cols[ColEMA26]), firstLine)
	signal := maskBefore(ema(line, macdSignalSpan), firstLine+macdSignalSpan-1)
	return map[Column][]float64{
		ColMACD:       line,
		ColMACDSignal: signal,
		ColMACDDiff:   diff(line, signal),
	}
}

func bollingerBands(_ *Panel, in inputs) map[Column][]float64 {
	upper, middle, lower := bollinger(in.close, 20, 2)
	return map[Column][]float64{
		ColBBHigh:  upper,
		ColBBMid:   middle,
		ColBBLow:   lower,
		ColBBWidth: ratio(diff(upper, lower), middle),
	}
}

func directionalMovement(_ *Panel, in inputs) map[Column][]float64 {
	adx, pos, neg := directional(in.high, in.low, in.close, 14)
	return map[Column][]float64{ColADX: adx, ColADXPos: pos, ColADXNeg: neg}
}

func volumeIndicators(_ *Panel, in inputs) map[Column][]float64 {
	volSMA := sma(in.volume, 20)
	return map[Column][]float64{
		ColVolumeSMA:   volSMA,
		ColVolumeRatio: ratio(in.volume, volSMA),
		ColOBV:         onBalanceVolume(in.close, in.volume),
	}
}

func stochasticOscillator(_ *Panel, in inputs) map[Column][]float64 {
	k, d := stochastic(in.high, in.low, in.close, 14, 3)
	return map[Column][]float64{ColStochK: k, ColStochD: d}
}
