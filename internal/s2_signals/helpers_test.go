package s2_signals

import (
	"math"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

var baseDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// seriesFrom builds bars with high/low at ±spread around the close
func seriesFrom(symbol string, closes []float64, volume int64, spread float64) *contracts.PriceSeries {
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.Bar{
			Date:   baseDate.AddDate(0, 0, i),
			Open:   c,
			High:   c * (1 + spread),
			Low:    c * (1 - spread),
			Close:  c,
			Volume: volume,
		}
	}
	return &contracts.PriceSeries{Symbol: symbol, Bars: bars}
}

func linear(n int, from, to float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return out
}

// manualPanel builds a panel with hand-set columns; missing columns are NaN
func manualPanel(closes []float64, cols map[Column][]float64) *Panel {
	series := seriesFrom("TEST", closes, 1000, 0)
	p := &Panel{Symbol: "TEST", bars: series.Bars, cols: map[Column][]float64{}}
	for _, c := range Columns {
		if v, ok := cols[c]; ok {
			p.cols[c] = v
		} else {
			p.cols[c] = nanSlice(len(closes))
		}
	}
	return p
}

var nan = math.NaN()

func testLogger() *logger.Logger {
	return logger.Nop()
}
