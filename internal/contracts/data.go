package contracts

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidSeries is returned for unordered dates or non-positive / non-finite prices
	ErrInvalidSeries = errors.New("invalid series")

	// ErrNoData means a provider or the cache has nothing for the symbol
	ErrNoData = errors.New("no data")
)

// Bar is one daily OHLCV observation.
// Prices are quoted in thousands of VND.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is an ordered daily series for one symbol
// ⭐ SSOT: S0 → S2 가격 데이터 전달
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar
func (s *PriceSeries) Last() (Bar, bool) {
	if s.Len() == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Validate checks ordering and price sanity. An empty series is valid.
func (s *PriceSeries) Validate() error {
	for i, b := range s.Bars {
		if !positive(b.Open) || !positive(b.High) || !positive(b.Low) || !positive(b.Close) {
			return fmt.Errorf("%w: %s bar %d (%s) has non-positive or non-finite price",
				ErrInvalidSeries, s.Symbol, i, b.Date.Format("2006-01-02"))
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: %s bar %d has negative volume", ErrInvalidSeries, s.Symbol, i)
		}
		if i > 0 && !b.Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("%w: %s dates not strictly increasing at %s",
				ErrInvalidSeries, s.Symbol, b.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// positive is false for NaN and ±Inf as well as values <= 0
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Closes returns the close column
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Tail returns a series with at most the last n bars (shares the backing array)
func (s *PriceSeries) Tail(n int) *PriceSeries {
	if n >= len(s.Bars) {
		return s
	}
	return &PriceSeries{Symbol: s.Symbol, Bars: s.Bars[len(s.Bars)-n:]}
}

// Since returns the bars dated on or after from
func (s *PriceSeries) Since(from time.Time) *PriceSeries {
	for i, b := range s.Bars {
		if !b.Date.Before(from) {
			return &PriceSeries{Symbol: s.Symbol, Bars: s.Bars[i:]}
		}
	}
	return &PriceSeries{Symbol: s.Symbol}
}

// Ratios is a fundamental snapshot. A nil field means unknown.
type Ratios struct {
	Symbol        string     `json:"symbol"`
	AsOf          *time.Time `json:"as_of,omitempty"`
	PE            *float64   `json:"pe,omitempty"`
	PB            *float64   `json:"pb,omitempty"`
	ROE           *float64   `json:"roe,omitempty"` // %
	ROA           *float64   `json:"roa,omitempty"` // %
	DebtToEquity  *float64   `json:"debt_to_equity,omitempty"`
	CurrentRatio  *float64   `json:"current_ratio,omitempty"`
	QuickRatio    *float64   `json:"quick_ratio,omitempty"`
	GrossMargin   *float64   `json:"gross_margin,omitempty"`   // %
	NetMargin     *float64   `json:"net_margin,omitempty"`     // %
	EPSGrowth     *float64   `json:"eps_growth,omitempty"`     // % YoY
	RevenueGrowth *float64   `json:"revenue_growth,omitempty"` // % YoY
}

// IsEmpty reports whether no ratio is known
func (r *Ratios) IsEmpty() bool {
	if r == nil {
		return true
	}
	for _, v := range []*float64{r.PE, r.PB, r.ROE, r.ROA, r.DebtToEquity, r.CurrentRatio,
		r.QuickRatio, r.GrossMargin, r.NetMargin, r.EPSGrowth, r.RevenueGrowth} {
		if v != nil {
			return false
		}
	}
	return true
}

// F is a helper for building optional ratio fields
func F(v float64) *float64 {
	return &v
}

// StockInfo is listing metadata
type StockInfo struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Exchange  string    `json:"exchange"` // HOSE, HNX, UPCOM
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Period converts a period code (1M..5Y) to a lookback in days
func Period(code string) (int, error) {
	switch code {
	case "1M":
		return 30, nil
	case "3M":
		return 90, nil
	case "6M":
		return 180, nil
	case "1Y":
		return 365, nil
	case "3Y":
		return 1095, nil
	case "5Y":
		return 1825, nil
	default:
		return 0, fmt.Errorf("unknown period %q (want 1M, 3M, 6M, 1Y, 3Y, 5Y)", code)
	}
}
