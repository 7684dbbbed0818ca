package demo

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
)

// 대표 종목 기준가 (천 VND)
var basePrices = map[string]float64{
	"VNM": 57.6,
	"FPT": 123.5,
	"VIC": 45.2,
	"VCB": 89.3,
	"HPG": 25.8,
	"MSN": 98.7,
	"TCB": 28.4,
	"VHM": 42.1,
	"BID": 52.3,
	"CTG": 35.6,
}

const defaultBasePrice = 50.0

var liquidSymbols = map[string]bool{"VNM": true, "FPT": true, "VIC": true}

var listing = []contracts.StockInfo{
	{Symbol: "VNM", Name: "Công ty Cổ phần Sữa Việt Nam", Exchange: "HOSE"},
	{Symbol: "FPT", Name: "Công ty Cổ phần FPT", Exchange: "HOSE"},
	{Symbol: "VIC", Name: "Tập đoàn Vingroup", Exchange: "HOSE"},
	{Symbol: "VCB", Name: "Ngân hàng TMCP Ngoại thương Việt Nam", Exchange: "HOSE"},
	{Symbol: "HPG", Name: "Công ty Cổ phần Tập đoàn Hoa Phát", Exchange: "HOSE"},
	{Symbol: "MSN", Name: "Công ty Cổ phần Tập đoàn Masan", Exchange: "HOSE"},
	{Symbol: "TCB", Name: "Ngân hàng TMCP Kỹ thương Việt Nam", Exchange: "HOSE"},
	{Symbol: "VHM", Name: "Công ty Cổ phần Vinhomes", Exchange: "HOSE"},
	{Symbol: "BID", Name: "Ngân hàng TMCP Đầu tư và Phát triển Việt Nam", Exchange: "HOSE"},
	{Symbol: "CTG", Name: "Ngân hàng TMCP Công thương Việt Nam", Exchange: "HOSE"},
	{Symbol: "GAS", Name: "Tổng Công ty Khí Việt Nam", Exchange: "HOSE"},
	{Symbol: "SAB", Name: "Công ty Cổ phần Sabeco", Exchange: "HOSE"},
	{Symbol: "PLX", Name: "Tập đoàn Xăng dầu Việt Nam", Exchange: "HOSE"},
	{Symbol: "POW", Name: "Tổng Công ty Điện lực Dầu khí Việt Nam", Exchange: "HOSE"},
	{Symbol: "MWG", Name: "Công ty Cổ phần Đầu tư Thế giới Di động", Exchange: "HOSE"},
}

type ratioSet struct {
	pe, pb, roe, roa, de, current, quick, gross, net float64
}

var demoRatios = map[string]ratioSet{
	"VNM": {15.2, 2.8, 18.5, 12.3, 0.35, 2.1, 1.8, 45.2, 22.1},
	"FPT": {18.7, 3.2, 17.1, 9.8, 0.28, 1.9, 1.6, 38.5, 15.8},
	"VIC": {12.5, 1.9, 15.2, 6.8, 0.85, 1.4, 0.9, 42.1, 18.5},
}

var defaultRatios = ratioSet{16.0, 2.5, 15.0, 8.0, 0.5, 1.8, 1.4, 35.0, 12.0}

// Source generates deterministic synthetic market data.
// The same symbol and date range always yield the same bars.
type Source struct {
	now func() time.Time
}

// NewSource creates a demo source
func NewSource() *Source {
	return &Source{now: time.Now}
}

// FetchSeries generates weekday bars in [from, to] with a seeded random walk
// (normal daily change, mean 0.1%, stdev 2%) floored at half the base price
func (s *Source) FetchSeries(_ context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	base, ok := basePrices[symbol]
	if !ok {
		base = defaultBasePrice
	}
	baseVolume := 500_000.0
	if liquidSymbols[symbol] {
		baseVolume = 1_000_000
	}

	rng := rand.New(rand.NewSource(seed(symbol)))
	price := base

	start := midnight(from)
	end := midnight(to)
	bars := make([]contracts.Bar, 0, int(end.Sub(start).Hours()/24)+1)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		price *= 1 + (0.001 + 0.02*rng.NormFloat64())
		price = math.Max(price, base*0.5)

		spread := math.Abs(0.015 * rng.NormFloat64())
		open := price * (1 + 0.005*rng.NormFloat64())
		high := math.Max(open, price) * (1 + spread)
		low := math.Min(open, price) * (1 - spread)
		volume := int64(baseVolume * (0.5 + rng.ExpFloat64()*0.5))

		bars = append(bars, contracts.Bar{
			Date:   d,
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(price),
			Volume: volume,
		})
	}

	return &contracts.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// FetchRatios returns the canned ratios of the symbol or the market-average default
func (s *Source) FetchRatios(_ context.Context, symbol string) (*contracts.Ratios, error) {
	set, ok := demoRatios[symbol]
	if !ok {
		set = defaultRatios
	}
	asOf := s.now()
	return &contracts.Ratios{
		Symbol:       symbol,
		AsOf:         &asOf,
		PE:           contracts.F(set.pe),
		PB:           contracts.F(set.pb),
		ROE:          contracts.F(set.roe),
		ROA:          contracts.F(set.roa),
		DebtToEquity: contracts.F(set.de),
		CurrentRatio: contracts.F(set.current),
		QuickRatio:   contracts.F(set.quick),
		GrossMargin:  contracts.F(set.gross),
		NetMargin:    contracts.F(set.net),
	}, nil
}

// ListSymbols returns the demo listing (15 HOSE blue chips)
func (s *Source) ListSymbols(context.Context) ([]contracts.StockInfo, error) {
	now := s.now()
	out := make([]contracts.StockInfo, len(listing))
	for i, info := range listing {
		info.UpdatedAt = now
		out[i] = info
	}
	return out, nil
}

func seed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64() & math.MaxInt64)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
