package vci

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/external"
	"github.com/wonny/vnquant/pkg/httputil"
	"github.com/wonny/vnquant/pkg/logger"
)

const (
	source = "vci"
	// VCI 차트 API는 VND 단위, 내부 표현은 천 VND
	priceUnit = 1000.0
	chartPath = "/chart/OHLCChart/gap-chart"
)

// Client handles communication with the Vietcap (VCI) trading API
// ⭐ SSOT: VCI 가격 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	loc        *time.Location
}

// NewClient creates a new VCI client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("vci"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		loc:        hoChiMinh(),
	}
}

type chartRequest struct {
	TimeFrame string   `json:"timeFrame"`
	Symbols   []string `json:"symbols"`
	To        int64    `json:"to"`
	CountBack int      `json:"countBack"`
}

// chartData is one symbol's column-oriented OHLCV payload
type chartData struct {
	Symbol string        `json:"symbol"`
	Open   []float64     `json:"o"`
	High   []float64     `json:"h"`
	Low    []float64     `json:"l"`
	Close  []float64     `json:"c"`
	Volume []float64     `json:"v"`
	Time   []json.Number `json:"t"`
}

// FetchSeries fetches daily bars for symbol in [from, to]
func (c *Client) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	req := chartRequest{
		TimeFrame: "ONE_DAY",
		Symbols:   []string{symbol},
		To:        to.AddDate(0, 0, 1).Unix(),
		CountBack: int(to.Sub(from).Hours()/24) + 1,
	}

	resp, err := c.httpClient.PostJSON(ctx, c.baseURL+chartPath, req)
	if err != nil {
		return nil, external.NewAPIError(source, symbol, err)
	}

	var payload []chartData
	if err := httputil.DecodeJSON(resp, &payload); err != nil {
		return nil, external.NewAPIError(source, symbol, err)
	}

	bars, err := c.parseChart(payload, symbol, from, to)
	if err != nil {
		return nil, external.NewAPIError(source, symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched prices")

	return &contracts.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// parseChart converts the column arrays into ascending, deduplicated bars inside [from, to]
func (c *Client) parseChart(payload []chartData, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	var data *chartData
	for i := range payload {
		if strings.EqualFold(payload[i].Symbol, symbol) || (payload[i].Symbol == "" && len(payload) == 1) {
			data = &payload[i]
			break
		}
	}
	if data == nil || len(data.Time) == 0 {
		return nil, external.ErrNoData
	}

	n := len(data.Time)
	if len(data.Open) != n || len(data.High) != n || len(data.Low) != n || len(data.Close) != n || len(data.Volume) != n {
		return nil, fmt.Errorf("column length mismatch: t=%d o=%d h=%d l=%d c=%d v=%d",
			n, len(data.Open), len(data.High), len(data.Low), len(data.Close), len(data.Volume))
	}

	fromDay := day(from, c.loc)
	toDay := day(to, c.loc)

	byDate := make(map[time.Time]contracts.Bar, n)
	for i := 0; i < n; i++ {
		ts, err := strconv.ParseInt(data.Time[i].String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", data.Time[i], err)
		}
		date := day(time.Unix(ts, 0), c.loc)
		if date.Before(fromDay) || date.After(toDay) {
			continue
		}
		byDate[date] = contracts.Bar{
			Date:   date,
			Open:   data.Open[i] / priceUnit,
			High:   data.High[i] / priceUnit,
			Low:    data.Low[i] / priceUnit,
			Close:  data.Close[i] / priceUnit,
			Volume: int64(data.Volume[i]),
		}
	}

	bars := make([]contracts.Bar, 0, len(byDate))
	for _, b := range byDate {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// day truncates t to midnight UTC of its calendar date in loc
func day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hoChiMinh() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}
