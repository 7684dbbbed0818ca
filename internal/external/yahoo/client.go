package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
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
	source    = "yahoo"
	suffix    = ".VN"
	priceUnit = 1000.0
)

// Client fetches daily bars from the Yahoo Finance chart API
// ⭐ SSOT: Yahoo 가격 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("yahoo"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// FetchSeries fetches daily bars for symbol in [from, to] from {symbol}.VN
func (c *Client) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol+suffix), params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, external.NewAPIError(source, symbol, err)
	}

	var payload chartResponse
	if err := httputil.DecodeJSON(resp, &payload); err != nil {
		return nil, external.NewAPIError(source, symbol, err)
	}
	if e := payload.Chart.Error; e != nil {
		return nil, external.NewAPIError(source, symbol, fmt.Errorf("%s: %s", e.Code, e.Description))
	}
	if len(payload.Chart.Result) == 0 {
		return nil, external.NewAPIError(source, symbol, external.ErrNoData)
	}

	bars, err := parseResult(payload.Chart.Result[0])
	if err != nil {
		return nil, external.NewAPIError(source, symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched prices")

	return &contracts.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// parseResult builds bars from a chart result. Rows with a missing price are dropped.
// The adjusted close replaces the close when present.
func parseResult(r chartResult) ([]contracts.Bar, error) {
	if len(r.Indicators.Quote) == 0 || len(r.Timestamp) == 0 {
		return nil, external.ErrNoData
	}
	q := r.Indicators.Quote[0]
	n := len(r.Timestamp)
	if len(q.Open) != n || len(q.High) != n || len(q.Low) != n || len(q.Close) != n {
		return nil, errors.New("quote length mismatch")
	}

	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == n {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	seen := make(map[time.Time]bool, n)
	bars := make([]contracts.Bar, 0, n)
	for i, ts := range r.Timestamp {
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		closePrice := *q.Close[i]
		if adj != nil && adj[i] != nil {
			closePrice = *adj[i]
		}

		var volume int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			volume = int64(*q.Volume[i])
		}

		y, m, d := time.Unix(ts, 0).UTC().Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if seen[date] {
			continue
		}
		seen[date] = true

		bars = append(bars, contracts.Bar{
			Date:   date,
			Open:   *q.Open[i] / priceUnit,
			High:   *q.High[i] / priceUnit,
			Low:    *q.Low[i] / priceUnit,
			Close:  closePrice / priceUnit,
			Volume: volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
