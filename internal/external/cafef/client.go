package cafef

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/external"
	"github.com/wonny/vnquant/pkg/httputil"
	"github.com/wonny/vnquant/pkg/logger"
)

const source = "cafef"

// Client scrapes fundamental ratios and the exchange listing from CafeF
// ⭐ SSOT: CafeF 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	now        func() time.Time
}

// NewClient creates a new CafeF client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("cafef"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
}

// fetchDocument fetches and parses an HTML page
func (c *Client) fetchDocument(ctx context.Context, path string) (*goquery.Document, error) {
	resp, err := c.httpClient.Get(ctx, c.baseURL+path)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, URL: c.baseURL + path}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}
	return doc, nil
}

// FetchRatios scrapes the latest column of the financial ratios table
func (c *Client) FetchRatios(ctx context.Context, symbol string) (*contracts.Ratios, error) {
	doc, err := c.fetchDocument(ctx, fmt.Sprintf("/chi-so-tai-chinh/%s.chn", strings.ToLower(symbol)))
	if err != nil {
		return nil, external.NewAPIError(source, symbol, err)
	}

	ratios := parseRatios(doc)
	if ratios.IsEmpty() {
		return nil, external.NewAPIError(source, symbol, external.ErrNoData)
	}
	ratios.Symbol = symbol
	asOf := c.now()
	ratios.AsOf = &asOf

	c.logger.WithField("symbol", symbol).Debug("Fetched ratios")
	return ratios, nil
}

// ratioFields maps a normalized row label prefix to its field
var ratioFields = []struct {
	label string
	set   func(r *contracts.Ratios, v float64)
}{
	{"p/e", func(r *contracts.Ratios, v float64) { r.PE = contracts.F(v) }},
	{"p/b", func(r *contracts.Ratios, v float64) { r.PB = contracts.F(v) }},
	{"roe", func(r *contracts.Ratios, v float64) { r.ROE = contracts.F(v) }},
	{"roa", func(r *contracts.Ratios, v float64) { r.ROA = contracts.F(v) }},
	{"nợ/vốn chủ sở hữu", func(r *contracts.Ratios, v float64) { r.DebtToEquity = contracts.F(v) }},
	{"nợ/vốn csh", func(r *contracts.Ratios, v float64) { r.DebtToEquity = contracts.F(v) }},
	{"thanh toán hiện hành", func(r *contracts.Ratios, v float64) { r.CurrentRatio = contracts.F(v) }},
	{"thanh toán nhanh", func(r *contracts.Ratios, v float64) { r.QuickRatio = contracts.F(v) }},
	{"biên lợi nhuận gộp", func(r *contracts.Ratios, v float64) { r.GrossMargin = contracts.F(v) }},
	{"biên lợi nhuận ròng", func(r *contracts.Ratios, v float64) { r.NetMargin = contracts.F(v) }},
	{"tăng trưởng eps", func(r *contracts.Ratios, v float64) { r.EPSGrowth = contracts.F(v) }},
	{"tăng trưởng doanh thu", func(r *contracts.Ratios, v float64) { r.RevenueGrowth = contracts.F(v) }},
}

// parseRatios reads label/value rows; the last non-empty cell of a row is the latest period
func parseRatios(doc *goquery.Document) *contracts.Ratios {
	ratios := &contracts.Ratios{}

	doc.Find("table#tableContent tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))

		var value *float64
		for i := cells.Length() - 1; i >= 1; i-- {
			if v, ok := parseNumber(cells.Eq(i).Text()); ok {
				value = &v
				break
			}
		}
		if value == nil {
			return
		}

		for _, f := range ratioFields {
			if strings.HasPrefix(label, f.label) {
				f.set(ratios, *value)
				return
			}
		}
	})

	return ratios
}

// ListSymbols scrapes the listed companies table
func (c *Client) ListSymbols(ctx context.Context) ([]contracts.StockInfo, error) {
	doc, err := c.fetchDocument(ctx, "/du-lieu/danh-sach-niem-yet.chn")
	if err != nil {
		return nil, external.NewAPIError(source, "", err)
	}

	stocks := parseListing(doc, c.now())
	if len(stocks) == 0 {
		return nil, external.NewAPIError(source, "", external.ErrNoData)
	}

	c.logger.WithField("count", len(stocks)).Debug("Fetched listing")
	return stocks, nil
}

func parseListing(doc *goquery.Document, now time.Time) []contracts.StockInfo {
	var stocks []contracts.StockInfo

	doc.Find("table#listing tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		symbol := strings.ToUpper(strings.TrimSpace(cells.Eq(0).Text()))
		if symbol == "" {
			return
		}
		stocks = append(stocks, contracts.StockInfo{
			Symbol:    symbol,
			Name:      strings.TrimSpace(cells.Eq(1).Text()),
			Exchange:  strings.ToUpper(strings.TrimSpace(cells.Eq(2).Text())),
			UpdatedAt: now,
		})
	})

	return stocks
}

// parseNumber accepts "1,234.5", "1.234,5", "15,2", "-3.1" and "12%".
// A single separator followed by exactly three digits is read as a thousands separator.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" || s == "-" || s == "N/A" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
