package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/s2_signals"
	"github.com/wonny/vnquant/pkg/logger"
)

// Analyzer evaluates a single symbol (selection.Scanner)
type Analyzer interface {
	Analyze(ctx context.Context, symbol, period string, withFundamentals bool) (*contracts.Evaluation, error)
	Panel(ctx context.Context, symbol, period string) (*s2_signals.Panel, error)
}

// StockHandler handles single-stock API endpoints
// ⭐ SSOT: 종목 API 핸들러는 이 구조체에서만
type StockHandler struct {
	analyzer Analyzer
	series   contracts.SeriesFetcher
	lister   contracts.SymbolLister
	logger   *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(analyzer Analyzer, series contracts.SeriesFetcher, lister contracts.SymbolLister, log *logger.Logger) *StockHandler {
	return &StockHandler{
		analyzer: analyzer,
		series:   series,
		lister:   lister,
		logger:   log,
	}
}

// GetAnalysis returns the full evaluation of one stock
// GET /api/stocks/{symbol}/analysis?period=1Y&fundamentals=true
func (h *StockHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1Y"
	}
	if _, err := contracts.Period(period); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	withFundamentals := queryBool(r, "fundamentals", true)

	eval, err := h.analyzer.Analyze(r.Context(), symbol, period, withFundamentals)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to analyze stock")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, roundEvaluation(eval))
}

// PanelRow is one row of the indicator panel as served by the API
type PanelRow struct {
	Date       string              `json:"date"`
	Open       float64             `json:"open"`
	High       float64             `json:"high"`
	Low        float64             `json:"low"`
	Close      float64             `json:"close"`
	Volume     int64               `json:"volume"`
	Indicators map[string]*float64 `json:"indicators"`
}

// GetPanel returns the last rows of the indicator panel
// GET /api/stocks/{symbol}/panel?period=6M&tail=60
func (h *StockHandler) GetPanel(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "6M"
	}
	if _, err := contracts.Period(period); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	tail, err := queryInt(r, "tail", 60)
	if err != nil || tail < 1 {
		respondError(w, http.StatusBadRequest, "Invalid tail (expected positive integer)")
		return
	}

	panel, err := h.analyzer.Panel(r.Context(), symbol, period)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to build panel")
		respondError(w, statusFor(err), err.Error())
		return
	}

	start := panel.Len() - tail
	if start < 0 {
		start = 0
	}
	rows := make([]PanelRow, 0, panel.Len()-start)
	for i := start; i < panel.Len(); i++ {
		rows = append(rows, toPanelRow(panel.Row(i)))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": strings.ToUpper(symbol),
		"period": period,
		"count":  len(rows),
		"rows":   rows,
	})
}

// 미정의 지표 값(NaN)은 null
func toPanelRow(row s2_signals.Row) PanelRow {
	out := PanelRow{
		Date:       row.Date.Format("2006-01-02"),
		Open:       round(row.Open, pricePlaces),
		High:       round(row.High, pricePlaces),
		Low:        round(row.Low, pricePlaces),
		Close:      round(row.Close, pricePlaces),
		Volume:     row.Volume,
		Indicators: make(map[string]*float64, len(row.Values)),
	}
	for c := range row.Values {
		if v, ok := row.Get(c); ok {
			rv := round(v, indicatorPlaces)
			out.Indicators[string(c)] = &rv
		} else {
			out.Indicators[string(c)] = nil
		}
	}
	return out
}

// GetDailyPrices returns cached daily bars
// GET /api/stocks/{symbol}/prices?days=30
func (h *StockHandler) GetDailyPrices(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	days, err := queryInt(r, "days", 30)
	if err != nil || days < 1 {
		respondError(w, http.StatusBadRequest, "Invalid days (expected positive integer)")
		return
	}

	to := time.Now()
	series, err := h.series.FetchSeries(r.Context(), symbol, to.AddDate(0, 0, -days), to)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get daily prices")
		respondError(w, statusFor(err), err.Error())
		return
	}

	bars := make([]contracts.Bar, len(series.Bars))
	for i, b := range series.Bars {
		b.Open = round(b.Open, pricePlaces)
		b.High = round(b.High, pricePlaces)
		b.Low = round(b.Low, pricePlaces)
		b.Close = round(b.Close, pricePlaces)
		bars[i] = b
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
		"bars":   bars,
	})
}

// ListStocks returns the exchange listing, optionally filtered
// GET /api/stocks?exchange=HOSE
func (h *StockHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	exchange := strings.ToUpper(r.URL.Query().Get("exchange"))

	listing, err := h.lister.ListSymbols(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list stocks")
		respondError(w, statusFor(err), "Failed to retrieve stock listing")
		return
	}

	stocks := make([]contracts.StockInfo, 0, len(listing))
	for _, s := range listing {
		if exchange != "" && !strings.EqualFold(s.Exchange, exchange) {
			continue
		}
		stocks = append(stocks, s)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(stocks),
		"stocks": stocks,
	})
}
