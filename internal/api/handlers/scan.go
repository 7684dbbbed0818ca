package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/selection"
	"github.com/wonny/vnquant/pkg/logger"
	"github.com/wonny/vnquant/pkg/redis"
)

// MarketScanner runs multi-symbol scans (selection.Scanner)
type MarketScanner interface {
	ScanUniverse(ctx context.Context, symbols []string, req selection.ScanRequest, progress contracts.ProgressFunc) (*contracts.ScanReport, error)
	ScanMarket(ctx context.Context, investment contracts.InvestmentType, topN int, progress contracts.ProgressFunc) (*contracts.ScanReport, error)
	FindBreakouts(ctx context.Context, progress contracts.ProgressFunc) ([]contracts.Breakout, error)
	FindOversold(ctx context.Context, progress contracts.ProgressFunc) ([]contracts.Oversold, error)
	ComparisonTable(ctx context.Context, listing []contracts.OverviewRow, progress contracts.ProgressFunc) (*contracts.ScanReport, error)
}

// ReportStore reads persisted scan reports (selection.Repository)
type ReportStore interface {
	LatestReport(ctx context.Context, investment contracts.InvestmentType) (*contracts.ScanReport, error)
}

// ScanHandler handles market scan API endpoints
// ⭐ SSOT: 스캔 API 핸들러는 이 구조체에서만
type ScanHandler struct {
	scanner  MarketScanner
	cache    *redis.Cache
	reports  ReportStore
	validate *validator.Validate
	logger   *logger.Logger
}

// NewScanHandler creates a new scan handler. reports may be nil.
func NewScanHandler(scanner MarketScanner, cache *redis.Cache, reports ReportStore, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		scanner:  scanner,
		cache:    cache,
		reports:  reports,
		validate: validator.New(),
		logger:   log,
	}
}

// ScanBody is the body of an ad-hoc scan
type ScanBody struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=500,dive,required"`
	selection.ScanRequest
}

// Scan evaluates the given symbols
// POST /api/scan
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var body ScanBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.scanner.ScanUniverse(r.Context(), body.Symbols, body.ScanRequest, nil)
	if err != nil {
		h.logger.WithError(err).Error("Scan failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, roundReport(report))
}

// ScanMarket scans the universe for one investment horizon. A report cached by the
// scheduler is served unless refresh=true.
// GET /api/scan/market?type=SHORT_TERM&top=20&refresh=false
func (h *ScanHandler) ScanMarket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	investment, err := contracts.ParseInvestmentType(r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	top, err := queryInt(r, "top", 20)
	if err != nil || top < 1 {
		respondError(w, http.StatusBadRequest, "Invalid top (expected positive integer)")
		return
	}

	key := redis.ScanReportKey(string(investment))
	if !queryBool(r, "refresh", false) {
		var cached contracts.ScanReport
		found, err := h.cache.Get(ctx, key, &cached)
		if err != nil {
			h.logger.WithError(err).Warn("Scan report cache read failed")
		}
		if found {
			if len(cached.Results) > top {
				cached.Results = cached.Results[:top]
			}
			respondJSON(w, http.StatusOK, roundReport(&cached))
			return
		}
	}

	report, err := h.scanner.ScanMarket(ctx, investment, top, nil)
	if err != nil {
		h.logger.WithError(err).WithField("type", investment).Error("Market scan failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	if err := h.cache.Set(ctx, key, report, redis.TTLScanReport); err != nil {
		h.logger.WithError(err).Warn("Scan report cache write failed")
	}
	respondJSON(w, http.StatusOK, roundReport(report))
}

// GetLatestReport returns the last persisted report of an investment horizon
// GET /api/scan/latest?type=SHORT_TERM
func (h *ScanHandler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respondError(w, http.StatusNotImplemented, "Report history requires PostgreSQL")
		return
	}

	investment, err := contracts.ParseInvestmentType(r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reports.LatestReport(r.Context(), investment)
	if errors.Is(err, selection.ErrNoReport) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest report")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve scan report")
		return
	}

	respondJSON(w, http.StatusOK, roundReport(report))
}

// FindBreakouts lists universe stocks breaking out on volume
// GET /api/scan/breakouts
func (h *ScanHandler) FindBreakouts(w http.ResponseWriter, r *http.Request) {
	breakouts, err := h.scanner.FindBreakouts(r.Context(), nil)
	if err != nil {
		h.logger.WithError(err).Error("Breakout scan failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	for i := range breakouts {
		breakouts[i].Price = round(breakouts[i].Price, pricePlaces)
		breakouts[i].RSI = round(breakouts[i].RSI, indicatorPlaces)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(breakouts),
		"breakouts": breakouts,
	})
}

// FindOversold lists oversold universe stocks
// GET /api/scan/oversold
func (h *ScanHandler) FindOversold(w http.ResponseWriter, r *http.Request) {
	oversold, err := h.scanner.FindOversold(r.Context(), nil)
	if err != nil {
		h.logger.WithError(err).Error("Oversold scan failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	for i := range oversold {
		oversold[i].Price = round(oversold[i].Price, pricePlaces)
		oversold[i].RSI = roundPtr(oversold[i].RSI, indicatorPlaces)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(oversold),
		"oversold": oversold,
	})
}
