package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/s0_data/collector"
	"github.com/wonny/vnquant/internal/s0_data/quality"
	"github.com/wonny/vnquant/pkg/logger"
)

// CacheStore is the read side of the bar cache (s0_data.DataCache)
type CacheStore interface {
	Stats(ctx context.Context) (*contracts.CacheStats, error)
	MarketOverview(ctx context.Context) ([]contracts.OverviewRow, error)
	Symbols(ctx context.Context) ([]string, error)
}

// BulkUpdater refreshes many symbols (collector.Collector)
type BulkUpdater interface {
	UpdateAll(ctx context.Context, symbols []string, cfg collector.Config, progress contracts.ProgressFunc) *collector.Summary
}

// UniverseBuilder builds the scan universe (s1_universe.Builder)
type UniverseBuilder interface {
	Build(ctx context.Context) (*contracts.Universe, error)
}

// QualityChecker checks cache quality (quality.QualityGate)
type QualityChecker interface {
	Check(ctx context.Context, symbols []string, date time.Time) (*quality.Snapshot, error)
}

// DataHandler handles cache and universe API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	cache       CacheStore
	universe    UniverseBuilder
	collector   BulkUpdater
	qualityGate QualityChecker
	validate    *validator.Validate
	logger      *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(
	cache CacheStore,
	universe UniverseBuilder,
	col BulkUpdater,
	qualityGate QualityChecker,
	log *logger.Logger,
) *DataHandler {
	return &DataHandler{
		cache:       cache,
		universe:    universe,
		collector:   col,
		qualityGate: qualityGate,
		validate:    validator.New(),
		logger:      log,
	}
}

// GetCacheStats returns cache statistics
// GET /api/cache/stats
func (h *DataHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get cache stats")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve cache stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// GetOverview returns the latest cached bar of every symbol
// GET /api/cache/overview
func (h *DataHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	rows, err := h.cache.MarketOverview(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get market overview")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve market overview")
		return
	}

	for i := range rows {
		rows[i].Close = round(rows[i].Close, pricePlaces)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rows),
		"rows":  rows,
	})
}

// UpdateRequest represents a cache update request
type UpdateRequest struct {
	Symbols []string `json:"symbols,omitempty" validate:"omitempty,max=2000,dive,required,alphanum"`
	Force   bool     `json:"force"`
	Workers int      `json:"workers,omitempty" validate:"omitempty,min=1,max=32"`
}

// UpdateCache refreshes the cache for the requested symbols, or the whole universe
// POST /api/cache/update
func (h *DataHandler) UpdateCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		u, err := h.universe.Build(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to build universe")
			respondError(w, statusFor(err), "Failed to build universe")
			return
		}
		symbols = u.Stocks
	}

	cfg := collector.DefaultConfig()
	cfg.Force = req.Force
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}

	h.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"force":   req.Force,
	}).Info("Cache update triggered")

	summary := h.collector.UpdateAll(ctx, symbols, cfg, nil)

	failures := make(map[string]string)
	for _, res := range summary.Results {
		if res.Error != nil {
			failures[res.Symbol] = res.Error.Error()
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"summary":  summary,
		"failures": failures,
	})
}

// GetUniverse builds and returns the current universe
// GET /api/data/universe
func (h *DataHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	universe, err := h.universe.Build(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get universe")
		respondError(w, statusFor(err), "Failed to retrieve universe")
		return
	}

	respondJSON(w, http.StatusOK, universe)
}

// GetQuality checks cache quality for the cached symbols
// GET /api/data/quality
func (h *DataHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	symbols, err := h.cache.Symbols(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list cached symbols")
		respondError(w, http.StatusInternalServerError, "Failed to list cached symbols")
		return
	}

	snapshot, err := h.qualityGate.Check(ctx, symbols, time.Now())
	if err != nil {
		h.logger.WithError(err).Error("Failed to check quality")
		respondError(w, http.StatusInternalServerError, "Failed to check cache quality")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}
