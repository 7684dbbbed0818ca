package handlers

import (
	"net/http"
	"strings"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/selection"
	"github.com/wonny/vnquant/pkg/logger"
)

// RankingHandler handles the market comparison endpoint
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	scanner  MarketScanner
	cache    CacheStore
	screener *selection.Screener
	presets  map[string]contracts.Criteria
	logger   *logger.Logger
}

// NewRankingHandler creates a new ranking handler. presets are the named criteria
// of the strategy file.
func NewRankingHandler(scanner MarketScanner, cache CacheStore, presets map[string]contracts.Criteria, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		scanner:  scanner,
		cache:    cache,
		screener: selection.NewScreener(log),
		presets:  presets,
		logger:   log,
	}
}

// GetComparison ranks cached stocks by category after an optional criteria filter
// GET /api/market/comparison?category=overall&top=10&preset=momentum&min_score=60&rsi_min=30&rsi_max=70&trend=TĂNG
func (h *RankingHandler) GetComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category, err := selection.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	top, err := queryInt(r, "top", 10)
	if err != nil || top < 1 {
		respondError(w, http.StatusBadRequest, "Invalid top (expected positive integer)")
		return
	}
	criteria, err := h.criteriaFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	listing, err := h.cache.MarketOverview(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get market overview")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve market overview")
		return
	}

	report, err := h.scanner.ComparisonTable(ctx, listing, nil)
	if err != nil {
		h.logger.WithError(err).Error("Comparison scan failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	results := h.screener.Filter(report.Results, criteria)
	report.Results = selection.TopPerformers(results, category, top)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"criteria": criteria,
		"report":   roundReport(report),
	})
}

// criteriaFrom merges a named preset with explicit query overrides
func (h *RankingHandler) criteriaFrom(r *http.Request) (contracts.Criteria, error) {
	var c contracts.Criteria
	q := r.URL.Query()

	if name := q.Get("preset"); name != "" {
		preset, ok := h.presets[name]
		if !ok {
			return c, &queryError{param: "preset", msg: "unknown preset " + name}
		}
		c = preset
	}

	floats := []struct {
		param string
		dest  **float64
	}{
		{"min_score", &c.MinOverallScore},
		{"rsi_min", &c.RSIMin},
		{"rsi_max", &c.RSIMax},
		{"min_monthly_return", &c.MinMonthlyReturn},
		{"min_volume_ratio", &c.MinVolumeRatio},
	}
	for _, f := range floats {
		v, err := queryFloat(r, f.param)
		if err != nil {
			return c, &queryError{param: f.param, msg: "expected number"}
		}
		if v != nil {
			*f.dest = v
		}
	}

	if raw := q.Get("trend"); raw != "" {
		c.TrendFilter = splitList(raw)
	}
	if raw := q.Get("signal"); raw != "" {
		c.SignalFilter = splitList(raw)
	}
	return c, nil
}

type queryError struct {
	param string
	msg   string
}

func (e *queryError) Error() string {
	return "invalid " + e.param + ": " + e.msg
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
