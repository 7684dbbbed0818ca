package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/wonny/vnquant/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrInvalidSeries):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// queryInt parses an integer query parameter, def when absent
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// queryFloat parses an optional float query parameter
func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryBool parses a boolean query parameter, def when absent or malformed
func queryBool(r *http.Request, name string, def bool) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// 가격은 소수점 2자리, 지표는 4자리
const (
	pricePlaces     = 2
	indicatorPlaces = 4
)

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func roundPtr(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}

// roundEvaluation returns a copy of e with prices rounded for display
func roundEvaluation(e *contracts.Evaluation) *contracts.Evaluation {
	out := *e
	out.Close = round(e.Close, pricePlaces)

	out.EntryPoints = make([]contracts.EntryPoint, len(e.EntryPoints))
	for i, p := range e.EntryPoints {
		p.Price = round(p.Price, pricePlaces)
		out.EntryPoints[i] = p
	}

	out.ExitPoints = make([]contracts.ExitPoint, len(e.ExitPoints))
	for i, p := range e.ExitPoints {
		p.Price = round(p.Price, pricePlaces)
		p.ProfitPct = roundPtr(p.ProfitPct, pricePlaces)
		p.LossPct = roundPtr(p.LossPct, pricePlaces)
		out.ExitPoints[i] = p
	}

	if e.RiskReward != nil {
		rr := *e.RiskReward
		rr.TakeProfit = round(rr.TakeProfit, pricePlaces)
		rr.StopLoss = round(rr.StopLoss, pricePlaces)
		rr.PotentialProfit = round(rr.PotentialProfit, pricePlaces)
		rr.PotentialLoss = round(rr.PotentialLoss, pricePlaces)
		out.RiskReward = &rr
	}
	return &out
}

// roundReport rounds result prices of a report in place
func roundReport(report *contracts.ScanReport) *contracts.ScanReport {
	for i := range report.Results {
		r := &report.Results[i]
		r.Price = round(r.Price, pricePlaces)
		r.Volatility = roundPtr(r.Volatility, indicatorPlaces)
		r.RSI = roundPtr(r.RSI, indicatorPlaces)
		r.MACD = roundPtr(r.MACD, indicatorPlaces)
		r.BBPosition = roundPtr(r.BBPosition, indicatorPlaces)
		if r.Evaluation != nil {
			r.Evaluation = roundEvaluation(r.Evaluation)
		}
	}
	return report
}
