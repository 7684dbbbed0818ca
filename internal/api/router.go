package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/vnquant/internal/api/handlers"
	"github.com/wonny/vnquant/pkg/logger"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Stock   *handlers.StockHandler
	Data    *handlers.DataHandler
	Scan    *handlers.ScanHandler
	Ranking *handlers.RankingHandler
	Stream  *handlers.ScanStreamHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Stock endpoints
	api.HandleFunc("/stocks", h.Stock.ListStocks).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/analysis", h.Stock.GetAnalysis).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/panel", h.Stock.GetPanel).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/prices", h.Stock.GetDailyPrices).Methods("GET")

	// Scan endpoints
	api.HandleFunc("/scan", h.Scan.Scan).Methods("POST")
	api.HandleFunc("/scan/market", h.Scan.ScanMarket).Methods("GET")
	api.HandleFunc("/scan/latest", h.Scan.GetLatestReport).Methods("GET")
	api.HandleFunc("/scan/breakouts", h.Scan.FindBreakouts).Methods("GET")
	api.HandleFunc("/scan/oversold", h.Scan.FindOversold).Methods("GET")
	api.HandleFunc("/market/comparison", h.Ranking.GetComparison).Methods("GET")

	// Cache & data endpoints
	api.HandleFunc("/cache/stats", h.Data.GetCacheStats).Methods("GET")
	api.HandleFunc("/cache/overview", h.Data.GetOverview).Methods("GET")
	api.HandleFunc("/cache/update", h.Data.UpdateCache).Methods("POST")
	api.HandleFunc("/data/universe", h.Data.GetUniverse).Methods("GET")
	api.HandleFunc("/data/quality", h.Data.GetQuality).Methods("GET")

	// Websocket
	r.HandleFunc("/ws/scan", h.Stream.Stream).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "vnquant-api",
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// 웹소켓은 Hijacker가 필요하므로 래핑하지 않음
			if r.URL.Path == "/ws/scan" {
				next.ServeHTTP(w, r)
				log.WithFields(map[string]interface{}{
					"method":   r.Method,
					"path":     r.URL.Path,
					"duration": time.Since(start),
				}).Debug("Websocket session")
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
