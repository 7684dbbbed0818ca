package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vnquant/internal/api/handlers"
	"github.com/wonny/vnquant/internal/external/demo"
	"github.com/wonny/vnquant/pkg/logger"
)

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	healthCheckHandler(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "vnquant-api", body["service"])
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := recoveryMiddleware(logger.Nop())(panicky)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/anything", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestLoggingMiddleware_RecordsStatus(t *testing.T) {
	var seen int
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		if rec, ok := w.(*statusRecorder); ok {
			seen = rec.status
		}
	})
	h := loggingMiddleware(logger.Nop())(inner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/x", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, http.StatusTeapot, seen)
}

func TestNewRouter_Routes(t *testing.T) {
	log := logger.Nop()
	router := NewRouter(Handlers{
		Stock: handlers.NewStockHandler(nil, nil, demo.NewSource(), log),
	}, log)

	tests := []struct {
		method string
		target string
		status int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/stocks", http.StatusOK},
		{"POST", "/api/stocks", http.StatusMethodNotAllowed},
		{"GET", "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
