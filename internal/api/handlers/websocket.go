package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // 로컬 대시보드 허용
	},
}

const (
	writeWait        = 10 * time.Second
	progressInterval = 200 * time.Millisecond
)

// Frame is one websocket message of a streamed scan
type Frame struct {
	Type    string      `json:"type"` // progress, result, error
	ScanID  string      `json:"scan_id"`
	Done    int         `json:"done,omitempty"`
	Total   int         `json:"total,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ScanStreamHandler streams scan progress over a websocket
// ⭐ SSOT: 스캔 진행 스트리밍은 여기서만
type ScanStreamHandler struct {
	scanner MarketScanner
	logger  *logger.Logger
}

// NewScanStreamHandler creates a new streaming handler
func NewScanStreamHandler(scanner MarketScanner, log *logger.Logger) *ScanStreamHandler {
	return &ScanStreamHandler{scanner: scanner, logger: log}
}

// Stream runs one scan per connection. Progress frames are throttled; the final
// progress frame and the result frame are always sent.
// GET /ws/scan?type=SHORT_TERM&top=20 | ?mode=breakouts | ?mode=oversold
func (h *ScanStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	run, err := h.scanFor(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	scanID := uuid.New().String()
	log := h.logger.WithField("scan_id", scanID)
	log.Info("Streaming scan started")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 클라이언트 종료 감지
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	send := func(f Frame) error {
		f.ScanID = scanID
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f)
	}

	throttle := rate.NewLimiter(rate.Every(progressInterval), 1)
	progress := func(done, total int, message string) {
		if done < total && !throttle.Allow() {
			return
		}
		if err := send(Frame{Type: "progress", Done: done, Total: total, Message: message}); err != nil {
			cancel()
		}
	}

	data, err := run(ctx, progress)
	if err != nil {
		log.WithError(err).Warn("Streaming scan failed")
		send(Frame{Type: "error", Message: err.Error()})
		return
	}

	if err := send(Frame{Type: "result", Data: data}); err != nil {
		log.WithError(err).Warn("Failed to send scan result")
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan complete"),
		time.Now().Add(writeWait))
	log.Info("Streaming scan completed")
}

type scanFunc func(ctx context.Context, progress contracts.ProgressFunc) (interface{}, error)

// scanFor resolves the query into a scan before the connection is upgraded
func (h *ScanStreamHandler) scanFor(r *http.Request) (scanFunc, error) {
	switch mode := r.URL.Query().Get("mode"); mode {
	case "breakouts":
		return func(ctx context.Context, progress contracts.ProgressFunc) (interface{}, error) {
			return h.scanner.FindBreakouts(ctx, progress)
		}, nil
	case "oversold":
		return func(ctx context.Context, progress contracts.ProgressFunc) (interface{}, error) {
			return h.scanner.FindOversold(ctx, progress)
		}, nil
	case "", "market":
	default:
		return nil, &queryError{param: "mode", msg: "expected market, breakouts or oversold"}
	}

	investment, err := contracts.ParseInvestmentType(r.URL.Query().Get("type"))
	if err != nil {
		return nil, err
	}
	top, err := queryInt(r, "top", 20)
	if err != nil || top < 1 {
		return nil, &queryError{param: "top", msg: "expected positive integer"}
	}
	return func(ctx context.Context, progress contracts.ProgressFunc) (interface{}, error) {
		report, err := h.scanner.ScanMarket(ctx, investment, top, progress)
		if err != nil {
			return nil, err
		}
		return roundReport(report), nil
	}, nil
}
