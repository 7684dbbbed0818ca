package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/vnquant/internal/api"
	"github.com/wonny/vnquant/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 종목 분석/패널/가격 조회 엔드포인트 제공
- 시장 스캔, 비교표, 돌파/과매도 탐색 제공
- 캐시 통계/갱신 및 WebSocket 스캔 진행 스트림 제공

Endpoints:
  GET  /health
  GET  /api/stocks                     - 종목 목록 (?exchange=HOSE)
  GET  /api/stocks/{symbol}/analysis   - 종목 평가 (?period=1Y&fundamentals=true)
  GET  /api/stocks/{symbol}/panel      - 지표 패널 (?period=6M&tail=60)
  GET  /api/stocks/{symbol}/prices     - 최근 일봉 (?days=30)
  POST /api/scan                       - 지정 종목 스캔
  GET  /api/scan/market                - 시장 스캔 (?type=SHORT_TERM&top=20&refresh=false)
  GET  /api/scan/latest                - 마지막 저장 리포트 (PostgreSQL)
  GET  /api/scan/breakouts             - 50일선 돌파
  GET  /api/scan/oversold              - 과매도
  GET  /api/market/comparison          - 비교표 (?category=overall&top=10&preset=...)
  GET  /api/cache/stats | /api/cache/overview
  POST /api/cache/update
  GET  /api/data/universe | /api/data/quality
  WS   /ws/scan                        - 스캔 진행 스트림

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== vnquant API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":     a.cfg.Port,
		"env":      a.cfg.Env,
		"cache":    a.cfg.Cache.Backend,
		"redis":    a.redis.Enabled(),
		"strategy": a.strategy.Meta.StrategyID,
	}).Info("Initializing API server")

	h := api.Handlers{
		Stock:   handlers.NewStockHandler(a.scanner, a.data, a.lister, a.log),
		Data:    handlers.NewDataHandler(a.data, a.universe, a.collector, a.gate, a.log),
		Ranking: handlers.NewRankingHandler(a.scanner, a.data, a.strategy.Presets, a.log),
		Stream:  handlers.NewScanStreamHandler(a.scanner, a.log),
	}
	if a.reportRepo != nil {
		h.Scan = handlers.NewScanHandler(a.scanner, a.cache, a.reportRepo, a.log)
	} else {
		// 리포트 저장소 없음 → /api/scan/latest 는 501
		h.Scan = handlers.NewScanHandler(a.scanner, a.cache, nil, a.log)
	}

	server := api.New(a.cfg, a.log, api.NewRouter(h, a.log))

	fmt.Printf("\n✅ Server running on http://localhost%s\n", server.Addr())
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx, 30*time.Second); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
