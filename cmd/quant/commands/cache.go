package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/s0_data/collector"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "일봉 캐시 관리",
	Long: `외부 소스(VCI, Yahoo, CafeF)에서 일봉을 받아 로컬 캐시에 적재합니다.

Subcommands:
  update    - 유니버스(또는 지정 종목) 캐시 갱신
  stats     - 캐시 통계
  overview  - 종목별 최신 일봉
  cleanup   - 보관 기간이 지난 일봉 삭제

Example:
  go run ./cmd/quant cache update --workers 4
  go run ./cmd/quant cache update --symbols VNM,FPT --force
  go run ./cmd/quant cache cleanup --days 365`,
}

var (
	cacheUpdateCmd = &cobra.Command{
		Use:   "update",
		Short: "캐시 갱신",
		Long: `마지막 캐시 날짜 이후 일봉만 받아 적재합니다.
캐시가 비어 있으면 CACHE_INITIAL_DAYS 만큼 과거부터 적재합니다.
--symbols 가 없으면 종목 목록을 먼저 저장하고 유니버스 전체를 갱신합니다.`,
		RunE: runCacheUpdate,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "캐시 통계",
		RunE:  runCacheStats,
	}

	cacheOverviewCmd = &cobra.Command{
		Use:   "overview",
		Short: "종목별 최신 일봉",
		RunE:  runCacheOverview,
	}

	cacheCleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "오래된 일봉 삭제",
		RunE:  runCacheCleanup,
	}
)

var (
	// Cache flags
	cacheWorkers int
	cacheForce   bool
	cacheSymbols []string
	cacheDays    int
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheUpdateCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheOverviewCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)

	// Flags
	cacheUpdateCmd.Flags().IntVar(&cacheWorkers, "workers", 0, "동시 워커 수 (기본: 전략 scan.workers)")
	cacheUpdateCmd.Flags().BoolVar(&cacheForce, "force", false, "전체 기간 재적재")
	cacheUpdateCmd.Flags().StringSliceVar(&cacheSymbols, "symbols", nil, "갱신할 종목 (쉼표 구분)")
	cacheCleanupCmd.Flags().IntVar(&cacheDays, "days", 0, "보관 기간 (기본: CACHE_RETENTION_DAYS)")
}

func runCacheUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	symbols := make([]string, 0, len(cacheSymbols))
	for _, s := range cacheSymbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}

	if len(symbols) == 0 {
		// 종목 메타데이터 먼저 저장 (overview 의 이름/거래소)
		stocks, err := a.lister.ListSymbols(ctx)
		if err != nil {
			return fmt.Errorf("list symbols: %w", err)
		}
		if err := a.data.SaveListing(ctx, stocks); err != nil {
			return fmt.Errorf("save listing: %w", err)
		}

		universe, err := a.universe.Build(ctx)
		if err != nil {
			return fmt.Errorf("build universe: %w", err)
		}
		symbols = universe.Stocks
		if a.universeRepo != nil {
			if err := a.universeRepo.SaveUniverse(ctx, universe); err != nil {
				a.log.WithError(err).Warn("Failed to save universe snapshot")
			}
		}
	}

	cfg := collector.DefaultConfig()
	if a.strategy.Scan.Workers > 0 {
		cfg.Workers = a.strategy.Scan.Workers
	}
	if cacheWorkers > 0 {
		cfg.Workers = cacheWorkers
	}
	cfg.Force = cacheForce

	PrintHeader("📥 캐시 갱신",
		fmt.Sprintf("종목: %s", volume(int64(len(symbols)))),
		fmt.Sprintf("워커: %d, force: %v, backend: %s", cfg.Workers, cfg.Force, a.cfg.Cache.Backend))

	summary := a.collector.UpdateAll(ctx, symbols, cfg, progressPrinter("update"))

	fmt.Println()
	PrintKeyValue("Total", volume(int64(summary.Total)), 8)
	PrintKeyValue("Success", volume(int64(summary.Success)), 8)
	PrintKeyValue("Failed", volume(int64(summary.Failed)), 8)
	PrintKeyValue("Bars", volume(int64(summary.Bars)), 8)

	for _, r := range summary.Results {
		if r.Error != nil {
			fmt.Printf("   • %s: %v\n", r.Symbol, r.Error)
		}
	}

	if summary.Total > 0 && summary.Success == 0 {
		PrintError("모든 종목 갱신 실패")
		return fmt.Errorf("all %d symbols failed", summary.Total)
	}
	PrintSuccess("캐시 갱신 완료")
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.data.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}

	printCacheStats(stats)
	return nil
}

func printCacheStats(stats *contracts.CacheStats) {
	PrintHeader("🗄️  캐시 통계")
	PrintKeyValue("Backend", stats.Backend, 10)
	PrintKeyValue("Symbols", volume(int64(stats.TotalSymbols)), 10)
	PrintKeyValue("Records", volume(stats.TotalRecords), 10)
	if !stats.FirstDate.IsZero() {
		PrintKeyValue("First", stats.FirstDate.Format("2006-01-02"), 10)
		PrintKeyValue("Last", fmt.Sprintf("%s (%s)", stats.LastDate.Format("2006-01-02"), age(stats.LastDate)), 10)
	}
	if stats.SizeMB > 0 {
		PrintKeyValue("Size", sizeMB(stats.SizeMB), 10)
	}
}

func runCacheOverview(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.data.MarketOverview(cmd.Context())
	if err != nil {
		return fmt.Errorf("market overview: %w", err)
	}
	if len(rows) == 0 {
		PrintWarning("캐시가 비어 있습니다. 먼저 'quant cache update' 를 실행하세요.")
		return nil
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })

	widths := []int{6, 6, 10, 12, 14}
	PrintTableHeader([]string{"종목", "거래소", "날짜", "종가", "거래량"}, widths)
	for _, r := range rows {
		PrintTableRow([]string{
			r.Symbol,
			r.Exchange,
			r.Date.Format("2006-01-02"),
			price(r.Close),
			volume(r.Volume),
		}, widths)
	}
	return nil
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.data.Cleanup(cmd.Context(), cacheDays)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	PrintSuccess(fmt.Sprintf("%s개 일봉 삭제", volume(n)))
	return nil
}
