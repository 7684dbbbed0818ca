package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

// dataCheckCmd represents the data check command
var dataCheckCmd = &cobra.Command{
	Use:   "data-check",
	Short: "캐시 데이터 상태 확인",
	Long: `일봉 캐시가 스캔에 충분한지 확인합니다.

확인 항목:
- 캐시 통계 (종목 수, 레코드 수, 기간, 크기)
- 유니버스 구성 및 제외 사유
- 품질 게이트 (최신성, 이력 길이, 커버리지)

Example:
  go run ./cmd/quant data-check
  go run ./cmd/quant data-check --date 2024-06-28`,
	RunE: runDataCheck,
}

var dataCheckDate string

func init() {
	rootCmd.AddCommand(dataCheckCmd)

	dataCheckCmd.Flags().StringVar(&dataCheckDate, "date", "", "기준일 YYYY-MM-DD (기본: 오늘)")
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Println("=== vnquant Data Check ===")

	asOf := time.Now()
	if dataCheckDate != "" {
		d, err := time.Parse("2006-01-02", dataCheckDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		asOf = d
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// 1. 캐시 통계
	stats, err := a.data.Stats(ctx)
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	printCacheStats(stats)

	// 2. 유니버스
	universe, err := a.universe.Build(ctx)
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}

	PrintHeader("🌐 유니버스")
	PrintKeyValue("Stocks", volume(int64(universe.Count())), 10)
	PrintKeyValue("Excluded", volume(int64(len(universe.Excluded))), 10)

	reasons := make(map[string]int)
	for _, reason := range universe.Excluded {
		reasons[reason]++
	}
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("      %-24s %d\n", k, reasons[k])
	}

	// 3. 품질 게이트
	snapshot, err := a.gate.Check(ctx, universe.Stocks, asOf)
	if err != nil {
		return fmt.Errorf("quality check: %w", err)
	}

	PrintHeader("🧪 품질 게이트", fmt.Sprintf("기준일 %s", snapshot.Date.Format("2006-01-02")))
	PrintKeyValue("Valid", fmt.Sprintf("%d / %d", snapshot.ValidStocks, snapshot.TotalStocks), 10)
	PrintKeyValue("Score", fmt.Sprintf("%.1f%%", snapshot.QualityScore*100), 10)

	coverageKeys := make([]string, 0, len(snapshot.Coverage))
	for k := range snapshot.Coverage {
		coverageKeys = append(coverageKeys, k)
	}
	sort.Strings(coverageKeys)
	for _, k := range coverageKeys {
		PrintKeyValue(k, fmt.Sprintf("%.1f%%", snapshot.Coverage[k]*100), 10)
	}

	printSymbols("Stale", snapshot.Stale)
	printSymbols("Missing", snapshot.Missing)

	fmt.Println()
	if !snapshot.Passed {
		PrintWarning("품질 기준 미달: 'quant cache update' 로 캐시를 갱신하세요.")
		return nil
	}
	PrintSuccess("품질 기준 통과")
	return nil
}

// printSymbols prints at most 20 symbols of a list
func printSymbols(label string, symbols []string) {
	if len(symbols) == 0 {
		return
	}
	shown := symbols
	if len(shown) > 20 {
		shown = shown[:20]
	}
	PrintKeyValue(label, fmt.Sprintf("%d %v", len(symbols), shown), 10)
}
