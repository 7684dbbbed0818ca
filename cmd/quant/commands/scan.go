package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/selection"
	"github.com/wonny/vnquant/pkg/redis"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "시장 스캔",
	Long: `여러 종목을 평가하고 점수순으로 정렬합니다.

Subcommands:
  market     - 투자 기간별 시장 스캔 (Redis/PostgreSQL 저장)
  universe   - 지정 종목(또는 유니버스) 스캔 + 프리셋 필터
  breakouts  - 50일선 거래량 돌파
  oversold   - 과매도 (RSI < 30 또는 볼린저 하단)
  compare    - 캐시 종목 비교표 (CSV 저장 가능)

Example:
  go run ./cmd/quant scan market --type MEDIUM_TERM --top 20
  go run ./cmd/quant scan universe VNM FPT HPG --preset strong_buy
  go run ./cmd/quant scan compare --category monthly --csv out.csv`,
}

var (
	scanMarketCmd = &cobra.Command{
		Use:   "market",
		Short: "투자 기간별 시장 스캔",
		RunE:  runScanMarket,
	}

	scanUniverseCmd = &cobra.Command{
		Use:   "universe [symbols...]",
		Short: "지정 종목 스캔",
		RunE:  runScanUniverse,
	}

	scanBreakoutsCmd = &cobra.Command{
		Use:   "breakouts",
		Short: "50일선 돌파 종목",
		RunE:  runScanBreakouts,
	}

	scanOversoldCmd = &cobra.Command{
		Use:   "oversold",
		Short: "과매도 종목",
		RunE:  runScanOversold,
	}

	scanCompareCmd = &cobra.Command{
		Use:   "compare",
		Short: "캐시 종목 비교표",
		RunE:  runScanCompare,
	}
)

var (
	scanType     string
	marketTop    int
	universeTop  int
	compareTop   int
	scanPeriod   string
	scanPreset   string
	scanFund     bool
	scanCategory string
	scanCSV      string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanMarketCmd)
	scanCmd.AddCommand(scanUniverseCmd)
	scanCmd.AddCommand(scanBreakoutsCmd)
	scanCmd.AddCommand(scanOversoldCmd)
	scanCmd.AddCommand(scanCompareCmd)

	scanMarketCmd.Flags().StringVar(&scanType, "type", "SHORT_TERM", "SHORT_TERM | MEDIUM_TERM | LONG_TERM")
	scanMarketCmd.Flags().IntVar(&marketTop, "top", 0, "상위 N개 (기본: 전략 scan.top_n)")

	scanUniverseCmd.Flags().StringVar(&scanPeriod, "period", "", "조회 기간 (기본 1Y)")
	scanUniverseCmd.Flags().StringVar(&scanPreset, "preset", "", "전략 프리셋 이름")
	scanUniverseCmd.Flags().BoolVar(&scanFund, "fundamentals", false, "기본적 분석 포함")
	scanUniverseCmd.Flags().IntVar(&universeTop, "top", 0, "상위 N개 (0 = 전체)")

	scanCompareCmd.Flags().StringVar(&scanCategory, "category", "overall", "overall | monthly | quarterly | technical | low_risk | high_volume")
	scanCompareCmd.Flags().IntVar(&compareTop, "top", 10, "상위 N개")
	scanCompareCmd.Flags().StringVar(&scanCSV, "csv", "", "CSV 파일 경로")
}

func runScanMarket(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	inv, err := contracts.ParseInvestmentType(scanType)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	top := marketTop
	if top <= 0 {
		top = a.strategy.Scan.TopN
	}

	PrintHeader(fmt.Sprintf("🔎 시장 스캔: %s", inv), fmt.Sprintf("Top %d, 기간 %s", top, inv.Period()))

	report, err := a.scanner.ScanMarket(ctx, inv, top, progressPrinter("scan"))
	if err != nil {
		return fmt.Errorf("scan market: %w", err)
	}

	if err := a.cache.Set(ctx, redis.ScanReportKey(string(inv)), report, redis.TTLScanReport); err != nil {
		a.log.WithError(err).Warn("Failed to cache scan report")
	}
	if a.reportRepo != nil {
		if err := a.reportRepo.SaveReport(ctx, report); err != nil {
			a.log.WithError(err).Warn("Failed to save scan report")
		}
	}

	printScanReport(report)
	return nil
}

func runScanUniverse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req := selection.ScanRequest{Period: strings.ToUpper(scanPeriod), Fundamentals: scanFund, TopN: universeTop}
	if scanPreset != "" {
		c, ok := a.strategy.Preset(scanPreset)
		if !ok {
			return fmt.Errorf("unknown preset %q", scanPreset)
		}
		req.Criteria = &c
	}

	symbols := args
	if len(symbols) == 0 {
		u, err := a.universe.Build(ctx)
		if err != nil {
			return fmt.Errorf("build universe: %w", err)
		}
		symbols = u.Stocks
	}

	PrintHeader("🔎 종목 스캔", fmt.Sprintf("종목 %d개, preset: %s", len(symbols), orDash(scanPreset)))

	report, err := a.scanner.ScanUniverse(ctx, symbols, req, progressPrinter("scan"))
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	printScanReport(report)
	return nil
}

func runScanBreakouts(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("🚀 50일선 돌파")

	found, err := a.scanner.FindBreakouts(cmd.Context(), progressPrinter("breakouts"))
	if err != nil {
		return err
	}
	if len(found) == 0 {
		PrintInfo("돌파 종목 없음")
		return nil
	}

	widths := []int{6, 10, 12, 12, 8, 6}
	PrintTableHeader([]string{"종목", "날짜", "가격", "SMA50", "거래량x", "RSI"}, widths)
	for _, b := range found {
		PrintTableRow([]string{
			b.Symbol,
			b.Date.Format("2006-01-02"),
			price(b.Price),
			price(b.SMA50),
			fmt.Sprintf("%.2f", b.VolumeRatio),
			fmt.Sprintf("%.1f", b.RSI),
		}, widths)
	}
	return nil
}

func runScanOversold(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("📉 과매도")

	found, err := a.scanner.FindOversold(cmd.Context(), progressPrinter("oversold"))
	if err != nil {
		return err
	}
	if len(found) == 0 {
		PrintInfo("과매도 종목 없음")
		return nil
	}

	widths := []int{6, 10, 12, 6, 16}
	PrintTableHeader([]string{"종목", "날짜", "가격", "RSI", "볼린저"}, widths)
	for _, o := range found {
		PrintTableRow([]string{
			o.Symbol,
			o.Date.Format("2006-01-02"),
			price(o.Price),
			optional(o.RSI, "%.1f"),
			orDash(o.BBPosition),
		}, widths)
	}
	return nil
}

func runScanCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	category, err := selection.ParseCategory(scanCategory)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	listing, err := a.data.MarketOverview(ctx)
	if err != nil {
		return fmt.Errorf("market overview: %w", err)
	}
	if len(listing) == 0 {
		PrintWarning("캐시가 비어 있습니다. 먼저 'quant cache update' 를 실행하세요.")
		return nil
	}

	PrintHeader("📊 비교표", fmt.Sprintf("캐시 종목 %d개, category: %s", len(listing), category))

	report, err := a.scanner.ComparisonTable(ctx, listing, progressPrinter("compare"))
	if err != nil {
		return err
	}

	if scanCSV != "" {
		f, err := os.Create(scanCSV)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		if err := selection.WriteCSV(f, report.Results); err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("CSV 저장: %s (%d행)", scanCSV, len(report.Results)))
	}

	report.Results = selection.TopPerformers(report.Results, category, compareTop)
	printScanReport(report)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
