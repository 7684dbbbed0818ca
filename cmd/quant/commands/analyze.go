package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/vnquant/internal/contracts"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol]",
	Short: "단일 종목 평가",
	Long: `한 종목의 기술적·기본적 점수, 매매 신호, 진입/청산 가격을 계산합니다.

기간: 1M, 3M, 6M, 1Y, 3Y, 5Y

Example:
  go run ./cmd/quant analyze VNM
  go run ./cmd/quant analyze FPT --period 6M --fundamentals=false
  go run ./cmd/quant analyze HPG --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzePeriod       string
	analyzeFundamentals bool
	analyzeJSON         bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzePeriod, "period", "1Y", "조회 기간")
	analyzeCmd.Flags().BoolVar(&analyzeFundamentals, "fundamentals", true, "기본적 분석 포함")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "JSON 출력")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	eval, err := a.scanner.Analyze(cmd.Context(), args[0], analyzePeriod, analyzeFundamentals)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", args[0], err)
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(eval)
	}

	printEvaluation(eval)
	return nil
}

func printEvaluation(e *contracts.Evaluation) {
	PrintHeader(fmt.Sprintf("📈 %s  %s", e.Symbol, e.Date.Format("2006-01-02")),
		fmt.Sprintf("종가 %s", price(e.Close)))

	PrintKeyValue("종합 점수", fmt.Sprintf("%.1f", e.OverallScore), 10)
	PrintKeyValue("기술 점수", fmt.Sprintf("%.1f", e.TechnicalScore), 10)
	PrintKeyValue("기본 점수", fmt.Sprintf("%.1f", e.FundamentalScore), 10)
	PrintKeyValue("추천", e.Signal, 10)
	PrintKeyValue("추세", e.Trend, 10)
	PrintKeyValue("투자 기간", strings.Join(e.Timeframes, ", "), 10)

	if len(e.Signals) > 0 {
		fmt.Println()
		fmt.Println("📡 Signals")
		for _, s := range e.Signals {
			fmt.Printf("   %-4s %-6s %-6s %s\n", s.Type, s.Indicator, s.Strength, s.Reason)
		}
	}

	if len(e.EntryPoints) > 0 || len(e.ExitPoints) > 0 {
		fmt.Println()
		fmt.Println("🎯 Entry / Exit")
		for _, p := range e.EntryPoints {
			fmt.Printf("   %-10s %12s  %s\n", p.Type, price(p.Price), p.Reason)
		}
		for _, p := range e.ExitPoints {
			pct := ""
			switch {
			case p.ProfitPct != nil:
				pct = fmt.Sprintf("+%.2f%%", *p.ProfitPct)
			case p.LossPct != nil:
				pct = fmt.Sprintf("%.2f%%", *p.LossPct)
			}
			fmt.Printf("   %-10s %12s  %-8s %s\n", p.Type, price(p.Price), pct, p.Reason)
		}
		if rr := e.RiskReward; rr != nil {
			fmt.Printf("   R/R 1:%.2f (익절 %s / 손절 %s)\n", rr.Ratio, price(rr.TakeProfit), price(rr.StopLoss))
		}
	}

	if f := e.Fundamentals; f != nil {
		fmt.Println()
		fmt.Printf("🏢 Fundamentals (%.1f)\n", f.Score)
		for _, b := range []struct {
			name  string
			block contracts.AnalysisBlock
		}{
			{"Valuation", f.Valuation},
			{"Profitability", f.Profitability},
			{"Health", f.FinancialHealth},
			{"Growth", f.Growth},
		} {
			fmt.Printf("   %-13s %s\n", b.name, b.block.Verdict)
			for _, d := range b.block.Details {
				fmt.Printf("      [%s] %s\n", d.Grade, d.Text)
			}
		}
	}
	fmt.Println()
}
