package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	env          string
	verbose      bool
	demoOnly     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "vnquant - 베트남 주식 스코어링/스캐닝 백엔드",
	Long: `vnquant Unified CLI

HOSE/HNX 종목의 기술적·기본적 점수, 매매 신호, 시장 스캔.
일봉 캐시(SQLite/PostgreSQL) 위에서 동작합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant analyze VNM --period 1Y
  go run ./cmd/quant scan market --type SHORT_TERM --top 20
  go run ./cmd/quant cache update --workers 4
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: STRATEGY_PATH or built-in)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&demoOnly, "demo", false, "use the offline demo source only")
}
