package main

import (
	"os"

	"github.com/wonny/vnquant/cmd/quant/commands"
)

// main is the entry point for the vnquant CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/quant [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
