package main

import (
	"os"

	"github.com/wonny/stockrank/cmd/stockrank/commands"
)

// main is the entry point for the stockrank CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stockrank [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
