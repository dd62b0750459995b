package main

import (
	"os"

	"github.com/wonny/hawkeye/cmd/hawkeye/commands"
)

// main is the entry point for the hawkeye CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/hawkeye [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
