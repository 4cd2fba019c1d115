package main

import (
	"os"

	"github.com/wonny/stratfolio/cmd/stratfolio/commands"
)

// main is the entry point for the Stratfolio CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stratfolio [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
