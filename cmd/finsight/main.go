package main

import (
	"os"

	"github.com/wonny/finsight/cmd/finsight/commands"
)

// main is the entry point for the finsight CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/finsight [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
