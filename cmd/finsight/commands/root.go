package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagPeriod  string
	flagFreq    string
	flagSegment string
	flagTTM     bool
	flagStrict  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "finsight - 재무 팩트 확정/계산 엔진",
	Long: `finsight Unified CLI

여러 외부 소스에서 재무 수치를 수집하고 교차 검증한 뒤,
출처가 추적되는 지표 계산 결과를 제공합니다.

Usage:
  go run ./cmd/finsight [command]

Examples:
  go run ./cmd/finsight ingest AAPL
  go run ./cmd/finsight calc AAPL gross_margin
  go run ./cmd/finsight explain AAPL "revenue - costOfRevenue"
  go run ./cmd/finsight resolve AAPL us-gaap:Revenues
  go run ./cmd/finsight scheduler start --tickers AAPL,MSFT`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPeriod, "period", "latest", "period (latest, 2024-Q4, 2024)")
	rootCmd.PersistentFlags().StringVar(&flagFreq, "freq", "Q", "reporting frequency (Q|A)")
	rootCmd.PersistentFlags().StringVar(&flagSegment, "segment", "", "business segment filter")
	rootCmd.PersistentFlags().BoolVar(&flagTTM, "ttm", false, "trailing twelve months")
	rootCmd.PersistentFlags().BoolVar(&flagStrict, "strict-periods", false, "fail on mismatched input periods")
}
