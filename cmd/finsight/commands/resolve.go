package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/wonny/finsight/internal/contracts"
)

// resolveCmd resolves one fact across all sources with cross-validation
var resolveCmd = &cobra.Command{
	Use:   "resolve [ticker] [concept]",
	Short: "팩트 확정 (교차 검증)",
	Long: `하나의 재무 수치를 모든 소스에서 조회하고 교차 검증합니다.

출력에는 대표값과 함께 소스별 값, 평균/중앙값/표준편차,
신뢰도(high/medium/low)가 포함됩니다.

Example:
  go run ./cmd/finsight resolve AAPL us-gaap:Revenues
  go run ./cmd/finsight resolve AAPL current_price`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	ticker, concept := args[0], args[1]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.router.Resolve(context.Background(), contracts.FactQuery{
		Ticker:  ticker,
		Concept: concept,
		Period:  flagPeriod,
		Freq:    contracts.Freq(flagFreq),
		TTM:     flagTTM,
		Segment: flagSegment,
	})
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"fact":             res.Fact,
		"data_type":        res.DataType,
		"cross_validation": res.CrossValidation,
	})
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
