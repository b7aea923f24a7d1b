package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// explainCmd evaluates an ad-hoc formula with full provenance
var explainCmd = &cobra.Command{
	Use:   "explain [ticker] [expression]",
	Short: "임의 수식 계산",
	Long: `레지스트리 입력명으로 구성된 임의 수식을 계산합니다.

수식에는 사칙연산, 괄호, 그리고 ttm/avg/yoy/qoq/cagr/per_share
함수를 사용할 수 있습니다. 입력명 뒤의 ?는 선택 입력(결측 시 0)을
의미합니다.

Example:
  go run ./cmd/finsight explain AAPL "revenue - costOfRevenue"
  go run ./cmd/finsight explain AAPL "(operatingCashFlow - capex?) / revenue"`,
	Args: cobra.ExactArgs(2),
	RunE: runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	ticker, expr := args[0], args[1]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if err := ingestTicker(ctx, a, ticker); err != nil {
		a.logger.WithError(err).Warn("Facts ingest failed, falling back to external sources")
	}

	result, err := a.engine.Explain(ctx, a.request(ticker, ""), expr)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
