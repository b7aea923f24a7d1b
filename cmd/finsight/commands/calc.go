package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// calcCmd computes one registry metric
var calcCmd = &cobra.Command{
	Use:   "calc [ticker] [metric]",
	Short: "지표 계산",
	Long: `KPI 레지스트리에 정의된 지표를 계산합니다.

계산 전 해당 기업의 SEC 팩트를 자동으로 적재하고,
결과에는 입력 팩트, 인용 출처, 품질 플래그가 포함됩니다.

Example:
  go run ./cmd/finsight calc AAPL gross_margin
  go run ./cmd/finsight calc AAPL revenue_yoy --period 2024-Q4
  go run ./cmd/finsight calc AAPL roe --freq A`,
	Args: cobra.ExactArgs(2),
	RunE: runCalc,
}

func runCalc(cmd *cobra.Command, args []string) error {
	ticker, metric := args[0], args[1]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if err := ingestTicker(ctx, a, ticker); err != nil {
		a.logger.WithError(err).Warn("Facts ingest failed, falling back to external sources")
	}

	result, err := a.engine.CalculateMetric(ctx, a.request(ticker, metric))
	if err != nil {
		return err
	}

	if a.audit != nil {
		if err := a.audit.Record(ctx, result); err != nil {
			a.logger.WithError(err).Warn("Audit record failed")
		}
	}

	return printJSON(result)
}

func init() {
	rootCmd.AddCommand(calcCmd)
}
