package commands

import (
	"github.com/spf13/cobra"
)

// metricsCmd lists the metrics defined in the KPI registry
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "지표 목록",
	Long: `KPI 레지스트리에 정의된 지표 목록을 출력합니다.

Example:
  go run ./cmd/finsight metrics`,
	RunE: runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	out := make([]map[string]string, 0)
	for _, name := range a.registry.MetricNames() {
		m, _ := a.registry.GetMetric(name)
		out = append(out, map[string]string{
			"name":        name,
			"expr":        m.Expr,
			"output":      string(m.Output),
			"description": m.Description,
		})
	}
	return printJSON(out)
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}
