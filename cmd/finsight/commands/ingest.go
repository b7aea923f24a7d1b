package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// ingestCmd loads SEC company facts into the session store
var ingestCmd = &cobra.Command{
	Use:   "ingest [ticker...]",
	Short: "SEC 팩트 적재",
	Long: `SEC EDGAR companyfacts를 가져와 세션 스토어에 적재합니다.

Example:
  go run ./cmd/finsight ingest AAPL
  go run ./cmd/finsight ingest AAPL MSFT GOOGL`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	for _, ticker := range args {
		if err := ingestTicker(ctx, a, ticker); err != nil {
			return err
		}
	}

	return printJSON(a.store.Stats())
}

// ingestTicker fetches and stores one company's facts
func ingestTicker(ctx context.Context, a *app, ticker string) error {
	payload, err := a.sec.GetCompanyFacts(ctx, ticker)
	if err != nil {
		return err
	}
	return a.store.Ingest(payload)
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
