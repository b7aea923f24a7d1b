package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/finsight/internal/scheduler"
	"github.com/wonny/finsight/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `백그라운드 작업 스케줄러를 시작하거나 작업을 관리합니다.

등록되는 작업:
- facts_refresh: 평일 오전 6시 (워치리스트 SEC 팩트 갱신)

Subcommands:
  start    - 스케줄러 시작
  list     - 등록된 작업 목록
  run      - 특정 작업 즉시 실행
  history  - 작업 실행 이력 조회

Example:
  go run ./cmd/finsight scheduler start
  go run ./cmd/finsight scheduler run facts_refresh`,
}

var (
	flagTickers []string

	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

워치리스트는 WATCHLIST_TICKERS, 주기는 FACTS_REFRESH_CRON으로
설정합니다. 스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runSchedulerStart,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  runSchedulerList,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerHistoryCmd = &cobra.Command{
		Use:   "history [job_name]",
		Short: "작업 실행 이력 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerHistory,
	}
)

func init() {
	schedulerCmd.PersistentFlags().StringSliceVar(&flagTickers, "tickers", nil, "watchlist override (default WATCHLIST_TICKERS)")
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerHistoryCmd)
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	fmt.Println("Scheduler started")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Printf("Running job: %s\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is fire-and-forget; block until interrupted so the
	// one-off run can actually finish
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	fmt.Println("Job started. Press Ctrl+C to exit")
	<-quit

	return nil
}

func runSchedulerHistory(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	history, err := sched.GetJobHistory(jobName)
	if err != nil {
		return err
	}

	results := history.GetLatestResults(20)
	if len(results) == 0 {
		fmt.Printf("No runs recorded for %s\n", jobName)
		return nil
	}

	fmt.Printf("Recent runs for %s (success rate %.1f%%):\n\n", jobName, history.GetSuccessRate()*100)
	for _, r := range results {
		status := "OK"
		if !r.Success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s  %s", status, r.StartTime.Format("2006-01-02 15:04:05"), r.Duration)
		if r.Error != "" {
			fmt.Printf("  (%s)", r.Error)
		}
		fmt.Println()
	}
	return nil
}

// initScheduler builds the app and registers all background jobs
func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}

	watchlist := a.cfg.Scheduler.Watchlist
	if len(flagTickers) > 0 {
		watchlist = flagTickers
	}

	sched := scheduler.New(a.logger)
	if err := sched.AddJob(jobs.NewFactsRefreshJob(
		a.sec, a.store, watchlist, a.cfg.Scheduler.RefreshCron, a.logger,
	)); err != nil {
		a.close()
		return nil, nil, err
	}

	return a, sched, nil
}
