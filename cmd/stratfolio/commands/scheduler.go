package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stratfolio/internal/scheduler"
	"github.com/wonny/stratfolio/internal/scheduler/jobs"
	"github.com/wonny/stratfolio/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `증거금 요율 갱신 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/stratfolio scheduler start
  go run ./cmd/stratfolio scheduler run margin_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- margin_refresh: MARGIN_REFRESH_SCHEDULE (기본 매일 06:00, intraday + overnight)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stratfolio Scheduler ===")

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	// Start scheduler
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()

	for _, stat := range sched.GetJobStats() {
		fmt.Printf("📊 %s: %d runs, %.1f%% success\n", stat.JobName, stat.TotalRuns, stat.SuccessRate*100)
	}
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Println("Registered jobs:")
	for _, stat := range sched.GetJobStats() {
		fmt.Printf("  - %s (%s)\n", stat.JobName, stat.Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := sched.RunJobSync(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs", jobName, result.Duration.Seconds()))
	return nil
}

func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	// 1. Wire engine (config, logger, margin provider)
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return nil, nil, err
	}

	provider, err := a.requireProvider()
	if err != nil {
		a.Close()
		return nil, nil, err
	}

	// 2. Create scheduler
	sched := scheduler.New(a.log.WithComponent("scheduler"))

	// 3. Register jobs
	job := jobs.NewMarginRefreshJob(provider, a.cfg.Margin.RefreshSchedule, a.log.WithComponent("margin_refresh"))

	// 여러 인스턴스가 같은 저장소를 쓰면 Redis 락으로 한 곳에서만 갱신
	if a.cfg.Redis.Enabled {
		client, err := redis.New(cmd.Context(), a.cfg)
		if err != nil {
			a.log.WithError(err).Warn("Redis unavailable, margin refresh runs without lock")
		} else {
			a.closers = append(a.closers, func() { client.Close() })
			job.WithLocker(redis.NewCache(client, "stratfolio"), redis.TTLLock)
		}
	}

	if err := sched.AddJob(job); err != nil {
		a.Close()
		return nil, nil, err
	}

	return a, sched, nil
}
