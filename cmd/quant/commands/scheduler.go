package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/vnquant/internal/s0_data/collector"
	"github.com/wonny/vnquant/internal/scheduler"
	"github.com/wonny/vnquant/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

작업 스케줄은 전략 파일(schedule 섹션)에서 읽습니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행 (동기)
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run market_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업 (기본 전략, Asia/Ho_Chi_Minh):
- cache_update: 평일 15:30 (유니버스 생성 + 일봉 캐시 갱신)
- market_scan: 평일 16:00 (SHORT/MEDIUM/LONG 시장 스캔 → Redis)
- cache_cleanup: 일요일 03:00 (보관 기간 지난 일봉 삭제)

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

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== vnquant Scheduler ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, sched, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printNextRuns(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	printNextRuns(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	result, err := sched.RunNow(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	PrintKeyValue("Duration", result.Duration.Round(time.Millisecond).String(), 10)
	PrintKeyValue("Attempts", fmt.Sprintf("%d", result.Attempts), 10)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess("Job completed")
	return nil
}

// showStatus prints run statistics. History lives in process memory, so a fresh
// process shows zero runs for every job.
func showStatus(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}

		if stat.LastSuccess != nil {
			fmt.Printf("   Last Success: %s\n", stat.LastSuccess.Format("2006-01-02 15:04:05"))
		}

		if stat.LastFailure != nil {
			fmt.Printf("   Last Failure: %s\n", stat.LastFailure.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}

func printNextRuns(sched *scheduler.Scheduler) {
	next := sched.NextRuns(time.Now())

	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %-14s next: %s (%s)\n",
			jobName, next[jobName].Format("2006-01-02 15:04 MST"), age(next[jobName]))
	}
}

func initScheduler(ctx context.Context) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	sc := a.strategy.Schedule
	cfg := scheduler.DefaultConfig()
	if sc.Timezone != "" {
		loc, err := time.LoadLocation(sc.Timezone)
		if err != nil {
			a.Close()
			return nil, nil, fmt.Errorf("load timezone %q: %w", sc.Timezone, err)
		}
		cfg.Location = loc
	}

	sched := scheduler.New(a.log, cfg)

	colCfg := collector.DefaultConfig()
	if a.strategy.Scan.Workers > 0 {
		colCfg.Workers = a.strategy.Scan.Workers
	}

	// 선택 저장소는 nil 인터페이스로 넘김
	var updateJob *jobs.CacheUpdateJob
	if a.universeRepo != nil {
		updateJob = jobs.NewCacheUpdateJob(sc.CacheUpdate, a.universe, a.universeRepo, a.collector, a.gate, colCfg, a.log)
	} else {
		updateJob = jobs.NewCacheUpdateJob(sc.CacheUpdate, a.universe, nil, a.collector, a.gate, colCfg, a.log)
	}

	var scanJob *jobs.MarketScanJob
	if a.reportRepo != nil {
		scanJob = jobs.NewMarketScanJob(sc.MarketScan, a.scanner, a.cache, a.reportRepo, a.strategy.Scan.TopN, a.log)
	} else {
		scanJob = jobs.NewMarketScanJob(sc.MarketScan, a.scanner, a.cache, nil, a.strategy.Scan.TopN, a.log)
	}

	for _, job := range []scheduler.Job{
		updateJob,
		scanJob,
		jobs.NewCacheCleanupJob(sc.CacheCleanup, a.data, a.cfg.Cache.RetentionDays, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	return a, sched, nil
}
