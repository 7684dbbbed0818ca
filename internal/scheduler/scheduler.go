package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/vnquant/pkg/logger"
)

// ErrJobNotFound is returned for unknown job names
var ErrJobNotFound = errors.New("job not found")

// Config holds retry and timezone settings
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
	Location   *time.Location // cron 해석 기준 시간대, nil이면 Local
}

// DefaultConfig returns 3 retries one minute apart
func DefaultConfig() Config {
	return Config{MaxRetries: 3, RetryDelay: time.Minute}
}

type entry struct {
	job Job
	id  cron.EntryID
}

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]entry
	history map[string]*JobHistory
	mu      sync.RWMutex

	// Retry configuration
	maxRetries int
	retryDelay time.Duration

	// Stop 시 실행 중인 작업 취소
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler
func New(log *logger.Logger, cfg Config) *Scheduler {
	opts := []cron.Option{cron.WithSeconds()}
	if cfg.Location != nil {
		opts = append(opts, cron.WithLocation(cfg.Location))
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(opts...),
		logger:     log.Module("scheduler"),
		jobs:       make(map[string]entry),
		history:    make(map[string]*JobHistory),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobName := job.Name()

	if _, exists := s.jobs[jobName]; exists {
		return fmt.Errorf("job %s already exists", jobName)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(s.ctx, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	s.jobs[jobName] = entry{job: job, id: id}
	s.history[jobName] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      jobName,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob removes a job and its cron entry
func (s *Scheduler) RemoveJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[jobName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	s.cron.Remove(e.id)
	delete(s.jobs, jobName)
	s.logger.WithField("job", jobName).Info("Job removed from scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob runs a specific job immediately in the background
func (s *Scheduler) RunJob(jobName string) error {
	job, err := s.lookup(jobName)
	if err != nil {
		return err
	}

	go s.runJob(s.ctx, job)
	return nil
}

// RunNow runs a job synchronously with retries and returns its result
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (JobResult, error) {
	job, err := s.lookup(jobName)
	if err != nil {
		return JobResult{}, err
	}
	return s.runJob(ctx, job), nil
}

func (s *Scheduler) lookup(jobName string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.jobs[jobName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	return e.job, nil
}

// runJob executes a job with retry logic
func (s *Scheduler) runJob(ctx context.Context, job Job) JobResult {
	jobName := job.Name()
	startTime := time.Now()

	s.logger.WithField("job", jobName).Info("Job started")

	var lastErr error
	var success bool
	attempts := 0

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attempts++
		err := job.Run(ctx)
		if err == nil {
			success = true
			break
		}

		lastErr = err
		s.logger.WithFields(map[string]interface{}{
			"job":     jobName,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Job execution failed, retrying")

		if attempt == s.maxRetries {
			break
		}
		// 재시도 대기 중 취소되면 중단
		select {
		case <-ctx.Done():
			lastErr = fmt.Errorf("%w (after: %v)", ctx.Err(), err)
			attempt = s.maxRetries
		case <-time.After(s.retryDelay):
		}
	}

	endTime := time.Now()
	duration := endTime.Sub(startTime)

	result := JobResult{
		JobName:   jobName,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  duration,
		Attempts:  attempts,
		Success:   success,
	}
	if !success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if history, exists := s.history[jobName]; exists {
		history.AddResult(result)
	}
	s.mu.Unlock()

	if success {
		s.logger.WithFields(map[string]interface{}{
			"job":      jobName,
			"attempts": attempts,
			"duration": duration,
		}).Info("Job completed successfully")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"job":      jobName,
			"duration": duration,
			"error":    result.Error,
		}).Error("Job failed after all retries")
	}

	return result
}

// GetJobHistory returns the history for a specific job
func (s *Scheduler) GetJobHistory(jobName string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[jobName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	return history, nil
}

// GetAllJobs returns all registered job names, sorted
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.jobs))
	for jobName := range s.jobs {
		jobs = append(jobs, jobName)
	}
	sort.Strings(jobs)

	return jobs
}

// NextRuns returns the next activation time of every job
func (s *Scheduler) NextRuns(from time.Time) map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	next := make(map[string]time.Time, len(s.jobs))
	for name, e := range s.jobs {
		if sched := s.cron.Entry(e.id).Schedule; sched != nil {
			next[name] = sched.Next(from)
		}
	}
	return next
}

// GetJobStats returns statistics for all registered jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats)

	for jobName, e := range s.jobs {
		history := s.history[jobName]
		latestResults := history.GetLatestResults(1)
		failedResults := history.GetFailedResults()

		var lastRun, lastSuccess, lastFailure *time.Time
		if len(latestResults) > 0 {
			lastResult := latestResults[0]
			lastRun = &lastResult.StartTime

			if lastResult.Success {
				lastSuccess = &lastResult.StartTime
			} else {
				lastFailure = &lastResult.StartTime
			}
		}

		stats[jobName] = JobStats{
			JobName:      jobName,
			Schedule:     e.job.Schedule(),
			TotalRuns:    len(history.Results),
			SuccessCount: len(history.Results) - len(failedResults),
			FailureCount: len(failedResults),
			SuccessRate:  history.GetSuccessRate(),
			LastRun:      lastRun,
			LastSuccess:  lastSuccess,
			LastFailure:  lastFailure,
		}
	}

	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}
