package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a job immediately and then at a fixed interval. Runs never
// overlap; a tick that arrives while the job is still running is skipped.
type Scheduler struct {
	interval time.Duration
	job      Job
	logger   *slog.Logger
}

// NewScheduler creates a scheduler for job.
func NewScheduler(interval time.Duration, job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		job:      job,
		logger:   logger.With("component", "scheduler"),
	}
}

// Run blocks until ctx is cancelled and the running job, if any, returns.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{logger: s.logger}
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { s.runJob(ctx) }))

	c := cron.New(cron.WithLogger(cl))
	if _, err := c.AddJob("@every "+s.interval.String(), job); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}

	s.logger.Info("scheduler started", "interval", s.interval)
	job.Run()

	c.Start()
	<-ctx.Done()

	s.logger.Info("stopping scheduler")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled run complete", "duration", time.Since(start), "next_in", s.interval)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
