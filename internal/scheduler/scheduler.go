// Package scheduler runs the crawl job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/config"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler triggers Job on a cron spec. A trigger that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	job        Job
	runOnStart bool
	logger     *zap.Logger
}

// New parses cfg and prepares a stopped Scheduler.
func New(cfg config.ScheduleConfig, job Job, logger *zap.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler requires a job")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{
		cron:       c,
		spec:       cfg.Spec,
		job:        job,
		runOnStart: cfg.RunOnStart,
		logger:     logger,
	}, nil
}

// Run blocks until ctx is done, then waits for a running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runJob(ctx, "cron") }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	if s.runOnStart {
		s.runJob(ctx, "start")
	}
	s.cron.Start()
	if next := s.Next(); !next.IsZero() {
		s.logger.Info("scheduler started", zap.String("spec", s.spec), zap.Time("next_run", next))
	}

	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}

// RunOnce executes the job immediately, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.job(ctx)
}

// Next returns the next scheduled run, or zero before Run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runJob(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled crawl failed", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	s.logger.Info("scheduled crawl finished",
		zap.String("trigger", trigger),
		zap.Duration("duration", time.Since(start)),
	)
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
