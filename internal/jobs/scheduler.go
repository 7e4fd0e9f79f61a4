// Package jobs runs periodic maintenance tasks on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultJobTimeout = 30 * time.Second

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs. A job still running when its next tick arrives
// is skipped, and a panicking job is recovered and logged.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	timeout time.Duration
}

func NewScheduler(log *zap.Logger) *Scheduler {
	cronLog := cronLogger{log: log.Named("cron").Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log:     log,
		timeout: defaultJobTimeout,
	}
}

// Add registers job under spec, which is a standard five field cron
// expression or a descriptor such as "@every 1m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Info("Job scheduled", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.log.Error("Job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.log.Debug("Job finished", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
