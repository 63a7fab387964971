// Package scheduler owns the background job runner that fires the daily
// accrual batch.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/riverqueue/river"

	"github.com/minerledger/backend/internal/execution"
)

// Runner is the lifecycle of the job client; *river.Client satisfies it.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Scheduler struct {
	mu      sync.Mutex
	runner  Runner
	enabled bool
	running bool
	log     *slog.Logger
}

func New(runner Runner, enabled bool, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{runner: runner, enabled: enabled, log: log}
}

// Start launches the runner once. It is a no-op when disabled or already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		s.log.Info("scheduler disabled, daily accrual will not run in this process")
		return nil
	}
	if s.running {
		return nil
	}
	if err := s.runner.Start(ctx); err != nil {
		return err
	}
	s.running = true
	s.log.Info("scheduler started")
	return nil
}

// Stop waits for in-flight jobs and stops the runner. Safe to call repeatedly.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	if err := s.runner.Stop(ctx); err != nil {
		return err
	}
	s.running = false
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// DailyAt fires once a day at hour:minute in loc.
type DailyAt struct {
	Hour, Minute int
	Location     *time.Location
}

var _ river.PeriodicSchedule = DailyAt{}

// Next returns the first firing time strictly after current.
func (d DailyAt) Next(current time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	t := current.In(loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(t) {
		next = time.Date(t.Year(), t.Month(), t.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}

// PeriodicJobs returns the daily accrual job for the river client config.
// The job date is the local calendar day at firing time.
func PeriodicJobs(at DailyAt) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(at, func() (river.JobArgs, *river.InsertOpts) {
			return execution.ArgsFor(time.Now(), at.Location), nil
		}, nil),
	}
}
