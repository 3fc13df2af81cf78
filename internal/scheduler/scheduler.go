// Package scheduler triggers discovery runs on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// Job is one scheduled unit of work
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron. Overlapping ticks are skipped while a run
// is still in progress.
type Scheduler struct {
	cron       *cron.Cron
	job        Job
	spec       string
	runOnStart bool
	logger     *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler that fires every intervalHours hours
func New(job Job, intervalHours int, runOnStart bool, logger *logging.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: job is required")
	}
	if intervalHours <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive, got %d", intervalHours)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	cl := cron.PrintfLogger(logger)
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		job:        job,
		spec:       fmt.Sprintf("@every %dh", intervalHours),
		runOnStart: runOnStart,
		logger:     logger,
	}, nil
}

// Spec returns the cron expression in use
func (s *Scheduler) Spec() string {
	return s.spec
}

// Start registers the job and starts ticking. With runOnStart one run is
// triggered immediately without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	entry, err := s.cron.AddFunc(s.spec, func() { s.run(ctx, "tick") })
	if err != nil {
		cancel()
		return fmt.Errorf("scheduler: add %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec, "next", s.cron.Entry(entry).Next)

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(ctx, "startup")
		}()
	}
	return nil
}

// run is also guarded by cron.Stop, which waits for running ticks
func (s *Scheduler) run(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("scheduled run started", "trigger", trigger)
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "trigger", trigger, "err", err)
		return
	}
	s.logger.Info("scheduled run finished", "trigger", trigger)
}

// Shutdown stops ticking, cancels an in-flight run and waits for it
func (s *Scheduler) Shutdown(ctx context.Context) error {
	stopped := s.cron.Stop()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: shutdown: %w", ctx.Err())
	}
}
