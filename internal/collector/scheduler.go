package collector

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler repeats a run at a fixed interval. Runs never overlap: the next
// tick is only observed after the previous run has returned, and ticks missed
// while a run is in progress are dropped.
type Scheduler struct {
	run      func(ctx context.Context) error
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that calls run every interval.
func NewScheduler(run func(ctx context.Context) error, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		run:      run,
		interval: interval,
		logger:   logger,
	}
}

// Run runs once immediately, then on each tick, until ctx is canceled. A
// failed run is logged and does not stop the schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.run(ctx); err != nil {
		s.logger.Error("scheduled run failed", "err", err, "next_in", s.interval)
	}
}
