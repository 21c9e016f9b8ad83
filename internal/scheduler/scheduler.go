// Package scheduler runs the collection pipeline once or on a fixed
// interval.
package scheduler

import (
	"context"
	"time"

	"github.com/elonfeng/trendradar/internal/logging"
)

// Runner is satisfied by *Pipeline.
type Runner interface {
	RunOnce(ctx context.Context) (*Run, error)
}

// Scheduler runs the pipeline periodically.
type Scheduler struct {
	runner   Runner
	interval time.Duration
}

// New creates a new scheduler. A zero interval means one hour.
func New(r Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{runner: r, interval: interval}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logging.Component("scheduler")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	log.Info().Msg("initial run")
	s.runOnce(ctx)

	log.Info().Dur("interval", s.interval).Msg("running")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.RunOnce(ctx); err != nil {
		logging.Component("scheduler").Error().Err(err).Msg("pipeline run failed")
	}
}
