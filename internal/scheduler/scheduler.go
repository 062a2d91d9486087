// Package scheduler runs the pipeline on cron cadences and owns the
// cancellation of in-flight work.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler wraps a cron runner with an explicit lifecycle: jobs get a
// context that Stop cancels, so shutdown interrupts in-flight runs instead
// of abandoning them.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. Cron expressions use the six-field form with
// seconds.
func New(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a named job on a cron spec.
func (s *Scheduler) Add(spec, name string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Info().Str("job", name).Msg("Scheduled job starting")
		job(s.ctx)
		s.logger.Info().Str("job", name).Msg("Scheduled job finished")
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("job", name).Str("spec", spec).Msg("Job registered")
	return nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}
