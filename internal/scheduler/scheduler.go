// Package scheduler runs cron-style background jobs alongside the three
// ticker-driven sweep loops in internal/engine. It exists for work that is
// naturally calendar-shaped (a daily digest, an end-of-day rollup) rather
// than interval-shaped, where a time.Ticker would be the wrong tool.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a unit of scheduled work. Run reports any failure; the
// scheduler logs it and continues rather than killing the cron loop.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages cron-scheduled background jobs.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New constructs a Scheduler. Schedules are parsed with seconds support.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins running registered jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop waits for any in-flight job to finish, then halts the cron loop.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// AddJob registers job against a cron schedule expression, e.g.
// "0 */5 * * * *" (every 5 minutes) or "@every 30s".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("running job")
		if err := job.Run(); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("job failed")
			return
		}
		s.log.Debug().Str("job", job.Name()).Msg("job completed")
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("job registered")
	return nil
}
