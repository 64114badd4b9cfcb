// Package monitoring runs periodic housekeeping jobs.
package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// SessionSweeper removes sessions idle for longer than the configured timeout.
type SessionSweeper interface {
	Sweep(now time.Time) int
}

// Scheduler runs housekeeping jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	done chan struct{}
}

// NewScheduler creates a Scheduler that sweeps idle sessions on spec,
// e.g. "@every 15m" or "*/5 * * * *".
func NewScheduler(sweeper SessionSweeper, spec string) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := sweeper.Sweep(time.Now()); n > 0 {
			log.Info().Int("expired", n).Msg("Swept idle sessions")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, done: make(chan struct{})}, nil
}

// Run starts the scheduler and blocks until Stop is called.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting background scheduler...")
	s.cron.Start()
	<-s.done
}

// Stop halts the scheduler and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	close(s.done)
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("Scheduler jobs still running at shutdown")
	}
	log.Info().Msg("Stopping background scheduler.")
}
