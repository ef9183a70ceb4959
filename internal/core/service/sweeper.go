package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultSweepInterval = time.Minute

// Sweeper drives the clock-dependent pipeline checks on a fixed interval:
// device-offline detection and stale-trip closure both need to fire even
// when a vehicle stops sending events. Cancelling the context stops the
// loop; a sweep already in flight finishes its bounded external calls.
type Sweeper struct {
	pipeline *Pipeline
	interval time.Duration
	log      zerolog.Logger
}

func NewSweeper(pipeline *Pipeline, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{pipeline: pipeline, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("offline sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("offline sweeper stopped")
			return
		case now := <-ticker.C:
			s.pipeline.Sweep(ctx, now)
		}
	}
}
