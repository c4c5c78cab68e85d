// Package sweeper periodically advances pending transactions through their lifecycle.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/pkg/clockpkg"
)

// Ledger is the transaction set the sweeper advances.
type Ledger interface {
	Sweep(ctx context.Context, now time.Time) int
}

// Sweeper drives Ledger.Sweep on a fixed interval.
type Sweeper struct {
	ledger   Ledger
	clock    clockpkg.Clock
	interval time.Duration
	logger   zerolog.Logger
}

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = time.Second

// New returns a sweeper that ticks every interval.
func New(ledger Ledger, clock clockpkg.Clock, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Sweeper{
		ledger:   ledger,
		clock:    clock,
		interval: interval,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

// Tick runs a single sweep at the current clock time.
func (s *Sweeper) Tick(ctx context.Context) int {
	now := s.clock.Now()

	advanced := s.ledger.Sweep(s.logger.WithContext(ctx), now)
	if advanced > 0 {
		s.logger.Debug().Int("advanced", advanced).Time("at", now).Msg("sweep done")
	}

	return advanced
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
