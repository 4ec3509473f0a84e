package table

import (
	"context"
	"log"
	"time"
)

// Sweeper drives both timeout rules from one periodic loop: players who
// outstay their turn budget are stood automatically, and waiting sessions
// whose host never starts are expired. It never force-starts a session.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   *log.Logger
}

// NewSweeper returns a sweeper ticking at the registry's configured
// interval.
func NewSweeper(registry *Registry, logger *log.Logger) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: registry.cfg.SweepInterval,
		logger:   logger,
	}
}

// Run sweeps until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.registry.Sweep(ctx, now); err != nil {
				s.logger.Printf("sweep: %v", err)
			}
		}
	}
}
