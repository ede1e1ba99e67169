// Package jobs runs the check-in core's background work.
package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SessionSweeper is the part of the register-session service the sweeper
// drives.
type SessionSweeper interface {
	CloseExpiredSessions(ctx context.Context) (int, error)
}

// Sweeper ends stale register sessions on a fixed interval.  Passes never
// overlap: ticks that arrive during a pass are dropped.
type Sweeper struct {
	sessions SessionSweeper
	interval time.Duration
	log      *zap.Logger
	running  atomic.Bool
}

// NewSweeper returns a sweeper that runs every interval.
func NewSweeper(sessions SessionSweeper, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{sessions: sessions, interval: interval, log: log.Named("sweeper")}
}

// Run sweeps once immediately and then on every tick until ctx is done.  It
// returns only after the pass in flight has finished.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("register session sweeper started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("register session sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one pass unless another is in flight.  It reports whether it
// ran.
func (s *Sweeper) tick(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("previous sweep still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	closed, err := s.sessions.CloseExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("register session sweep failed", zap.Int("closed", closed), zap.Error(err))
		}
		return true
	}
	if closed > 0 {
		s.log.Info("expired register sessions closed", zap.Int("closed", closed))
	}
	return true
}
