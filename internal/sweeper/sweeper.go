// Package sweeper schedules periodic eviction of inactive sessions.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 10 * time.Minute

// Target removes expired sessions and reports how many went away.
// *session.Service implements it.
type Target interface {
	Sweep(ctx context.Context) (int, error)
}

// Sweeper runs Target.Sweep on a fixed interval until stopped.
type Sweeper struct {
	target   Target
	interval time.Duration
	cron     *cron.Cron

	mu      sync.Mutex
	cancel  context.CancelFunc
	ctx     context.Context
	started bool
}

// New creates a sweeper. Intervals below one second are rounded up by the
// scheduler.
func New(target Target, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn))
	return &Sweeper{
		target:   target,
		interval: interval,
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
	}
}

// Start schedules the sweep. It does not run one immediately.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("sweeper already started")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.tick); err != nil {
		s.cancel()
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	s.started = true

	slog.Info("Session sweeper started", "interval", s.interval)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish or for ctx
// to expire, whichever comes first.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		cancel()
		slog.Info("Session sweeper shutting down")
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("stop sweeper: %w", ctx.Err())
	}
}

// RunOnce performs a single sweep synchronously.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.target.Sweep(ctx)
	if err != nil {
		slog.Error("Session sweep failed", "error", err)
		return 0, err
	}
	if n > 0 {
		slog.Info("Session sweep completed", "cleaned", n)
	}
	return n, nil
}

func (s *Sweeper) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	_, _ = s.RunOnce(ctx)
}
