// Package sweep runs the periodic pass that marks overdue pending tasks as
// expired.
package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is how often the sweep runs when no interval is given.
const DefaultInterval = time.Hour

var ErrAlreadyStarted = errors.New("sweep: already started")

// Expirer performs the bulk expiry update.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper owns the background loop. It is started and stopped explicitly.
type Sweeper struct {
	store    Expirer
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// New builds a Sweeper around store.
func New(store Expirer, logger *slog.Logger, interval time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// RunOnce performs a single sweep and returns the number of tasks expired.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.logger.Info("expiry sweep finished", "expired", n)
	return n, nil
}

// Start launches the loop. The first sweep runs immediately, then once per
// interval until Stop is called or ctx is done.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.started = true
	s.cancel = cancel
	s.doneCh = make(chan struct{})

	go s.loop(ctx, s.doneCh)
	s.logger.Info("expiry sweep started", "interval", s.interval)
	return nil
}

// Stop ends the loop and waits for an in-flight sweep to return. It is safe
// to call more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, done := s.cancel, s.doneCh
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("expiry sweep stopped")
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one sweep; failures are logged and never escape the loop.
func (s *Sweeper) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("expiry sweep panicked", "panic", r)
		}
	}()
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("expiry sweep failed", "error", err)
	}
}
