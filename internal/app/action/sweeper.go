package action

import (
	"context"
	"sync"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// Sweeper periodically requeues (or could instead fail) ActionRuns stuck in
// "running" past a configured horizon — spec.md §5: "Stuck running rows
// older than a configured horizon should be marked failed by an external
// sweeper (out of core scope)". This implementation requeues rather than
// fails, since a crashed worker's partial progress is not distinguishable
// from a hung one, and a requeue lets the claim protocol retry it safely
// under the handler-idempotence contract already required by §5.
type Sweeper struct {
	Store    storage.ActionRunStore
	Log      *logger.Logger
	Interval time.Duration // how often to scan, default 30s
	MaxAge   time.Duration // "running" older than this is stuck, default 10m

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval <= 0 {
		return 30 * time.Second
	}
	return s.Interval
}

func (s *Sweeper) maxAge() time.Duration {
	if s.MaxAge <= 0 {
		return 10 * time.Minute
	}
	return s.MaxAge
}

// Start begins the periodic sweep.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval())
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.sweep(runCtx)
			}
		}
	}()

	if s.Log != nil {
		s.Log.Info("stuck-run sweeper started")
	}
	return nil
}

// Stop halts the sweep.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.maxAge())
	stuck, err := s.Store.ListStuckActionRuns(ctx, cutoff)
	if err != nil {
		if s.Log != nil {
			s.Log.WithError(err).Warn("stuck-run sweep query failed")
		}
		return
	}

	for _, run := range stuck {
		if err := s.Store.RequeueActionRun(ctx, run.RunID); err != nil && s.Log != nil {
			s.Log.WithField("run_id", run.RunID).WithError(err).Warn("failed to requeue stuck action run")
		}
	}
}
