package action

import (
	"context"
	"sync"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// Worker drives the Action Worker Loop (spec.md §4.14): continuously claim
// one queued ActionRun; if none, sleep IdleSleep; if claimed, execute; stop
// after MaxRuns iterations if configured. Lifecycle shape (ticker + cancel
// + waitgroup) grounded on the teacher's automation Scheduler
// (internal/app/services/automation/scheduler.go), generalized from
// "list enabled jobs, dispatch" to "claim one run, execute".
type Worker struct {
	Runner    *Runner
	Log       *logger.Logger
	IdleSleep time.Duration // default 1s (spec.md §4.14)
	MaxRuns   int           // 0 = unbounded

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func (w *Worker) idleSleep() time.Duration {
	if w.IdleSleep <= 0 {
		return time.Second
	}
	return w.IdleSleep
}

// Start begins the worker's background loop. Safe to call once; a second
// call while already running is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(runCtx)
	}()

	if w.Log != nil {
		w.Log.Info("action worker loop started")
	}
	return nil
}

// Stop cancels the loop and waits for it to exit or ctx to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if w.Log != nil {
		w.Log.Info("action worker loop stopped")
	}
	return nil
}

func (w *Worker) loop(ctx context.Context) {
	runs := 0
	for {
		if ctx.Err() != nil {
			return
		}
		if w.MaxRuns > 0 && runs >= w.MaxRuns {
			return
		}

		claimed, err := w.Runner.ClaimAndRun(ctx)
		if err != nil {
			if w.Log != nil {
				w.Log.WithError(err).Warn("action worker claim failed")
			}
			claimed = false
		}
		if claimed {
			runs++
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.idleSleep()):
		}
	}
}
