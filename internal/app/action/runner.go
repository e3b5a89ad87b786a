package action

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/metrics"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// Runner claims and executes one ActionRun at a time against a Registry,
// grounded on the teacher's job-dispatch shape (internal/app/jam and the
// automation scheduler) generalized to "claim, execute, finish" instead of
// "list enabled jobs, dispatch".
type Runner struct {
	Store    storage.ActionRunStore
	Registry *Registry
	Log      *logger.Logger

	// NewDeps resolves the runtime dependencies (sheet client, LLM client,
	// settings) a handler needs for a given run. Optional — nil means
	// handlers receive a nil Deps.
	NewDeps func(ctx context.Context, run domain.ActionRun) any
}

// ClaimAndRun claims the oldest queued ActionRun and executes it to
// completion, returning claimed=false when the queue was empty.
func (r *Runner) ClaimAndRun(ctx context.Context) (claimed bool, err error) {
	run, ok, err := r.Store.ClaimNextActionRun(ctx)
	if err != nil {
		return false, fmt.Errorf("claim action run: %w", err)
	}
	if !ok {
		return false, nil
	}

	r.execute(ctx, run)
	return true, nil
}

func (r *Runner) execute(ctx context.Context, run domain.ActionRun) {
	metrics.RecordActionClaim(run.Action, time.Now().UTC().Sub(run.CreatedAt))

	result, runErr := r.dispatch(ctx, run)
	finishedAt := time.Now().UTC()

	if runErr != nil {
		metrics.RecordActionRun(run.Action, "failed")
		if r.Log != nil {
			r.Log.WithField("run_id", run.RunID).WithField("action", run.Action).WithError(runErr).Warn("action run failed")
		}
		if err := r.Store.FinishActionRun(ctx, run.RunID, domain.ActionStatusFailed, "", runErr.Error(), finishedAt); err != nil && r.Log != nil {
			r.Log.WithField("run_id", run.RunID).WithError(err).Error("failed to persist failed action run")
		}
		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte("{}")
	}
	metrics.RecordActionRun(run.Action, "succeeded")
	if err := r.Store.FinishActionRun(ctx, run.RunID, domain.ActionStatusSucceeded, string(resultJSON), "", finishedAt); err != nil && r.Log != nil {
		r.Log.WithField("run_id", run.RunID).WithError(err).Error("failed to persist succeeded action run")
	}
}

// dispatch recovers from handler panics and turns them into failed runs —
// spec.md §4.13: "handler raised or returned an explicit failure".
func (r *Runner) dispatch(ctx context.Context, run domain.ActionRun) (result map[string]any, err error) {
	handler, err := r.Registry.Lookup(run.Action)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("action %q panicked: %v", run.Action, p)
		}
	}()

	actx := Context{
		RunID:        run.RunID,
		Action:       run.Action,
		SheetContext: mapField(run.PayloadJSON, "sheet_context"),
		Options:      mapField(run.PayloadJSON, "options"),
		RequestedBy:  run.RequestedByJSON,
	}
	actx.Scope = extractScope(run.PayloadJSON["scope"])
	if r.NewDeps != nil {
		actx.Deps = r.NewDeps(ctx, run)
	}

	return handler(ctx, actx)
}

func mapField(payload map[string]any, key string) map[string]any {
	if payload == nil {
		return nil
	}
	v, ok := payload[key]
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// extractScope reads spec.md §6.1's scope object
// ({"type": "selection", "initiative_keys": [...]}) out of a decoded
// ActionRun payload. A bare string array is also accepted for callers that
// enqueue runs directly against the store rather than through the HTTP API.
func extractScope(raw any) []string {
	switch v := raw.(type) {
	case map[string]any:
		return stringsFromAny(v["initiative_keys"])
	case []any:
		return stringsFromAny(v)
	default:
		return nil
	}
}

func stringsFromAny(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, v := range items {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
