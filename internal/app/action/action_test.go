package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
)

func TestRunner_SucceedsAndPersistsResult(t *testing.T) {
	store := memory.New()
	registry := NewRegistry()
	registry.Register("pm.score_selected", func(_ context.Context, actx Context) (map[string]any, error) {
		return map[string]any{"selected_count": len(actx.Scope), "saved_count": len(actx.Scope)}, nil
	})

	runner := &Runner{Store: store, Registry: registry}

	_, err := store.EnqueueActionRun(context.Background(), domain.ActionRun{
		RunID:  "run-1",
		Action: "pm.score_selected",
		PayloadJSON: map[string]any{
			"scope": []any{"INIT-000001", "INIT-000002"},
		},
	})
	require.NoError(t, err)

	claimed, err := runner.ClaimAndRun(context.Background())
	require.NoError(t, err)
	assert.True(t, claimed)

	run, err := store.GetActionRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusSucceeded, run.Status)
	assert.Equal(t, float64(2), run.ResultJSON["selected_count"])
	assert.NotNil(t, run.FinishedAt)
}

func TestRunner_UnknownActionFails(t *testing.T) {
	store := memory.New()
	runner := &Runner{Store: store, Registry: NewRegistry()}

	_, err := store.EnqueueActionRun(context.Background(), domain.ActionRun{RunID: "run-2", Action: "nope.nope"})
	require.NoError(t, err)

	claimed, err := runner.ClaimAndRun(context.Background())
	require.NoError(t, err)
	assert.True(t, claimed)

	run, err := store.GetActionRun(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusFailed, run.Status)
	assert.Contains(t, run.ErrorText, "no handler registered")
}

func TestRunner_HandlerPanicBecomesFailure(t *testing.T) {
	store := memory.New()
	registry := NewRegistry()
	registry.Register("flow1.boom", func(_ context.Context, _ Context) (map[string]any, error) {
		panic("unexpected nil pointer")
	})
	runner := &Runner{Store: store, Registry: registry}

	_, err := store.EnqueueActionRun(context.Background(), domain.ActionRun{RunID: "run-3", Action: "flow1.boom"})
	require.NoError(t, err)

	claimed, err := runner.ClaimAndRun(context.Background())
	require.NoError(t, err)
	assert.True(t, claimed)

	run, err := store.GetActionRun(context.Background(), "run-3")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusFailed, run.Status)
	assert.Contains(t, run.ErrorText, "panicked")
}

func TestWorker_ClaimsUntilQueueDrains(t *testing.T) {
	store := memory.New()
	registry := NewRegistry()
	var executed int
	registry.Register("flow1.noop", func(_ context.Context, _ Context) (map[string]any, error) {
		executed++
		return map[string]any{}, nil
	})

	for i := 0; i < 3; i++ {
		_, err := store.EnqueueActionRun(context.Background(), domain.ActionRun{RunID: "run-" + string(rune('a'+i)), Action: "flow1.noop"})
		require.NoError(t, err)
	}

	w := &Worker{Runner: &Runner{Store: store, Registry: registry}, IdleSleep: 5 * time.Millisecond, MaxRuns: 10}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Start(ctx))

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, w.Stop(context.Background()))

	assert.Equal(t, 3, executed)
}

func TestSweeper_RequeuesStuckRuns(t *testing.T) {
	store := memory.New()
	_, err := store.EnqueueActionRun(context.Background(), domain.ActionRun{RunID: "run-stuck", Action: "flow1.noop"})
	require.NoError(t, err)
	_, ok, err := store.ClaimNextActionRun(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(2 * time.Millisecond)
	sweeper := &Sweeper{Store: store, MaxAge: time.Millisecond}
	sweeper.sweep(context.Background())

	run, err := store.GetActionRun(context.Background(), "run-stuck")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusQueued, run.Status)
	assert.Nil(t, run.StartedAt)
}
