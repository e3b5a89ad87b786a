package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/scoring"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sync"
)

func ptr(f float64) *float64 { return &f }

func seedInitiative(t *testing.T, store *memory.Memory, key, title string) domain.Initiative {
	t.Helper()
	in, err := store.CreateInitiative(context.Background(), domain.Initiative{
		InitiativeKey: key,
		Title:         title,
		RICE:          domain.ScoreTriple{Value: ptr(10), Effort: ptr(2), Overall: ptr(5)},
		WSJF:          domain.ScoreTriple{Value: ptr(8), Effort: ptr(2), Overall: ptr(4)},
	})
	require.NoError(t, err)
	return in
}

func TestScoreSelectedJob_EmptyScopeBailsEarly(t *testing.T) {
	store := memory.New()
	job := &ScoreSelectedJob{
		Scoring:     &scoring.Service{Initiatives: store},
		Initiatives: store,
	}

	result, err := job.Handle(context.Background(), action.Context{RunID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, 0, result["selected_count"])
	assert.Equal(t, 0, result["saved_count"])
}

func TestScoreSelectedJob_ComputesAndCollectsFailures(t *testing.T) {
	store := memory.New()
	seedInitiative(t, store, "INIT-000001", "Add SSO")

	job := &ScoreSelectedJob{
		Scoring:     &scoring.Service{Initiatives: store},
		Initiatives: store,
	}

	result, err := job.Handle(context.Background(), action.Context{
		RunID: "run-1",
		Scope: []string{"INIT-000001", "INIT-999999"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result["selected_count"])
	assert.Equal(t, 1, result["saved_count"])
	assert.Equal(t, 1, result["failed_count"])
}

func TestSwitchFrameworkJob_RequiresFrameworkOption(t *testing.T) {
	store := memory.New()
	job := &SwitchFrameworkJob{
		Scoring:     &scoring.Service{Initiatives: store},
		Initiatives: store,
	}

	_, err := job.Handle(context.Background(), action.Context{
		RunID: "run-1",
		Scope: []string{"INIT-000001"},
	})
	require.Error(t, err)
}

func TestSwitchFrameworkJob_ActivatesWithoutRecompute(t *testing.T) {
	store := memory.New()
	seedInitiative(t, store, "INIT-000001", "Add SSO")

	job := &SwitchFrameworkJob{
		Scoring:     &scoring.Service{Initiatives: store},
		Initiatives: store,
	}

	result, err := job.Handle(context.Background(), action.Context{
		RunID:   "run-1",
		Scope:   []string{"INIT-000001"},
		Options: map[string]any{"framework": "WSJF"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result["saved_count"])
	assert.Equal(t, 0, result["failed_count"])

	updated, err := store.GetInitiativeByKey(context.Background(), "INIT-000001")
	require.NoError(t, err)
	require.NotNil(t, updated.ActiveScoringFramework)
	assert.Equal(t, domain.FrameworkWSJF, *updated.ActiveScoringFramework)
	require.NotNil(t, updated.Active.Overall)
	assert.Equal(t, 4.0, *updated.Active.Overall)
}

type stubTabSyncer struct {
	result sync.Result
	err    error
}

func (s stubTabSyncer) SyncSheetToDB(_ context.Context, _ string, _ int, _ []string) (sync.Result, error) {
	return s.result, s.err
}

func TestSaveSelectedJob_EmptyScopeBailsEarly(t *testing.T) {
	job := &SaveSelectedJob{Services: map[string]TabSyncer{}}

	result, err := job.Handle(context.Background(), action.Context{RunID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, 0, result["selected_count"])
}

func TestSaveSelectedJob_DispatchesOnSheetContextTab(t *testing.T) {
	job := &SaveSelectedJob{
		Services: map[string]TabSyncer{
			"CentralBacklog": stubTabSyncer{result: sync.Result{Upserts: 2, Skipped: 1}},
		},
	}

	result, err := job.Handle(context.Background(), action.Context{
		RunID:        "run-1",
		Scope:        []string{"INIT-000001", "INIT-000002"},
		SheetContext: map[string]any{"tab": "CentralBacklog"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result["saved_count"])
	assert.Equal(t, 1, result["skipped_count"])
}

func TestSaveSelectedJob_UnknownTabErrors(t *testing.T) {
	job := &SaveSelectedJob{Services: map[string]TabSyncer{}}

	_, err := job.Handle(context.Background(), action.Context{
		RunID:        "run-1",
		Scope:        []string{"INIT-000001"},
		SheetContext: map[string]any{"tab": "NoSuchTab"},
	})
	require.Error(t, err)
}

func TestPopulateCandidatesJob_WritesReadOnlyProjection(t *testing.T) {
	store := memory.New()
	in := seedInitiative(t, store, "INIT-000001", "Add SSO")
	in.IsOptimizationCandidate = true
	in.CandidatePeriodKey = "2026-Q3"
	in.DimCountry = "US"
	_, err := store.UpdateInitiative(context.Background(), in)
	require.NoError(t, err)

	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Candidates!1:1": {{"initiative_key", "title", "is_optimization_candidate", "candidate_period_key", "dim_country"}},
	}}

	job := &PopulateCandidatesJob{
		Store:         store,
		Client:        client,
		SpreadsheetID: "sheet1",
		TabName:       "Candidates",
	}

	result, err := job.Handle(context.Background(), action.Context{
		RunID:   "run-1",
		Options: map[string]any{"period_key": "2026-Q3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result["selected_count"])
	assert.NotEmpty(t, client.updates)
}
