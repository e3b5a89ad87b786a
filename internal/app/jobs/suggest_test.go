package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/suggest"
)

type stubSuggestClient struct {
	calls int
	resp  suggest.ModelSuggestion
	err   error
}

func (s *stubSuggestClient) SuggestMathModel(_ context.Context, _ suggest.ModelRequest) (suggest.ModelSuggestion, error) {
	s.calls++
	return s.resp, s.err
}

func TestSuggestMathModelLLMJob_SkipsRowsWithExistingFormula(t *testing.T) {
	store := memory.New()
	in, err := store.CreateInitiative(context.Background(), domain.Initiative{
		InitiativeKey:    "INIT-000001",
		Title:            "Add SSO",
		ProblemStatement: "auth is slow",
	})
	require.NoError(t, err)
	_, err = store.UpsertMathModel(context.Background(), domain.MathModel{
		InitiativeID: in.ID,
		ModelName:    "m1",
		FormulaText:  "value = 1",
	})
	require.NoError(t, err)

	client := &stubSuggestClient{}
	job := &SuggestMathModelLLMJob{Initiatives: store, MathModels: store, Client: client}

	result, err := job.Handle(context.Background(), action.Context{
		RunID: "run-1",
		Scope: []string{"INIT-000001"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result["skipped_count"])
	assert.Equal(t, 0, client.calls)
}

func TestSuggestMathModelLLMJob_CallsAndWritesOnlyLLMOwnedColumns(t *testing.T) {
	store := memory.New()
	in, err := store.CreateInitiative(context.Background(), domain.Initiative{
		InitiativeKey:    "INIT-000001",
		Title:            "Add SSO",
		ProblemStatement: "auth is slow",
	})
	require.NoError(t, err)

	client := &stubSuggestClient{resp: suggest.ModelSuggestion{
		ModelName:       "auto_m1",
		TargetKPIKey:    "conversion_rate",
		MetricChainText: "signup -> activation -> conversion",
		FormulaText:     "value = impact * confidence / effort",
		AssumptionsText: "confidence = 0.5",
	}}
	job := &SuggestMathModelLLMJob{Initiatives: store, MathModels: store, Client: client}

	result, err := job.Handle(context.Background(), action.Context{
		RunID: "run-1",
		Scope: []string{"INIT-000001"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result["saved_count"])
	assert.Equal(t, 1, client.calls)

	models, err := store.ListMathModelsByInitiative(context.Background(), in.ID)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "auto_m1", models[0].ModelName)
	assert.True(t, models[0].SuggestedByLLM)
	assert.False(t, models[0].ApprovedByUser)
}

func TestSuggestMathModelLLMJob_RespectsMaxCallsLimit(t *testing.T) {
	store := memory.New()
	_, err := store.CreateInitiative(context.Background(), domain.Initiative{
		InitiativeKey:    "INIT-000001",
		Title:            "Add SSO",
		ProblemStatement: "auth is slow",
	})
	require.NoError(t, err)
	_, err = store.CreateInitiative(context.Background(), domain.Initiative{
		InitiativeKey:    "INIT-000002",
		Title:            "Add MFA",
		ProblemStatement: "auth is insecure",
	})
	require.NoError(t, err)

	client := &stubSuggestClient{resp: suggest.ModelSuggestion{ModelName: "auto_m1", FormulaText: "value = 1"}}
	job := &SuggestMathModelLLMJob{
		Initiatives: store,
		MathModels:  store,
		Client:      client,
		Limits:      suggest.Limits{MaxCalls: 1},
	}

	result, err := job.Handle(context.Background(), action.Context{
		RunID: "run-1",
		Scope: []string{"INIT-000001", "INIT-000002"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, result["saved_count"])
	assert.Equal(t, 1, result["skipped_count"])
}

func TestSeedMathParamsJob_AppendsMissingParamsForApprovedFormulasOnly(t *testing.T) {
	store := memory.New()
	in, err := store.CreateInitiative(context.Background(), domain.Initiative{
		InitiativeKey: "INIT-000001",
		Title:         "Add SSO",
	})
	require.NoError(t, err)

	_, err = store.UpsertMathModel(context.Background(), domain.MathModel{
		InitiativeID:   in.ID,
		ModelName:      "approved_model",
		FormulaText:    "value = impact * confidence / effort",
		ApprovedByUser: true,
	})
	require.NoError(t, err)
	_, err = store.UpsertMathModel(context.Background(), domain.MathModel{
		InitiativeID:   in.ID,
		ModelName:      "draft_model",
		FormulaText:    "value = other_param",
		ApprovedByUser: false,
	})
	require.NoError(t, err)

	job := &SeedMathParamsJob{Initiatives: store, MathModels: store, Params: store}

	result, err := job.Handle(context.Background(), action.Context{
		RunID: "run-1",
		Scope: []string{"INIT-000001"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result["saved_count"])

	params, err := store.ListParamsByFramework(context.Background(), "INIT-000001", string(domain.FrameworkMathModel))
	require.NoError(t, err)
	names := make(map[string]bool, len(params))
	for _, p := range params {
		names[p.ModelName+"|"+p.ParamName] = true
	}
	assert.True(t, names["approved_model|impact"])
	assert.True(t, names["approved_model|confidence"])
	assert.True(t, names["approved_model|effort"])
	assert.False(t, names["draft_model|other_param"])
}

func TestSeedMathParamsJob_NoApprovedFormulasSkips(t *testing.T) {
	store := memory.New()
	_, err := store.CreateInitiative(context.Background(), domain.Initiative{
		InitiativeKey: "INIT-000001",
		Title:         "Add SSO",
	})
	require.NoError(t, err)

	job := &SeedMathParamsJob{Initiatives: store, MathModels: store, Params: store}
	result, err := job.Handle(context.Background(), action.Context{
		RunID: "run-1",
		Scope: []string{"INIT-000001"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result["skipped_count"])
}
