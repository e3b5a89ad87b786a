package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/optimize"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sync"
)

// fakeClient mirrors the sync package's own test fake: a minimal in-memory
// sheetio.Client with captured writes, reused here for the jobs package's
// own sheet round-trips.
type fakeClient struct {
	rows    map[sheetio.Range][][]any
	updates []sheetio.ValueRange
	appends [][][]any
}

func (f *fakeClient) GetValues(_ context.Context, _ string, rng sheetio.Range) ([][]any, error) {
	return f.rows[rng], nil
}

func (f *fakeClient) BatchGetValues(ctx context.Context, spreadsheetID string, ranges []sheetio.Range) ([]sheetio.ValueRange, error) {
	out := make([]sheetio.ValueRange, 0, len(ranges))
	for _, r := range ranges {
		vals, _ := f.GetValues(ctx, spreadsheetID, r)
		out = append(out, sheetio.ValueRange{Range: r, Values: vals})
	}
	return out, nil
}

func (f *fakeClient) UpdateValues(_ context.Context, _ string, _ sheetio.Range, _ [][]any) error {
	return nil
}

func (f *fakeClient) BatchUpdateValues(_ context.Context, _ string, updates []sheetio.ValueRange) error {
	f.updates = append(f.updates, updates...)
	return nil
}

func (f *fakeClient) AppendValues(_ context.Context, _ string, _ sheetio.Range, values [][]any) (int, error) {
	f.appends = append(f.appends, values)
	return len(values), nil
}

func (f *fakeClient) ProtectColumns(_ context.Context, _, _ string, _, _ int, _ string) error {
	return nil
}

// erroringClient fails every GetValues call, simulating a tab that cannot
// be read at all (e.g. a deleted or renamed tab).
type erroringClient struct{ fakeClient }

func (e *erroringClient) GetValues(_ context.Context, _ string, _ sheetio.Range) ([][]any, error) {
	return nil, assertErr
}

var assertErr = errAssertion{}

type errAssertion struct{}

func (errAssertion) Error() string { return "simulated tab read failure" }

func TestIntakeConsolidationJob_OneTabFailureDoesNotAbortSiblings(t *testing.T) {
	goodClient := &fakeClient{rows: map[sheetio.Range][][]any{
		"GoodIntake!1:1":      {{"Initiative Key", "Title", "Requesting Team"}},
		"GoodIntake!2:100002": {{"", "Add SSO", "Platform"}},
	}}
	badClient := &erroringClient{}
	store := memory.New()

	job := &IntakeConsolidationJob{
		Services: []*sync.IntakeService{
			{Client: badClient, Store: store, TabName: "BadIntake"},
			{Client: goodClient, Store: store, TabName: "GoodIntake"},
		},
		SpreadsheetID: "sheet1",
		CommitEvery:   0,
	}

	outcomes := job.Run(context.Background(), nil)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "BadIntake", outcomes[0].TabName)
	assert.NotEmpty(t, outcomes[0].Error)

	assert.Equal(t, "GoodIntake", outcomes[1].TabName)
	assert.Equal(t, 1, outcomes[1].Result.Upserts)
	assert.Empty(t, outcomes[1].Error)

	all, err := store.ListInitiatives(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestIntakeConsolidationJob_Handle(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Intake!1:1":      {{"Initiative Key", "Title", "Requesting Team"}},
		"Intake!2:100002": {{"", "Add SSO", "Platform"}},
	}}
	store := memory.New()
	job := &IntakeConsolidationJob{
		Services:      []*sync.IntakeService{{Client: client, Store: store, TabName: "Intake"}},
		SpreadsheetID: "sheet1",
	}

	result, err := job.Handle(context.Background(), action.Context{RunID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result["saved_count"])
}

func TestBacklogSyncJob_WritesOwnedColumnsOnly(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Backlog!1:1": {{"Initiative Key", "Title", "Use Math Model"}},
	}}
	store := memory.New()
	_, err := store.CreateInitiative(context.Background(), domain.Initiative{
		InitiativeKey: "INIT-000001",
		Title:         "Add SSO",
	})
	require.NoError(t, err)

	job := &BacklogSyncJob{Store: store, Client: client, SpreadsheetID: "sheet1", TabName: "Backlog"}
	plan, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, plan.NewRowCount)

	var sawTitle, sawUseMathModel bool
	for _, u := range client.updates {
		switch u.Range {
		case "Backlog!B2:B2":
			sawTitle = true
		case "Backlog!C2:C2":
			sawUseMathModel = true
		}
	}
	assert.True(t, sawTitle, "title is owned by the backlog sync job")
	assert.False(t, sawUseMathModel, "use_math_model is owned by the Central Backlog sync service, not the backlog sync job")
}

func TestOptimizationJob_InfeasibleStopsBeforeSolving(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	scenario := domain.OptimizationScenario{
		Name:                "Q1",
		PeriodKey:           "2026-Q1",
		CapacityTotalTokens: 100,
		ObjectiveMode:       domain.ObjectiveNorthStar,
	}
	scenario, err := store.UpsertScenario(ctx, scenario)
	require.NoError(t, err)

	cs := domain.NewOptimizationConstraintSet("Q1", "default")
	cs.Mandatory["INIT-999999"] = true // references a key absent from the candidate pool
	saved, err := store.UpsertConstraintSet(ctx, *cs)
	require.NoError(t, err)

	_, err = store.UpsertMetricConfig(ctx, domain.OrganizationMetricConfig{
		KPIKey:   "activation_rate",
		KPILevel: domain.MetricLevelNorthStar,
		IsActive: true,
	})
	require.NoError(t, err)

	job := &OptimizationJob{
		InitiativeStore: store,
		MetricStore:     store,
		Store:           store,
		Solver:          optimize.ReferenceSolver{},
	}

	run, err := job.Run(ctx, "run-1", scenario, &saved, "all_candidates", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.ResultJSON, "feasibility")
	assert.NotContains(t, run.ResultJSON, "solution")
}

func TestOptimizationJob_SucceedsAndSavesPortfolio(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	tokens := int64(10)
	overall := 5.0
	_, err := store.CreateInitiative(ctx, domain.Initiative{
		InitiativeKey:           "INIT-000001",
		IsOptimizationCandidate: true,
		CandidatePeriodKey:      "2026-Q1",
		EngineeringTokens:       &tokens,
		Active:                  domain.ScoreTriple{Overall: &overall},
		KPIContributionJSON:     map[string]float64{"activation_rate": 0.2},
	})
	require.NoError(t, err)

	_, err = store.UpsertMetricConfig(ctx, domain.OrganizationMetricConfig{
		KPIKey:   "activation_rate",
		KPILevel: domain.MetricLevelNorthStar,
		IsActive: true,
	})
	require.NoError(t, err)

	scenario, err := store.UpsertScenario(ctx, domain.OptimizationScenario{
		Name:                "Q1",
		PeriodKey:           "2026-Q1",
		CapacityTotalTokens: 100,
		ObjectiveMode:       domain.ObjectiveNorthStar,
	})
	require.NoError(t, err)

	cs := domain.NewOptimizationConstraintSet("Q1", "default")
	saved, err := store.UpsertConstraintSet(ctx, *cs)
	require.NoError(t, err)

	job := &OptimizationJob{
		InitiativeStore: store,
		MetricStore:     store,
		Store:           store,
		Solver:          optimize.ReferenceSolver{},
	}

	run, err := job.Run(ctx, "run-2", scenario, &saved, "all_candidates", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, run.Status)

	portfolio, err := store.GetPortfolioByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, portfolio.Items, 1)
	assert.Equal(t, "INIT-000001", portfolio.Items[0].InitiativeKey)
}
