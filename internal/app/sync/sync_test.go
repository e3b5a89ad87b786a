package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
)

// fakeClient is a minimal in-memory sheetio.Client, mirroring the readers
// package's own test fake, with captured BatchUpdateValues calls so sync
// tests can assert on back-writes.
type fakeClient struct {
	rows    map[sheetio.Range][][]any
	updates []sheetio.ValueRange
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

func (f *fakeClient) AppendValues(_ context.Context, _ string, _ sheetio.Range, _ [][]any) (int, error) {
	return 1, nil
}

func (f *fakeClient) ProtectColumns(_ context.Context, _, _ string, _, _ int, _ string) error {
	return nil
}

func TestIntakeService_CreatesInitiativeAndBackWritesKey(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Intake!1:1": {{"Initiative Key", "Title", "Requesting Team"}},
		"Intake!2:100002": {
			{"", "Add SSO", "Platform"},
		},
	}}
	store := memory.New()
	svc := &IntakeService{Client: client, Store: store, TabName: "Intake"}

	result, err := svc.SyncSheetToDB(context.Background(), "sheet1", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Upserts)
	require.Len(t, client.updates, 1)
	assert.Equal(t, "INIT-000001", client.updates[0].Values[0][0])

	all, err := store.ListInitiatives(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Add SSO", all[0].Title)
	assert.Equal(t, domain.StatusNew, all[0].Status)
}

func TestScoringInputsService_UnlocksOnBlankCell(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	framework := domain.FrameworkRICE
	_, err := store.CreateInitiative(ctx, domain.Initiative{
		InitiativeKey:          "INIT-000001",
		ActiveScoringFramework: &framework,
	})
	require.NoError(t, err)

	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Scoring!1:1":      {{"Initiative Key", "Active Scoring Framework"}},
		"Scoring!2:100002": {{"INIT-000001", ""}},
	}}
	svc := &ScoringInputsService{Client: client, Store: store, TabName: "Scoring"}

	result, err := svc.SyncSheetToDB(ctx, "sheet1", 0, nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, RowUnlocked, result.Rows[0].Status)

	got, err := store.GetInitiativeByKey(ctx, "INIT-000001")
	require.NoError(t, err)
	assert.Nil(t, got.ActiveScoringFramework)
}

func TestKPIContributionsService_DropsIneligibleKeysAndAppliesOverride(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, err := store.CreateInitiative(ctx, domain.Initiative{InitiativeKey: "INIT-000001"})
	require.NoError(t, err)
	_, err = store.UpsertMetricConfig(ctx, domain.OrganizationMetricConfig{
		KPIKey: "revenue", KPILevel: domain.MetricLevelNorthStar, IsActive: true,
	})
	require.NoError(t, err)

	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"KPI!1:1": {{"Initiative Key", "Contribution"}},
		"KPI!2:100002": {
			{"INIT-000001", `{"revenue": 0.8, "unknown_kpi": 0.2}`},
		},
	}}
	svc := &KPIContributionsService{Client: client, Store: store, MetricStore: store, TabName: "KPI"}

	result, err := svc.SyncSheetToDB(ctx, "sheet1", 0, nil)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, RowUpserted, result.Rows[0].Status)

	got, err := store.GetInitiativeByKey(ctx, "INIT-000001")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"revenue": 0.8}, got.KPIContributionJSON)
	require.NotNil(t, got.KPIContributionSource)
	assert.Equal(t, domain.KPIContribSourcePMOverride, *got.KPIContributionSource)
}
