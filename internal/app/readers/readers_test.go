package readers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
)

// fakeClient is a minimal in-memory sheetio.Client for reader tests.
type fakeClient struct {
	rows map[sheetio.Range][][]any
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

func (f *fakeClient) BatchUpdateValues(_ context.Context, _ string, _ []sheetio.ValueRange) error {
	return nil
}

func (f *fakeClient) AppendValues(_ context.Context, _ string, _ sheetio.Range, _ [][]any) (int, error) {
	return 1, nil
}

func (f *fakeClient) ProtectColumns(_ context.Context, _, _ string, _, _ int, _ string) error {
	return nil
}

func TestReadIntake(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Intake!1:1": {{"Title", "Requesting Team", "Is Mandatory", "Impact Expected"}},
		"Intake!2:100002": {
			{"Add SSO", "Platform", "✅", "0.5"},
			{"", "", "", ""},
			{"", "Orphan team row", "no", ""},
		},
	}}

	rows, errs, err := ReadIntake(context.Background(), client, "sheet1", "Intake")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Add SSO", rows[0].Title)
	assert.True(t, rows[0].IsMandatory)
	require.NotNil(t, rows[0].ImpactExpected)
	assert.InDelta(t, 0.5, *rows[0].ImpactExpected, 1e-9)

	require.Len(t, errs, 1)
	assert.Equal(t, "title", errs[0].Field)
}

func TestReadCentralBacklog(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Backlog!1:1": {{"Initiative Key", "Status", "Engineering Tokens"}},
		"Backlog!2:100002": {
			{"INIT-000001", "scheduled", "120"},
		},
	}}

	rows, errs, err := ReadCentralBacklog(context.Background(), client, "sheet1", "Backlog")
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, "INIT-000001", rows[0].InitiativeKey)
	require.NotNil(t, rows[0].EngineeringTokens)
	assert.Equal(t, int64(120), *rows[0].EngineeringTokens)
}

func TestReadMathModels_RequiresKeyAndName(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"MathModels!1:1": {{"Initiative Key", "Model Name", "Formula Text"}},
		"MathModels!2:100002": {
			{"INIT-000001", "base_case", "x = a + b"},
			{"INIT-000002", "", "x = a"},
		},
	}}

	rows, errs, err := ReadMathModels(context.Background(), client, "sheet1", "MathModels")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, "x = a + b", rows[0].FormulaText)
}

func TestReadConstraints_GenericPayload(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Constraints!1:1": {{"Kind", "Dimension", "Dimension Key", "Members", "Value"}},
		"Constraints!4:100004": {
			{"capacity_floor", "department", "platform", "", "50"},
			{"bundle", "", "", `["INIT-1","INIT-2"]`, ""},
		},
	}}

	rows, errs, err := ReadConstraints(context.Background(), client, "sheet1", "Constraints")
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, "capacity_floor", rows[0].Kind)
	require.NotNil(t, rows[0].Value)
	assert.InDelta(t, 50.0, *rows[0].Value, 1e-9)
	assert.Equal(t, `["INIT-1","INIT-2"]`, rows[1].MembersRaw)
	assert.Equal(t, 4, rows[0].RowNumber)
}

func TestReadScenarioConfig(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Scenario_Config!1:1": {{"Name", "Period", "Capacity", "Objective"}},
		"Scenario_Config!4:100004": {
			{"Q3-2026", "2026-Q3", "1000", "weighted_kpis"},
		},
	}}

	rows, errs, err := ReadScenarioConfig(context.Background(), client, "sheet1", "Scenario_Config")
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, "weighted_kpis", rows[0].ObjectiveMode)
	require.NotNil(t, rows[0].CapacityTotalTokens)
	assert.Equal(t, int64(1000), *rows[0].CapacityTotalTokens)
}
