package writers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
)

type fakeClient struct {
	rows     map[sheetio.Range][][]any
	updates  []sheetio.ValueRange
	appended [][]any
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

func (f *fakeClient) UpdateValues(_ context.Context, _ string, rng sheetio.Range, values [][]any) error {
	f.updates = append(f.updates, sheetio.ValueRange{Range: rng, Values: values})
	return nil
}

func (f *fakeClient) BatchUpdateValues(ctx context.Context, spreadsheetID string, updates []sheetio.ValueRange) error {
	for _, u := range updates {
		if err := f.UpdateValues(ctx, spreadsheetID, u.Range, u.Values); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeClient) AppendValues(_ context.Context, _ string, _ sheetio.Range, values [][]any) (int, error) {
	f.appended = append(f.appended, values...)
	return len(f.appended) - len(values) + 1, nil
}

func (f *fakeClient) ProtectColumns(_ context.Context, _, _ string, _, _ int, _ string) error {
	return nil
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(0))
	assert.Equal(t, "Z", columnLetter(25))
	assert.Equal(t, "AA", columnLetter(26))
	assert.Equal(t, "AB", columnLetter(27))
}

func TestUpsertWriter_UpdatesExistingRow(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Backlog!1:1": {{"Initiative Key", "Status", "Updated Source"}},
		"Backlog!2:100002": {
			{"INIT-000001", "new", ""},
		},
	}}

	w := &UpsertWriter{
		Client:           client,
		SpreadsheetID:    "sheet1",
		TabName:          "Backlog",
		KeyColumn:        "initiative_key",
		OwnedColumns:     []string{"status"},
		ProvenanceSource: "flow1.backlog_update",
		ProvenanceColumn: "updated_source",
	}

	plan, err := w.Execute(context.Background(), []Row{
		{"initiative_key": "INIT-000001", "status": "scheduled"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, plan.NewRowCount)

	require.Len(t, client.updates, 2)
	assert.Equal(t, sheetio.Range("Backlog!B2:B2"), client.updates[0].Range)
	assert.Equal(t, "scheduled", client.updates[0].Values[0][0])
	assert.Equal(t, sheetio.Range("Backlog!C2:C2"), client.updates[1].Range)
	assert.Equal(t, "flow1.backlog_update", client.updates[1].Values[0][0])
}

func TestUpsertWriter_AppendsNewRow(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"Backlog!1:1":      {{"Initiative Key", "Status"}},
		"Backlog!2:100002": {{"INIT-000001", "new"}},
	}}

	w := &UpsertWriter{
		Client:        client,
		SpreadsheetID: "sheet1",
		TabName:       "Backlog",
		KeyColumn:     "initiative_key",
		OwnedColumns:  []string{"status"},
	}

	plan, err := w.Execute(context.Background(), []Row{
		{"initiative_key": "INIT-000002", "status": "new"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.NewRowCount)
	require.Len(t, client.updates, 2)
	assert.Equal(t, sheetio.Range("Backlog!A3:A3"), client.updates[0].Range)
	assert.Equal(t, "INIT-000002", client.updates[0].Values[0][0])
	assert.Equal(t, sheetio.Range("Backlog!B3:B3"), client.updates[1].Range)
}

func TestAppendOnlyWriter(t *testing.T) {
	client := &fakeClient{rows: map[sheetio.Range][][]any{
		"History!1:1": {{"Initiative Key", "Framework", "Overall"}},
	}}
	w := &AppendOnlyWriter{
		Client:        client,
		SpreadsheetID: "sheet1",
		TabName:       "History",
		Columns:       []string{"initiative_key", "framework", "overall"},
	}
	err := w.Append(context.Background(), []Row{
		{"initiative_key": "INIT-000001", "framework": "RICE", "overall": 4.2},
	})
	require.NoError(t, err)
	require.Len(t, client.appended, 1)
	assert.Equal(t, "INIT-000001", client.appended[0][0])
	assert.Equal(t, "RICE", client.appended[0][1])
	assert.Equal(t, 4.2, client.appended[0][2])
}
