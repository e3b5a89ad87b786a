package sheetio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "requester_name", Normalize("Requester Name"))
	assert.Equal(t, "requester_name", Normalize(" requester_name "))
	assert.Equal(t, "requester_name", Normalize("Requester--Name"))
	assert.Equal(t, "kpi", Normalize("KPI"))
}

func TestResolveIndices(t *testing.T) {
	headers := []string{"Initiative ID", "Title", "Owner Name"}
	aliases := AliasMap{
		"initiative_id": {"id"},
		"title":         {"name"},
		"owner":         {"owner_name", "owner name"},
	}
	idx := ResolveIndices(headers, aliases)
	assert.Equal(t, 0, idx["initiative_id"])
	assert.Equal(t, 1, idx["title"])
	assert.Equal(t, 2, idx["owner"])
}

func TestResolveIndices_MissingColumn(t *testing.T) {
	headers := []string{"Title"}
	aliases := AliasMap{"initiative_id": {"id"}, "title": nil}
	idx := ResolveIndices(headers, aliases)
	_, ok := idx["initiative_id"]
	assert.False(t, ok)
	assert.Equal(t, 0, idx["title"])
}

func TestGetValue(t *testing.T) {
	row := map[string]any{"owner": "Alice"}
	v, ok := GetValue(row, "owner_name", "owner")
	require.True(t, ok)
	assert.Equal(t, "Alice", v)

	_, ok = GetValue(row, "missing")
	assert.False(t, ok)
}

func TestChunkValueRanges(t *testing.T) {
	var updates []ValueRange
	for i := 0; i < 450; i++ {
		updates = append(updates, ValueRange{Range: Range("A1")})
	}
	chunks := ChunkValueRanges(updates)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 200)
	assert.Len(t, chunks[1], 200)
	assert.Len(t, chunks[2], 50)
}

func TestChunkValueRanges_Empty(t *testing.T) {
	assert.Nil(t, ChunkValueRanges(nil))
}

func TestCoerceBool(t *testing.T) {
	assert.True(t, CoerceBool("✅"))
	assert.True(t, CoerceBool("Yes"))
	assert.True(t, CoerceBool("y"))
	assert.True(t, CoerceBool(true))
	assert.False(t, CoerceBool("no"))
	assert.False(t, CoerceBool(""))
	assert.False(t, CoerceBool(nil))
}

func TestCoerceFloat(t *testing.T) {
	f, ok := CoerceFloat("$1,200.50")
	require.True(t, ok)
	assert.InDelta(t, 1200.50, f, 1e-9)

	f, ok = CoerceFloat(42.0)
	require.True(t, ok)
	assert.Equal(t, 42.0, f)

	_, ok = CoerceFloat("")
	assert.False(t, ok)

	_, ok = CoerceFloat("not-a-number")
	assert.False(t, ok)
}

func TestCoerceDate(t *testing.T) {
	d, ok := CoerceDate("2026-07-31")
	require.True(t, ok)
	assert.Equal(t, 2026, d.Year())

	d, ok = CoerceDate("31/07/2026")
	require.True(t, ok)
	assert.Equal(t, time.Month(7), d.Month())

	_, ok = CoerceDate("not a date")
	assert.False(t, ok)
}

func TestCoerceJSONMap(t *testing.T) {
	m, ok := CoerceJSONMap(`{"revenue": 0.4, "retention": 0.6}`)
	require.True(t, ok)
	assert.InDelta(t, 0.4, m["revenue"], 1e-9)

	_, ok = CoerceJSONMap("")
	assert.False(t, ok)

	_, ok = CoerceJSONMap("{not json")
	assert.False(t, ok)
}

func TestCoerceJSONStringList(t *testing.T) {
	list, ok := CoerceJSONStringList(`["a", "b"]`)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, list)
}

func TestToSheetSafeValue(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Format(time.RFC3339), ToSheetSafeValue(now))
	assert.Equal(t, "", ToSheetSafeValue(nil))
	assert.Equal(t, "", ToSheetSafeValue(map[string]float64{}))
	assert.Equal(t, `{"revenue":0.5}`, ToSheetSafeValue(map[string]float64{"revenue": 0.5}))
	assert.Equal(t, 3, ToSheetSafeValue(3))
}

func TestProvenance_Stamp(t *testing.T) {
	p := Stamp(SourceIntakeSync)
	assert.Equal(t, "flow1.intake_sync", p.Source)
	assert.NotEmpty(t, p.ISO8601UTC())
}

func TestPMJobSource(t *testing.T) {
	assert.Equal(t, "pm.rescope_initiative", PMJobSource("rescope_initiative"))
}

// fakeClient is a minimal in-memory sheetio.Client for reader tests.
type fakeClient struct {
	rows map[Range][][]any
}

func (f *fakeClient) GetValues(_ context.Context, _ string, rng Range) ([][]any, error) {
	return f.rows[rng], nil
}

func (f *fakeClient) BatchGetValues(ctx context.Context, spreadsheetID string, ranges []Range) ([]ValueRange, error) {
	out := make([]ValueRange, 0, len(ranges))
	for _, r := range ranges {
		vals, _ := f.GetValues(ctx, spreadsheetID, r)
		out = append(out, ValueRange{Range: r, Values: vals})
	}
	return out, nil
}

func (f *fakeClient) UpdateValues(_ context.Context, _ string, rng Range, values [][]any) error {
	if f.rows == nil {
		f.rows = map[Range][][]any{}
	}
	f.rows[rng] = values
	return nil
}

func (f *fakeClient) BatchUpdateValues(ctx context.Context, spreadsheetID string, updates []ValueRange) error {
	for _, u := range updates {
		if err := f.UpdateValues(ctx, spreadsheetID, u.Range, u.Values); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeClient) AppendValues(_ context.Context, _ string, _ Range, values [][]any) (int, error) {
	return 1, nil
}

func (f *fakeClient) ProtectColumns(_ context.Context, _, _ string, _, _ int, _ string) error {
	return nil
}

func TestReadRectangle_SkipsBlanksAndStopsOnCutoff(t *testing.T) {
	client := &fakeClient{rows: map[Range][][]any{
		"Intake!1:1": {{"Initiative ID", "Title"}},
	}}
	data := make([][]any, 0)
	data = append(data, []any{"INIT-1", "First"})
	data = append(data, []any{nil, nil})
	data = append(data, []any{"INIT-2", "Second"})
	for i := 0; i < 3; i++ {
		data = append(data, []any{nil, nil})
	}
	client.rows[Range("Intake!2:100002")] = data

	spec := ReadSpec{SpreadsheetID: "sheet1", TabName: "Intake", HeaderRow: 1, StartDataRow: 2, BlankRunCutoff: 3}
	aliases := AliasMap{"initiative_id": {"id"}, "title": nil}

	out, err := ReadRectangle(context.Background(), client, spec, aliases)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].RowNumber)
	assert.Equal(t, "INIT-1", out[0].Fields["initiative_id"])
	assert.Equal(t, 4, out[1].RowNumber)
	assert.Equal(t, "INIT-2", out[1].Fields["initiative_id"])
}
