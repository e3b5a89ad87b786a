package writers

import (
	"context"
	"fmt"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
)

// UpsertWriter writes exactly the columns it owns on a shared tab: for a
// row whose key already exists, it updates only its owned cells on that
// row; for a row whose key is new, it claims the next free row and writes
// its owned cells there, leaving every other column on that row blank for
// whichever other writer owns it (spec.md §4.4 "owned-column scoping").
type UpsertWriter struct {
	Client             sheetio.Client
	SpreadsheetID      string
	TabName            string
	KeyColumn          string   // canonical field name of the key column
	OwnedColumns       []string // canonical field names this writer may write
	ProvenanceSource   string   // stamped into ProvenanceColumn when set
	ProvenanceColumn   string   // canonical field name of the provenance-source column, optional
	ProvenanceAtColumn string   // canonical field name of the provenance-timestamp column, optional
	StartDataRow       int      // defaults to 2 if zero
	BlankRunCutoff     int      // defaults to sheetio.DefaultBlankRunCutoff if zero
}

// keyIndex maps an existing key value to its 1-based row number, and
// tracks the next free row a new key can claim.
type keyIndex struct {
	rowOf   map[string]int
	nextRow int
}

func (w *UpsertWriter) buildKeyIndex(ctx context.Context, aliases sheetio.AliasMap) (keyIndex, error) {
	startRow := w.StartDataRow
	if startRow == 0 {
		startRow = 2
	}
	spec := sheetio.ReadSpec{
		SpreadsheetID:  w.SpreadsheetID,
		TabName:        w.TabName,
		HeaderRow:      1,
		StartDataRow:   startRow,
		BlankRunCutoff: w.BlankRunCutoff,
	}
	raw, err := sheetio.ReadRectangle(ctx, w.Client, spec, aliases)
	if err != nil {
		return keyIndex{}, err
	}
	idx := keyIndex{rowOf: make(map[string]int, len(raw)), nextRow: startRow}
	for _, r := range raw {
		key := sheetio.CoerceString(r.Fields[w.KeyColumn])
		if key == "" {
			continue
		}
		idx.rowOf[key] = r.RowNumber
		if r.RowNumber >= idx.nextRow {
			idx.nextRow = r.RowNumber + 1
		}
	}
	return idx, nil
}

// Plan resolves rows against the tab's current contents and returns the
// single-cell updates needed to upsert them, without executing anything.
// Rows missing KeyColumn are skipped — callers validate required fields
// before reaching a writer.
func (w *UpsertWriter) Plan(ctx context.Context, rows []Row) (WritePlan, error) {
	aliases := sheetio.AliasMap{w.KeyColumn: nil}
	layout, err := readHeaderLayout(ctx, w.Client, w.SpreadsheetID, w.TabName, w.ownedAliases())
	if err != nil {
		return WritePlan{}, err
	}
	keyIdx, err := w.buildKeyIndex(ctx, aliases)
	if err != nil {
		return WritePlan{}, err
	}

	keyColIndex, ok := layout[w.KeyColumn]
	if !ok {
		return WritePlan{}, fmt.Errorf("writers: tab %q has no column for key %q", w.TabName, w.KeyColumn)
	}

	var plan WritePlan
	for _, row := range rows {
		key := sheetio.CoerceString(row[w.KeyColumn])
		if key == "" {
			continue
		}
		rowNumber, exists := keyIdx.rowOf[key]
		if !exists {
			rowNumber = keyIdx.nextRow
			keyIdx.nextRow++
			keyIdx.rowOf[key] = rowNumber
			plan.NewRowCount++
			plan.Updates = append(plan.Updates, sheetio.ValueRange{
				Range:  cellRange(w.TabName, keyColIndex, rowNumber),
				Values: [][]any{{key}},
			})
		}

		for _, col := range w.OwnedColumns {
			colIndex, ok := layout[col]
			if !ok {
				continue
			}
			value, present := row[col]
			if !present {
				continue
			}
			plan.Updates = append(plan.Updates, sheetio.ValueRange{
				Range:  cellRange(w.TabName, colIndex, rowNumber),
				Values: [][]any{{sheetio.ToSheetSafeValue(value)}},
			})
		}

		if w.ProvenanceColumn != "" {
			if colIndex, ok := layout[w.ProvenanceColumn]; ok {
				plan.Updates = append(plan.Updates, sheetio.ValueRange{
					Range:  cellRange(w.TabName, colIndex, rowNumber),
					Values: [][]any{{w.ProvenanceSource}},
				})
			}
		}
		if w.ProvenanceAtColumn != "" {
			if colIndex, ok := layout[w.ProvenanceAtColumn]; ok {
				stamp := sheetio.Stamp(w.ProvenanceSource)
				plan.Updates = append(plan.Updates, sheetio.ValueRange{
					Range:  cellRange(w.TabName, colIndex, rowNumber),
					Values: [][]any{{stamp.ISO8601UTC()}},
				})
			}
		}
	}
	return plan, nil
}

// Execute runs Plan and then submits the resulting updates to Client in
// chunks of at most sheetio.MaxRangesPerBatch.
func (w *UpsertWriter) Execute(ctx context.Context, rows []Row) (WritePlan, error) {
	plan, err := w.Plan(ctx, rows)
	if err != nil {
		return plan, err
	}
	for _, chunk := range plan.Chunks() {
		if err := w.Client.BatchUpdateValues(ctx, w.SpreadsheetID, chunk); err != nil {
			return plan, err
		}
	}
	return plan, nil
}

// ownedAliases builds the alias map readHeaderLayout needs to resolve the
// key, owned and provenance columns against the tab's actual headers.
func (w *UpsertWriter) ownedAliases() sheetio.AliasMap {
	aliases := sheetio.AliasMap{w.KeyColumn: nil}
	for _, col := range w.OwnedColumns {
		aliases[col] = nil
	}
	if w.ProvenanceColumn != "" {
		aliases[w.ProvenanceColumn] = nil
	}
	if w.ProvenanceAtColumn != "" {
		aliases[w.ProvenanceAtColumn] = nil
	}
	return aliases
}
