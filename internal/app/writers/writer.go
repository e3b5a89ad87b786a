// Package writers implements the owned-column-scoped sheet writers of
// spec.md §4.4: an upsert-by-key writer for tabs the system maintains
// incrementally (Central Backlog, ProductOps/Scoring_Inputs and friends),
// and an append-only writer for tabs that are pure history (ScoreHistory-
// style tabs). Both writers only ever touch the columns they own — never a
// whole row — so two writers can safely share one tab.
package writers

import (
	"context"
	"fmt"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
)

// Row is one logical record to upsert or append, keyed by canonical field
// name exactly like sheetio.RawRow.Fields.
type Row map[string]any

// WritePlan is the serializable description of what a writer intends to
// do, inspectable in tests before (or instead of) executing it against a
// real Client (spec.md §9: "the batching module must allow inspection in
// tests; plans are serializable").
type WritePlan struct {
	// Updates is every single-cell range write, pre-chunking.
	Updates []sheetio.ValueRange
	// NewRowCount is how many of Updates' rows are brand new (not found by
	// key) versus existing-row updates.
	NewRowCount int
}

// Chunks returns Updates split into batches of at most
// sheetio.MaxRangesPerBatch, the unit of work a single BatchUpdateValues
// call may submit.
func (p WritePlan) Chunks() [][]sheetio.ValueRange {
	return sheetio.ChunkValueRanges(p.Updates)
}

// columnLetter converts a 0-based column index to its A1 column letters
// (0 -> "A", 25 -> "Z", 26 -> "AA", ...).
func columnLetter(index int) string {
	if index < 0 {
		return ""
	}
	var letters []byte
	n := index
	for {
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return string(letters)
}

// cellRange builds the single-cell A1 range for (tabName, columnIndex,
// rowNumber).
func cellRange(tabName string, columnIndex, rowNumber int) sheetio.Range {
	return sheetio.Range(fmt.Sprintf("%s!%s%d:%s%d", tabName, columnLetter(columnIndex), rowNumber, columnLetter(columnIndex), rowNumber))
}

// readHeaderLayout reads row 1 of a tab and resolves it against aliases,
// the first step every writer takes before it can address specific
// columns.
func readHeaderLayout(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string, aliases sheetio.AliasMap) (map[string]int, error) {
	headerRows, err := client.GetValues(ctx, spreadsheetID, sheetio.Range(tabName+"!1:1"))
	if err != nil {
		return nil, err
	}
	if len(headerRows) == 0 {
		return nil, fmt.Errorf("writers: tab %q has no header row", tabName)
	}
	headers := make([]string, len(headerRows[0]))
	for i, v := range headerRows[0] {
		headers[i] = sheetio.CoerceString(v)
	}
	return sheetio.ResolveIndices(headers, aliases), nil
}
