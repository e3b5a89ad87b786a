package writers

import (
	"context"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
)

// AppendOnlyWriter writes one full new row per call and never revisits an
// existing row — the shape ScoreHistory-style audit tabs need (spec.md
// §4.4: "append-only writer ... for history tabs").
type AppendOnlyWriter struct {
	Client        sheetio.Client
	SpreadsheetID string
	TabName       string
	Columns       []string // canonical field names, in the order they appear on the tab
}

// Append resolves the tab's current header layout against Columns, builds
// one full row per input Row (columns this writer doesn't own are left
// blank so it never clobbers another writer's cells on an append-only tab
// shared with one), and appends them via a single AppendValues call.
func (w *AppendOnlyWriter) Append(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	layout, err := readHeaderLayout(ctx, w.Client, w.SpreadsheetID, w.TabName, w.aliases())
	if err != nil {
		return err
	}

	width := 0
	for _, idx := range layout {
		if idx+1 > width {
			width = idx + 1
		}
	}

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		record := make([]any, width)
		for _, col := range w.Columns {
			colIndex, ok := layout[col]
			if !ok {
				continue
			}
			if v, present := row[col]; present {
				record[colIndex] = sheetio.ToSheetSafeValue(v)
			}
		}
		values = append(values, record)
	}

	_, err = w.Client.AppendValues(ctx, w.SpreadsheetID, sheetio.Range(w.TabName+"!A:A"), values)
	return err
}

func (w *AppendOnlyWriter) aliases() sheetio.AliasMap {
	aliases := make(sheetio.AliasMap, len(w.Columns))
	for _, col := range w.Columns {
		aliases[col] = nil
	}
	return aliases
}
