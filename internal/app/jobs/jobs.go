// Package jobs implements the scheduled/action-triggered jobs of spec.md
// §4.16-4.18: Intake Consolidation, the two Backlog Jobs, and the
// Optimization Job. Each job is a thin composition of the sync, writers,
// optimize and storage packages rather than a new execution engine —
// grounded on the teacher's internal/app/services/automation job shape
// (one struct per job, a Run method, errors collected per unit of work
// rather than aborting the whole job).
package jobs

import (
	"context"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/metrics"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sync"
)

// recordSyncMetrics reports one sync service run's row outcomes and
// duration under tab's label.
func recordSyncMetrics(tab string, result sync.Result, elapsed time.Duration) {
	metrics.RecordSyncRun(tab, elapsed)
	for i := 0; i < result.Upserts; i++ {
		metrics.RecordSyncRow(tab, "upserted")
	}
	for i := 0; i < result.Skipped; i++ {
		metrics.RecordSyncRow(tab, "skipped")
	}
	for i := 0; i < result.Unlocked; i++ {
		metrics.RecordSyncRow(tab, "unlocked")
	}
	for i := 0; i < result.Failures; i++ {
		metrics.RecordSyncRow(tab, "failed")
	}
}

// protectColumns resolves each named canonical column against tabName's
// current header row and applies a warning-only protection to it (spec.md
// §4.17: "applying warning-only protections to system-owned columns"). A
// column absent from the tab is silently skipped — the same "unmatched
// columns are not an error" policy the readers/writers use.
func protectColumns(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string, columns []string, description string) error {
	headerRows, err := client.GetValues(ctx, spreadsheetID, sheetio.Range(tabName+"!1:1"))
	if err != nil {
		return err
	}
	if len(headerRows) == 0 {
		return nil
	}
	headers := make([]string, len(headerRows[0]))
	for i, v := range headerRows[0] {
		headers[i] = sheetio.CoerceString(v)
	}
	aliases := make(sheetio.AliasMap, len(columns))
	for _, c := range columns {
		aliases[c] = nil
	}
	indices := sheetio.ResolveIndices(headers, aliases)
	for _, c := range columns {
		colIndex, ok := indices[c]
		if !ok {
			continue
		}
		if err := client.ProtectColumns(ctx, spreadsheetID, tabName, colIndex, colIndex, description); err != nil {
			return err
		}
	}
	return nil
}

// summaryCounts is the standardized per-job summary the Action Runner
// attaches to an ActionRun (spec.md §4.13: "selected_count, saved_count,
// failed_count, skipped_no_key, per-job specific counts").
type summaryCounts struct {
	SelectedCount int `json:"selected_count"`
	SavedCount    int `json:"saved_count"`
	FailedCount   int `json:"failed_count"`
	SkippedCount  int `json:"skipped_count"`
}

func (s summaryCounts) toMap() map[string]any {
	return map[string]any{
		"selected_count": s.SelectedCount,
		"saved_count":    s.SavedCount,
		"failed_count":   s.FailedCount,
		"skipped_count":  s.SkippedCount,
	}
}
