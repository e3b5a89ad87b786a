package jobs

import (
	"context"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sync"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// IntakeConsolidationJob implements the Intake Consolidation Job (spec.md
// §4.16): one IntakeService per configured intake tab, each synced in turn;
// a failing tab is recorded and the remaining tabs still run (spec.md: "one
// tab's failure does not abort sibling tabs").
type IntakeConsolidationJob struct {
	Services      []*sync.IntakeService
	SpreadsheetID string
	CommitEvery   int
	Log           *logger.Logger
}

// TabOutcome is one tab's sync result within a multi-tab job run.
type TabOutcome struct {
	TabName string      `json:"tab_name"`
	Result  sync.Result `json:"result"`
	Error   string      `json:"error,omitempty"`
}

// Run syncs every configured intake tab, in order, and returns one
// TabOutcome per tab.
func (j *IntakeConsolidationJob) Run(ctx context.Context, scopeKeys []string) []TabOutcome {
	outcomes := make([]TabOutcome, 0, len(j.Services))
	for _, svc := range j.Services {
		start := time.Now()
		result, err := svc.SyncSheetToDB(ctx, j.SpreadsheetID, j.CommitEvery, scopeKeys)
		recordSyncMetrics(svc.TabName, result, time.Since(start))
		outcome := TabOutcome{TabName: svc.TabName, Result: result}
		if err != nil {
			outcome.Error = err.Error()
			if j.Log != nil {
				j.Log.WithField("tab", svc.TabName).WithError(err).Warn("intake consolidation: tab failed")
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Handle adapts Run to the action.Handler signature, for registration under
// "flow1.intake_sync" (spec.md §6.4 provenance token).
func (j *IntakeConsolidationJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	outcomes := j.Run(ctx, actx.Scope)

	var counts summaryCounts
	for _, o := range outcomes {
		counts.SavedCount += o.Result.Upserts
		counts.SkippedCount += o.Result.Skipped
		counts.FailedCount += o.Result.Failures
		if o.Error != "" {
			counts.FailedCount++
		}
	}
	counts.SelectedCount = len(actx.Scope)

	result := counts.toMap()
	result["tabs"] = outcomes
	return result, nil
}
