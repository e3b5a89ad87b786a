package jobs

import (
	"context"
	"fmt"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/metrics"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/scoring"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sync"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/writers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// ScoreSelectedJob implements "pm.score_selected" (spec.md §6.3): compute
// every scoring framework for each selected initiative and persist the
// result, following spec.md §4.13's uniform PM-job shape ("if empty, bail
// early with selected_count: 0").
type ScoreSelectedJob struct {
	Scoring     *scoring.Service
	Initiatives storage.InitiativeStore
	Log         *logger.Logger
}

func (j *ScoreSelectedJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	counts := summaryCounts{SelectedCount: len(actx.Scope)}
	if len(actx.Scope) == 0 {
		return counts.toMap(), nil
	}

	for _, key := range actx.Scope {
		in, err := j.Initiatives.GetInitiativeByKey(ctx, key)
		if err != nil {
			counts.FailedCount++
			if j.Log != nil {
				j.Log.WithField("initiative_key", key).WithError(err).Warn("score_selected: initiative not found")
			}
			continue
		}
		_, err = j.Scoring.ScoreInitiativeAllFrameworks(ctx, in)
		metrics.RecordScoringRun("all", err)
		if err != nil {
			counts.FailedCount++
			if j.Log != nil {
				j.Log.WithField("initiative_key", key).WithError(err).Warn("score_selected: scoring failed")
			}
			continue
		}
		counts.SavedCount++
	}
	return counts.toMap(), nil
}

// SwitchFrameworkJob implements "pm.switch_framework": copy a chosen
// framework's already-computed triple into the active fields without
// recomputing (spec.md §6.3).
type SwitchFrameworkJob struct {
	Scoring     *scoring.Service
	Initiatives storage.InitiativeStore
	Log         *logger.Logger
}

func (j *SwitchFrameworkJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	counts := summaryCounts{SelectedCount: len(actx.Scope)}
	if len(actx.Scope) == 0 {
		return counts.toMap(), nil
	}

	frameworkName, _ := actx.Options["framework"].(string)
	if frameworkName == "" {
		return nil, fmt.Errorf("jobs: pm.switch_framework requires options.framework")
	}
	framework := domain.ScoringFramework(frameworkName)
	source := sheetio.PMJobSource("switch_framework")

	for _, key := range actx.Scope {
		in, err := j.Initiatives.GetInitiativeByKey(ctx, key)
		if err != nil {
			counts.FailedCount++
			continue
		}
		if _, err := j.Scoring.ActivateInitiativeFramework(ctx, in, framework, source); err != nil {
			counts.FailedCount++
			if j.Log != nil {
				j.Log.WithField("initiative_key", key).WithError(err).Warn("switch_framework: activation failed")
			}
			continue
		}
		counts.SavedCount++
	}
	return counts.toMap(), nil
}

// TabSyncer is the common shape every per-tab sync.*Service exposes, so
// SaveSelectedJob can dispatch on sheet_context.tab without depending on any
// one service's concrete type (spec.md §4.13 step 2: "if the handler is
// tab-aware ... dispatch on sheet_context.tab to the matching sync
// service"). Exported so cmd/worker can build the Services map at wiring
// time from outside this package.
type TabSyncer interface {
	SyncSheetToDB(ctx context.Context, spreadsheetID string, commitEvery int, scopeKeys []string) (sync.Result, error)
}

// SaveSelectedJob implements "pm.save_selected": tab-aware dispatch to
// whichever sync service owns the active sheet tab.
type SaveSelectedJob struct {
	Services      map[string]TabSyncer // keyed by tab name
	SpreadsheetID string
	CommitEvery   int
	Log           *logger.Logger
}

func (j *SaveSelectedJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	counts := summaryCounts{SelectedCount: len(actx.Scope)}
	if len(actx.Scope) == 0 {
		return counts.toMap(), nil
	}

	tab, _ := actx.SheetContext["tab"].(string)
	svc, ok := j.Services[tab]
	if !ok {
		return nil, fmt.Errorf("jobs: pm.save_selected: no sync service registered for tab %q", tab)
	}

	result, err := svc.SyncSheetToDB(ctx, j.SpreadsheetID, j.CommitEvery, actx.Scope)
	if err != nil {
		return nil, err
	}
	counts.SavedCount = result.Upserts
	counts.SkippedCount = result.Skipped
	counts.FailedCount = result.Failures
	out := counts.toMap()
	out["warnings"] = result.Warnings
	return out, nil
}

// candidatesOwnedColumns is the read-only projection "pm.populate_candidates"
// refreshes on the Candidates tab (spec.md §6.3: "Refresh Candidates tab
// from DB (read-only columns only)").
var candidatesOwnedColumns = []string{
	"title", "is_optimization_candidate", "candidate_period_key",
	"engineering_tokens", "dim_country", "dim_department", "dim_category",
	"dim_program", "dim_product", "dim_segment", "active_overall_score",
	"kpi_contribution_json",
}

// PopulateCandidatesJob implements "pm.populate_candidates": regenerate the
// Candidates tab from the current optimization candidate pool.
type PopulateCandidatesJob struct {
	Store         storage.InitiativeStore
	Client        sheetio.Client
	SpreadsheetID string
	TabName       string
	Log           *logger.Logger
}

func (j *PopulateCandidatesJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	periodKey, _ := actx.Options["period_key"].(string)

	candidates, err := j.Store.ListOptimizationCandidates(ctx, periodKey)
	if err != nil {
		return nil, err
	}

	rows := make([]writers.Row, 0, len(candidates))
	for _, in := range candidates {
		row := writers.Row{
			"initiative_key":            in.InitiativeKey,
			"title":                     in.Title,
			"is_optimization_candidate": in.IsOptimizationCandidate,
			"candidate_period_key":      in.CandidatePeriodKey,
			"dim_country":               in.DimCountry,
			"dim_department":            in.DimDepartment,
			"dim_category":              in.DimCategory,
			"dim_program":               in.DimProgram,
			"dim_product":               in.DimProduct,
			"dim_segment":               in.DimSegment,
			"active_overall_score":      in.Active.Overall,
		}
		if in.EngineeringTokens != nil {
			row["engineering_tokens"] = *in.EngineeringTokens
		}
		if in.KPIContributionJSON != nil {
			row["kpi_contribution_json"] = in.KPIContributionJSON
		}
		rows = append(rows, row)
	}

	writer := &writers.UpsertWriter{
		Client:             j.Client,
		SpreadsheetID:      j.SpreadsheetID,
		TabName:            j.TabName,
		KeyColumn:          "initiative_key",
		OwnedColumns:       candidatesOwnedColumns,
		ProvenanceSource:   sheetio.PMJobSource("populate_candidates"),
		ProvenanceColumn:   "updated_source",
		ProvenanceAtColumn: "updated_at",
	}
	plan, err := writer.Execute(ctx, rows)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"selected_count": len(candidates),
		"updated_cells":  len(plan.Updates),
		"new_rows":       plan.NewRowCount,
	}, nil
}
