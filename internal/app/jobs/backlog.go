package jobs

import (
	"context"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sync"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/writers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// BacklogUpdateJob implements the Backlog Update Job (spec.md §4.17): a
// thin wrapper around the Central Backlog Sync Service's Sheet→DB owned
// fields sync.
type BacklogUpdateJob struct {
	Service       *sync.CentralBacklogService
	SpreadsheetID string
	CommitEvery   int
	Log           *logger.Logger
}

func (j *BacklogUpdateJob) Run(ctx context.Context, scopeKeys []string) (sync.Result, error) {
	start := time.Now()
	result, err := j.Service.SyncSheetToDB(ctx, j.SpreadsheetID, j.CommitEvery, scopeKeys)
	recordSyncMetrics(j.Service.TabName, result, time.Since(start))
	return result, err
}

// Handle adapts Run to action.Handler, for registration under
// "flow1.backlog_update" (sheetio.SourceBacklogUpdate).
func (j *BacklogUpdateJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	result, err := j.Run(ctx, actx.Scope)
	if err != nil {
		return nil, err
	}
	counts := summaryCounts{
		SelectedCount: len(actx.Scope),
		SavedCount:    result.Upserts,
		SkippedCount:  result.Skipped,
		FailedCount:   result.Failures,
	}
	out := counts.toMap()
	out["warnings"] = result.Warnings
	return out, nil
}

// backlogOwnedColumns is the system-owned projection BacklogSyncJob writes
// back to the central backlog tab — every field the Central Backlog
// (Sheet→DB) Sync Service does NOT own, since the two jobs share the tab
// under spec.md §4.4's owned-column scoping.
var backlogOwnedColumns = []string{
	"title", "requesting_team", "requester_name", "requester_email", "country",
	"product_area", "problem_statement", "desired_outcome", "hypothesis",
	"customer_segment", "initiative_type", "strategic_theme", "deadline_date",
	"impact_low", "impact_expected", "impact_high", "effort_tshirt",
	"effort_eng_days", "risk", "is_mandatory", "dependencies_text",
	"active_scoring_framework", "active_value_score", "active_effort_score",
	"active_overall_score", "kpi_contribution_json", "kpi_contribution_source",
	"metric_chain_json",
}

// BacklogSyncJob implements the Backlog Sync (DB→Sheet) Job (spec.md
// §4.17): regenerates the central backlog tab with the full Initiative
// projection, preserving unknown columns (UpsertWriter only ever touches
// its owned columns), applying warning-only protections to the
// system-owned columns it writes, and stamping provenance.
type BacklogSyncJob struct {
	Store         storage.InitiativeStore
	Client        sheetio.Client
	SpreadsheetID string
	TabName       string
	Log           *logger.Logger
}

func initiativeToRow(in domain.Initiative) writers.Row {
	row := writers.Row{
		"initiative_key":       in.InitiativeKey,
		"title":                in.Title,
		"requesting_team":      in.RequestingTeam,
		"requester_name":       in.RequesterName,
		"requester_email":      in.RequesterEmail,
		"country":              in.Country,
		"product_area":         in.ProductArea,
		"problem_statement":    in.ProblemStatement,
		"desired_outcome":      in.DesiredOutcome,
		"hypothesis":           in.Hypothesis,
		"customer_segment":     in.CustomerSegment,
		"initiative_type":      in.InitiativeType,
		"strategic_theme":      in.StrategicTheme,
		"effort_tshirt":        in.EffortTShirt,
		"risk":                 in.Risk,
		"is_mandatory":         in.IsMandatory,
		"dependencies_text":    in.DependenciesText,
		"active_value_score":   in.Active.Value,
		"active_effort_score":  in.Active.Effort,
		"active_overall_score": in.Active.Overall,
	}
	if in.DeadlineDate != nil {
		row["deadline_date"] = in.DeadlineDate.Format("2006-01-02")
	}
	if in.Impact.Low != nil {
		row["impact_low"] = *in.Impact.Low
	}
	if in.Impact.Expected != nil {
		row["impact_expected"] = *in.Impact.Expected
	}
	if in.Impact.High != nil {
		row["impact_high"] = *in.Impact.High
	}
	if in.EffortEngDays != nil {
		row["effort_eng_days"] = *in.EffortEngDays
	}
	if in.ActiveScoringFramework != nil {
		row["active_scoring_framework"] = string(*in.ActiveScoringFramework)
	}
	if in.KPIContributionJSON != nil {
		row["kpi_contribution_json"] = in.KPIContributionJSON
	}
	if in.KPIContributionSource != nil {
		row["kpi_contribution_source"] = string(*in.KPIContributionSource)
	}
	if in.MetricChainJSON != nil {
		row["metric_chain_json"] = in.MetricChainJSON
	}
	return row
}

// Run regenerates the central backlog tab's system-owned columns for every
// initiative in the store.
func (j *BacklogSyncJob) Run(ctx context.Context) (writers.WritePlan, error) {
	initiatives, err := j.Store.ListInitiatives(ctx)
	if err != nil {
		return writers.WritePlan{}, err
	}
	rows := make([]writers.Row, 0, len(initiatives))
	for _, in := range initiatives {
		if in.InitiativeKey == "" {
			continue
		}
		rows = append(rows, initiativeToRow(in))
	}

	if err := protectColumns(ctx, j.Client, j.SpreadsheetID, j.TabName, backlogOwnedColumns,
		"system-owned: written by the backlog sync job, manual edits will be overwritten"); err != nil {
		if j.Log != nil {
			j.Log.WithError(err).Warn("backlog sync: column protection failed, continuing with write")
		}
	}

	writer := &writers.UpsertWriter{
		Client:             j.Client,
		SpreadsheetID:      j.SpreadsheetID,
		TabName:            j.TabName,
		KeyColumn:          "initiative_key",
		OwnedColumns:       backlogOwnedColumns,
		ProvenanceSource:   sheetio.SourceBacklogSheetWrite,
		ProvenanceColumn:   "updated_source",
		ProvenanceAtColumn: "updated_at",
	}
	return writer.Execute(ctx, rows)
}

// Handle adapts Run to action.Handler, for registration under
// "flow1.backlog_sheet_write" / composed into "pm.backlog_sync" (spec.md
// §6.3).
func (j *BacklogSyncJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	plan, err := j.Run(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"updated_cells": len(plan.Updates),
		"new_rows":      plan.NewRowCount,
	}, nil
}

// FullCycleJob composes intake consolidation, backlog update, and backlog
// sync into the single "pm.backlog_sync" action (spec.md §6.3: "Run
// intake→DB→central backlog full cycle").
type FullCycleJob struct {
	Intake *IntakeConsolidationJob
	Update *BacklogUpdateJob
	Sync   *BacklogSyncJob
}

func (j *FullCycleJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	intakeOutcomes := j.Intake.Run(ctx, actx.Scope)

	updateResult, err := j.Update.Run(ctx, actx.Scope)
	if err != nil {
		return nil, err
	}

	plan, err := j.Sync.Run(ctx)
	if err != nil {
		return nil, err
	}

	var intakeSaved, intakeFailed int
	for _, o := range intakeOutcomes {
		intakeSaved += o.Result.Upserts
		intakeFailed += o.Result.Failures
		if o.Error != "" {
			intakeFailed++
		}
	}

	return map[string]any{
		"intake_tabs":         intakeOutcomes,
		"backlog_upserts":     updateResult.Upserts,
		"backlog_failures":    updateResult.Failures,
		"sheet_updated_cells": len(plan.Updates),
		"sheet_new_rows":      plan.NewRowCount,
		"selected_count":      len(actx.Scope),
		"saved_count":         intakeSaved + updateResult.Upserts,
		"failed_count":        intakeFailed + updateResult.Failures,
	}, nil
}
