package sync

import (
	"context"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/readers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
)

// CentralBacklogService implements the Central Backlog (Sheet→DB) Sync
// Service (spec.md §4.5): it writes status (the full set, not just the
// intake subset), use_math_model, linked objectives, LLM notes, strategic
// priority coefficient, and optimization candidacy (candidate flag, period
// key, engineering tokens, dimension columns). It does not write
// active_scoring_framework, impact/effort values or dependencies; the
// backlog row it reads has no columns for them. It never touches
// per-framework scores nor intake-only audit fields.
type CentralBacklogService struct {
	Client  sheetio.Client
	Store   storage.InitiativeStore
	TabName string
}

func (s *CentralBacklogService) PreviewRows(ctx context.Context, spreadsheetID string) ([]readers.CentralBacklogRow, []readers.RowError, error) {
	return readers.ReadCentralBacklog(ctx, s.Client, spreadsheetID, s.TabName)
}

func (s *CentralBacklogService) SyncSheetToDB(ctx context.Context, spreadsheetID string, commitEvery int, scopeKeys []string) (Result, error) {
	var result Result
	rows, errs, err := readers.ReadCentralBacklog(ctx, s.Client, spreadsheetID, s.TabName)
	if err != nil {
		return result, err
	}
	rowErrorsToWarnings(&result, errs)

	scope := scopeSet(scopeKeys)
	batch := newCommitBatcher(commitEvery)

	for _, row := range rows {
		if !inScope(scope, row.InitiativeKey) {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowSkipped, Reason: "out of scope"})
			continue
		}
		in, err := s.Store.GetInitiativeByKey(ctx, row.InitiativeKey)
		if err != nil {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowFailed, Reason: "unknown initiative_key"})
			continue
		}

		if row.Status != "" {
			in.Status = domain.InitiativeStatus(row.Status)
		}
		in.UseMathModel = row.UseMathModel
		if row.LinkedObjectivesRaw != "" {
			if list, ok := sheetio.CoerceJSONStringList(row.LinkedObjectivesRaw); ok {
				in.LinkedObjectives = list
			} else {
				in.LinkedObjectives = []string{row.LinkedObjectivesRaw}
			}
		}
		in.LLMNotes = row.LLMNotes
		in.StrategicPriorityCoefficient = row.StrategicPriorityCoefficient
		in.IsOptimizationCandidate = row.IsOptimizationCandidate
		in.CandidatePeriodKey = row.CandidatePeriodKey
		in.EngineeringTokens = row.EngineeringTokens
		in.DimCountry = row.DimCountry
		in.DimDepartment = row.DimDepartment
		in.DimCategory = row.DimCategory
		in.DimProgram = row.DimProgram
		in.DimProduct = row.DimProduct
		in.DimSegment = row.DimSegment
		in.UpdatedSource = "central_backlog_sync"
		in.UpdatedAt = time.Now().UTC()

		if _, err := s.Store.UpdateInitiative(ctx, in); err != nil {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowFailed, Reason: err.Error()})
			continue
		}
		result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowUpserted})
		batch.tick()
	}
	return result, nil
}
