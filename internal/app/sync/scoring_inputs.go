package sync

import (
	"context"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/readers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
)

// ScoringInputsService implements the ProductOps/Scoring_Inputs Sync
// Service (spec.md §4.5): a "strong sync" — an empty sheet cell clears the
// stale DB value rather than being ignored, since this tab is the PM's only
// surface for choosing which framework is authoritative. RICE/WSJF
// parameter values themselves live on the ProductOps/Params tab
// (ParamsService); this service owns only the framework selection.
type ScoringInputsService struct {
	Client  sheetio.Client
	Store   storage.InitiativeStore
	TabName string
}

func (s *ScoringInputsService) PreviewRows(ctx context.Context, spreadsheetID string) ([]readers.ScoringInputsRow, []readers.RowError, error) {
	return readers.ReadScoringInputs(ctx, s.Client, spreadsheetID, s.TabName)
}

func (s *ScoringInputsService) SyncSheetToDB(ctx context.Context, spreadsheetID string, commitEvery int, scopeKeys []string) (Result, error) {
	var result Result
	rows, errs, err := readers.ReadScoringInputs(ctx, s.Client, spreadsheetID, s.TabName)
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

		before := in.ActiveScoringFramework
		if row.ActiveScoringFramework == "" {
			in.ActiveScoringFramework = nil
		} else {
			f := domain.ScoringFramework(row.ActiveScoringFramework)
			in.ActiveScoringFramework = &f
		}
		in.ScoringUpdatedSource = "scoring_inputs_sync"
		in.ScoringUpdatedAt = time.Now().UTC()

		if _, err := s.Store.UpdateInitiative(ctx, in); err != nil {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowFailed, Reason: err.Error()})
			continue
		}

		status := RowUpserted
		if before != nil && in.ActiveScoringFramework == nil {
			status = RowUnlocked
		}
		result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: status})
		batch.tick()
	}
	return result, nil
}
