package sync

import (
	"context"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/readers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
)

// ParamsService implements the ProductOps/Params Sync Service (spec.md
// §4.5): writes parameter rows keyed by (initiative_key, framework,
// param_name[, model_name]). The Approved flag is persisted as-is — it is
// an eligibility gate the Scoring Engines enforce downstream, not a
// condition on whether this sync writes the row at all.
type ParamsService struct {
	Client  sheetio.Client
	Store   storage.ParamStore
	TabName string
}

func (s *ParamsService) PreviewRows(ctx context.Context, spreadsheetID string) ([]readers.ParamRow, []readers.RowError, error) {
	return readers.ReadParams(ctx, s.Client, spreadsheetID, s.TabName)
}

func (s *ParamsService) SyncSheetToDB(ctx context.Context, spreadsheetID string, commitEvery int, scopeKeys []string) (Result, error) {
	var result Result
	rows, errs, err := readers.ReadParams(ctx, s.Client, spreadsheetID, s.TabName)
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

		p := domain.Param{
			InitiativeKey: row.InitiativeKey,
			Framework:     row.Framework,
			ParamName:     row.ParamName,
			ModelName:     row.ModelName,
			Value:         row.Value,
			ParamDisplay:  row.ParamDisplay,
			Description:   row.Description,
			Unit:          row.Unit,
			Min:           row.Min,
			Max:           row.Max,
			Source:        row.Source,
			Approved:      row.Approved,
			IsAutoSeeded:  row.IsAutoSeeded,
			Notes:         row.Notes,
		}
		if _, err := s.Store.UpsertParam(ctx, p); err != nil {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowFailed, Reason: err.Error()})
			continue
		}
		result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowUpserted})
		batch.tick()
	}
	return result, nil
}
