package sync

import (
	"context"
	"strings"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/readers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
)

// MathModelsService implements the ProductOps/MathModels Sync Service
// (spec.md §4.5): writes model rows keyed by (initiative_key, model_name),
// parses metric_chain_text into the domain's metric-chain slice, and never
// overwrites a user-entered column with an LLM suggestion (SuggestedByLLM
// is descriptive metadata, not a write-gate on the other columns —
// suggestions land in their own columns and a PM must flip ApprovedByUser
// before the scoring engine will use them, per §4.6 Math Model engine).
type MathModelsService struct {
	Client sheetio.Client
	Store  interface {
		storage.InitiativeStore
		storage.MathModelStore
	}
	TabName string
}

func (s *MathModelsService) PreviewRows(ctx context.Context, spreadsheetID string) ([]readers.MathModelRow, []readers.RowError, error) {
	return readers.ReadMathModels(ctx, s.Client, spreadsheetID, s.TabName)
}

func (s *MathModelsService) SyncSheetToDB(ctx context.Context, spreadsheetID string, commitEvery int, scopeKeys []string) (Result, error) {
	var result Result
	rows, errs, err := readers.ReadMathModels(ctx, s.Client, spreadsheetID, s.TabName)
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

		m := domain.MathModel{
			InitiativeID:    in.ID,
			ModelName:       row.ModelName,
			TargetKPIKey:    row.TargetKPIKey,
			MetricChainText: row.MetricChainText,
			FormulaText:     row.FormulaText,
			AssumptionsText: row.AssumptionsText,
			IsPrimary:       row.IsPrimary,
			ApprovedByUser:  row.ApprovedByUser,
			SuggestedByLLM:  row.SuggestedByLLM,
		}
		if _, err := s.Store.UpsertMathModel(ctx, m); err != nil {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowFailed, Reason: err.Error()})
			continue
		}

		if row.MetricChainText != "" {
			chain := splitMetricChain(row.MetricChainText)
			in.MetricChainJSON = chain
			if _, err := s.Store.UpdateInitiative(ctx, in); err != nil {
				result.warnf("row %d: failed to persist parsed metric chain: %v", row.RowNumber, err)
			}
		}

		result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowUpserted})
		batch.tick()
	}
	return result, nil
}

// splitMetricChain parses metric_chain_text's "kpi_a -> kpi_b -> kpi_c"
// notation into an ordered slice, trimming each hop.
func splitMetricChain(text string) []string {
	hops := strings.Split(text, "->")
	out := make([]string, 0, len(hops))
	for _, h := range hops {
		h = strings.TrimSpace(h)
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
