package sync

import (
	"context"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/readers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
)

// KPIContributionsService implements the ProductOps/KPI_Contributions Sync
// Service (spec.md §4.5): the PM-override surface for an initiative's KPI
// contribution map. A present, valid JSON cell sets a pm_override; clearing
// the cell while the current source is pm_override unlocks it back to
// computed. Unknown or ineligible KPI keys are dropped with a warning
// rather than failing the row.
type KPIContributionsService struct {
	Client      sheetio.Client
	Store       storage.InitiativeStore
	MetricStore storage.MetricConfigStore
	TabName     string
}

func (s *KPIContributionsService) PreviewRows(ctx context.Context, spreadsheetID string) ([]readers.KPIContributionRow, []readers.RowError, error) {
	return readers.ReadKPIContributions(ctx, s.Client, spreadsheetID, s.TabName)
}

func (s *KPIContributionsService) SyncSheetToDB(ctx context.Context, spreadsheetID string, commitEvery int, scopeKeys []string) (Result, error) {
	var result Result
	rows, errs, err := readers.ReadKPIContributions(ctx, s.Client, spreadsheetID, s.TabName)
	if err != nil {
		return result, err
	}
	rowErrorsToWarnings(&result, errs)

	registry, err := s.eligibleRegistry(ctx)
	if err != nil {
		return result, err
	}

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

		currentSource := domain.KPIContributionSource("")
		if in.KPIContributionSource != nil {
			currentSource = *in.KPIContributionSource
		}

		if row.ContributionRaw == "" {
			if currentSource == domain.KPIContribSourcePMOverride {
				in.KPIContributionJSON = nil
				in.KPIContributionSource = nil
				if _, err := s.Store.UpdateInitiative(ctx, in); err != nil {
					result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowFailed, Reason: err.Error()})
					continue
				}
				result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowUnlocked})
				batch.tick()
				continue
			}
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowSkipped, Reason: "blank cell, no override to clear"})
			continue
		}

		parsed, ok := sheetio.CoerceJSONMap(row.ContributionRaw)
		if !ok {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowFailed, Reason: "contribution cell is not a valid kpi->float JSON map"})
			continue
		}

		clean := make(map[string]float64, len(parsed))
		for k, v := range parsed {
			if registry[k] {
				clean[k] = v
			} else {
				result.warnf("row %d: kpi key %q is not an eligible north_star/strategic metric, dropped", row.RowNumber, k)
			}
		}

		in.KPIContributionJSON = clean
		source := domain.KPIContribSourcePMOverride
		in.KPIContributionSource = &source
		in.ScoringUpdatedSource = "kpi_contributions_sync"
		in.ScoringUpdatedAt = time.Now().UTC()

		if _, err := s.Store.UpdateInitiative(ctx, in); err != nil {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowFailed, Reason: err.Error()})
			continue
		}
		result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowUpserted})
		batch.tick()
	}
	return result, nil
}

// eligibleRegistry returns the set of KPI keys that are currently active
// and at a level eligible to receive contributions (spec.md §4.8: "north_star
// or strategic").
func (s *KPIContributionsService) eligibleRegistry(ctx context.Context) (map[string]bool, error) {
	configs, err := s.MetricStore.ListActiveMetricConfigs(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(configs))
	for _, c := range configs {
		if c.KPILevel.EligibleForContribution() {
			set[c.KPIKey] = true
		}
	}
	return set, nil
}
