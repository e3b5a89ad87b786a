package sync

import (
	"context"
	"fmt"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/readers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
)

// MetricsConfigService implements the ProductOps/Metrics_Config Sync
// Service (spec.md §4.5): writes the OrganizationMetricConfig registry.
// The "exactly-one active north_star" invariant is checked at commit time
// — sync_sheet_to_db fails the whole batch rather than silently picking a
// winner, since an ambiguous north_star would corrupt every downstream KPI
// contribution computation (spec.md §4.8).
type MetricsConfigService struct {
	Client  sheetio.Client
	Store   storage.MetricConfigStore
	TabName string
}

func (s *MetricsConfigService) PreviewRows(ctx context.Context, spreadsheetID string) ([]readers.MetricsConfigRow, []readers.RowError, error) {
	return readers.ReadMetricsConfig(ctx, s.Client, spreadsheetID, s.TabName)
}

func (s *MetricsConfigService) SyncSheetToDB(ctx context.Context, spreadsheetID string, commitEvery int, scopeKeys []string) (Result, error) {
	var result Result
	rows, errs, err := readers.ReadMetricsConfig(ctx, s.Client, spreadsheetID, s.TabName)
	if err != nil {
		return result, err
	}
	rowErrorsToWarnings(&result, errs)

	if err := validateExactlyOneActiveNorthStar(rows); err != nil {
		result.warnf("commit aborted: %v", err)
		return result, err
	}

	scope := scopeSet(scopeKeys)
	batch := newCommitBatcher(commitEvery)

	for _, row := range rows {
		if !inScope(scope, row.KPIKey) {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.KPIKey, Status: RowSkipped, Reason: "out of scope"})
			continue
		}

		m := domain.OrganizationMetricConfig{
			KPIKey:      row.KPIKey,
			KPIName:     row.KPIName,
			KPILevel:    domain.MetricLevel(row.KPILevel),
			Unit:        row.Unit,
			Description: row.Description,
			IsActive:    row.IsActive,
		}
		if _, err := s.Store.UpsertMetricConfig(ctx, m); err != nil {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.KPIKey, Status: RowFailed, Reason: err.Error()})
			continue
		}
		result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.KPIKey, Status: RowUpserted})
		batch.tick()
	}
	return result, nil
}

func validateExactlyOneActiveNorthStar(rows []readers.MetricsConfigRow) error {
	count := 0
	for _, row := range rows {
		if row.IsActive && domain.MetricLevel(row.KPILevel) == domain.MetricLevelNorthStar {
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("metrics_config: expected exactly one active north_star KPI, found %d", count)
	}
	return nil
}
