package readers

import (
	"context"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
)

// CentralBacklogRow is one parsed data row of the Central Backlog tab
// (spec.md §4.5 Central Backlog Sync). The sheet is append-only from the
// system's side (new initiatives) but PM-editable on a fixed set of
// columns — this reader only extracts what a PM may have changed; it does
// not re-read system-owned columns.
type CentralBacklogRow struct {
	RowNumber int

	InitiativeKey string
	Status        string

	// PM-editable (central-editable, spec.md §3 Initiative central-editable
	// fields)
	UseMathModel                 bool
	LinkedObjectivesRaw          string
	LLMNotes                     string
	StrategicPriorityCoefficient *float64

	// Optimization candidacy, also PM-editable on this tab
	IsOptimizationCandidate bool
	CandidatePeriodKey      string
	EngineeringTokens       *int64
	DimCountry              string
	DimDepartment           string
	DimCategory             string
	DimProgram              string
	DimProduct              string
	DimSegment              string
}

// CentralBacklogAliases declares every header variant the Central Backlog
// tab may use for each canonical field.
var CentralBacklogAliases = sheetio.AliasMap{
	"initiative_key":                 {"id", "initiative_id"},
	"status":                         nil,
	"use_math_model":                 {"math_model_enabled"},
	"linked_objectives":              {"objectives"},
	"llm_notes":                      {"notes", "ai_notes"},
	"strategic_priority_coefficient": {"priority_coefficient"},
	"is_optimization_candidate":      {"optimization_candidate"},
	"candidate_period_key":           {"period", "period_key"},
	"engineering_tokens":             {"eng_tokens"},
	"dim_country":                    nil,
	"dim_department":                 {"department"},
	"dim_category":                   {"category"},
	"dim_program":                    {"program"},
	"dim_product":                    {"product"},
	"dim_segment":                    {"segment"},
}

// ReadCentralBacklog reads the Central Backlog tab (header row 1, data from
// row 2).
func ReadCentralBacklog(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]CentralBacklogRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: 2}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, CentralBacklogAliases)
	if err != nil {
		return nil, nil, err
	}

	var rows []CentralBacklogRow
	var errs []RowError
	for _, r := range raw {
		row := CentralBacklogRow{RowNumber: r.RowNumber}
		row.InitiativeKey = sheetio.CoerceString(r.Fields["initiative_key"])
		if row.InitiativeKey == "" {
			errs = append(errs, newRowError(r.RowNumber, "initiative_key", "required field is blank"))
			continue
		}
		row.Status = sheetio.CoerceString(r.Fields["status"])
		row.UseMathModel = sheetio.CoerceBool(r.Fields["use_math_model"])
		row.LinkedObjectivesRaw = sheetio.CoerceString(r.Fields["linked_objectives"])
		row.LLMNotes = sheetio.CoerceString(r.Fields["llm_notes"])
		row.IsOptimizationCandidate = sheetio.CoerceBool(r.Fields["is_optimization_candidate"])
		row.CandidatePeriodKey = sheetio.CoerceString(r.Fields["candidate_period_key"])
		row.DimCountry = sheetio.CoerceString(r.Fields["dim_country"])
		row.DimDepartment = sheetio.CoerceString(r.Fields["dim_department"])
		row.DimCategory = sheetio.CoerceString(r.Fields["dim_category"])
		row.DimProgram = sheetio.CoerceString(r.Fields["dim_program"])
		row.DimProduct = sheetio.CoerceString(r.Fields["dim_product"])
		row.DimSegment = sheetio.CoerceString(r.Fields["dim_segment"])

		if v, ok := sheetio.CoerceFloat(r.Fields["strategic_priority_coefficient"]); ok {
			row.StrategicPriorityCoefficient = &v
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["engineering_tokens"]); ok {
			iv := int64(v)
			row.EngineeringTokens = &iv
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}
