package readers

import (
	"context"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
)

// optimizationCenterStartDataRow is the data start row for every
// Optimization Center tab: rows 2-3 hold scenario metadata/legend, the
// data rectangle proper starts at row 4 (spec.md §4.3 common contract:
// "start_data_row=2|4").
const optimizationCenterStartDataRow = 4

// CandidateRow is one row of the Optimization Center/Candidates tab: the
// materialized view of initiatives eligible for a given scenario period
// (spec.md §4.11 Problem Builder candidate resolution).
type CandidateRow struct {
	RowNumber          int
	InitiativeKey      string
	CandidatePeriodKey string
	EngineeringTokens  *int64
	DimCountry         string
	DimDepartment      string
	DimCategory        string
	DimProgram         string
	DimProduct         string
	DimSegment         string
}

var CandidateAliases = sheetio.AliasMap{
	"initiative_key":       {"id", "initiative_id"},
	"candidate_period_key": {"period", "period_key"},
	"engineering_tokens":   {"eng_tokens"},
	"dim_country":          nil,
	"dim_department":       {"department"},
	"dim_category":         {"category"},
	"dim_program":          {"program"},
	"dim_product":          {"product"},
	"dim_segment":          {"segment"},
}

func ReadCandidates(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]CandidateRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: optimizationCenterStartDataRow}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, CandidateAliases)
	if err != nil {
		return nil, nil, err
	}
	var rows []CandidateRow
	var errs []RowError
	for _, r := range raw {
		key := sheetio.CoerceString(r.Fields["initiative_key"])
		if key == "" {
			errs = append(errs, newRowError(r.RowNumber, "initiative_key", "required field is blank"))
			continue
		}
		row := CandidateRow{
			RowNumber:          r.RowNumber,
			InitiativeKey:      key,
			CandidatePeriodKey: sheetio.CoerceString(r.Fields["candidate_period_key"]),
			DimCountry:         sheetio.CoerceString(r.Fields["dim_country"]),
			DimDepartment:      sheetio.CoerceString(r.Fields["dim_department"]),
			DimCategory:        sheetio.CoerceString(r.Fields["dim_category"]),
			DimProgram:         sheetio.CoerceString(r.Fields["dim_program"]),
			DimProduct:         sheetio.CoerceString(r.Fields["dim_product"]),
			DimSegment:         sheetio.CoerceString(r.Fields["dim_segment"]),
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["engineering_tokens"]); ok {
			iv := int64(v)
			row.EngineeringTokens = &iv
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

// ConstraintRow is one row of the Optimization Center/Constraints tab. Its
// shape is deliberately generic — kind plus scope plus a small set of
// typed payload columns — because interpreting the 9 constraint kinds
// into an OptimizationConstraintSet is the Constraint Compiler's job
// (spec.md §4.9), not the reader's.
type ConstraintRow struct {
	RowNumber     int
	Kind          string
	Dimension     string
	DimensionKey  string
	InitiativeKey string
	MembersRaw    string // comma/JSON-list of initiative keys (bundles, exclusions, synergy, prerequisites)
	Value         *float64
	Notes         string
}

var ConstraintAliases = sheetio.AliasMap{
	"kind":           {"constraint_kind", "type"},
	"dimension":      {"scope_dimension"},
	"dimension_key":  {"scope_value"},
	"initiative_key": {"id", "initiative_id"},
	"members":        {"members_list", "group"},
	"value":          nil,
	"notes":          nil,
}

func ReadConstraints(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]ConstraintRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: optimizationCenterStartDataRow}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, ConstraintAliases)
	if err != nil {
		return nil, nil, err
	}
	var rows []ConstraintRow
	var errs []RowError
	for _, r := range raw {
		kind := sheetio.CoerceString(r.Fields["kind"])
		if kind == "" {
			errs = append(errs, newRowError(r.RowNumber, "kind", "required field is blank"))
			continue
		}
		row := ConstraintRow{
			RowNumber:     r.RowNumber,
			Kind:          kind,
			Dimension:     sheetio.CoerceString(r.Fields["dimension"]),
			DimensionKey:  sheetio.CoerceString(r.Fields["dimension_key"]),
			InitiativeKey: sheetio.CoerceString(r.Fields["initiative_key"]),
			MembersRaw:    sheetio.CoerceString(r.Fields["members"]),
			Notes:         sheetio.CoerceString(r.Fields["notes"]),
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["value"]); ok {
			row.Value = &v
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

// TargetRow is one row of the Optimization Center/Targets tab: a
// {dimension, dimension_key, kpi_key, type, value} tuple that the
// Constraint Compiler nests into OptimizationConstraintSet.Targets
// (spec.md §3 OptimizationConstraintSet.Targets).
type TargetRow struct {
	RowNumber    int
	Dimension    string
	DimensionKey string
	KPIKey       string
	Type         string
	Value        *float64
	Notes        string
}

var TargetAliases = sheetio.AliasMap{
	"dimension":     {"scope_dimension"},
	"dimension_key": {"scope_value"},
	"kpi_key":       {"kpi"},
	"type":          {"target_type"},
	"value":         {"target_value"},
	"notes":         nil,
}

func ReadTargets(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]TargetRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: optimizationCenterStartDataRow}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, TargetAliases)
	if err != nil {
		return nil, nil, err
	}
	var rows []TargetRow
	var errs []RowError
	for _, r := range raw {
		kpiKey := sheetio.CoerceString(r.Fields["kpi_key"])
		if kpiKey == "" {
			errs = append(errs, newRowError(r.RowNumber, "kpi_key", "required field is blank"))
			continue
		}
		row := TargetRow{
			RowNumber:    r.RowNumber,
			Dimension:    sheetio.CoerceString(r.Fields["dimension"]),
			DimensionKey: sheetio.CoerceString(r.Fields["dimension_key"]),
			KPIKey:       kpiKey,
			Type:         sheetio.CoerceString(r.Fields["type"]),
			Notes:        sheetio.CoerceString(r.Fields["notes"]),
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["value"]); ok {
			row.Value = &v
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

// ScenarioConfigRow is one row of the Optimization Center/Scenario_Config
// tab (spec.md §3 OptimizationScenario).
type ScenarioConfigRow struct {
	RowNumber           int
	Name                string
	PeriodKey           string
	CapacityTotalTokens *int64
	ObjectiveMode       string
	ObjectiveWeightsRaw string
	Notes               string
}

var ScenarioConfigAliases = sheetio.AliasMap{
	"name":                  nil,
	"period_key":            {"period"},
	"capacity_total_tokens": {"capacity", "total_tokens"},
	"objective_mode":        {"objective"},
	"objective_weights":     {"weights", "objective_weights_json"},
	"notes":                 nil,
}

func ReadScenarioConfig(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]ScenarioConfigRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: optimizationCenterStartDataRow}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, ScenarioConfigAliases)
	if err != nil {
		return nil, nil, err
	}
	var rows []ScenarioConfigRow
	var errs []RowError
	for _, r := range raw {
		name := sheetio.CoerceString(r.Fields["name"])
		if name == "" {
			errs = append(errs, newRowError(r.RowNumber, "name", "required field is blank"))
			continue
		}
		row := ScenarioConfigRow{
			RowNumber:           r.RowNumber,
			Name:                name,
			PeriodKey:           sheetio.CoerceString(r.Fields["period_key"]),
			ObjectiveMode:       sheetio.CoerceString(r.Fields["objective_mode"]),
			ObjectiveWeightsRaw: sheetio.CoerceString(r.Fields["objective_weights"]),
			Notes:               sheetio.CoerceString(r.Fields["notes"]),
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["capacity_total_tokens"]); ok {
			iv := int64(v)
			row.CapacityTotalTokens = &iv
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}
