package readers

import (
	"context"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
)

// ScoringInputsRow is one row of the ProductOps/Scoring_Inputs tab: the
// framework-selection and per-initiative scoring toggles a PM manages
// directly (spec.md §4.6 Scoring Service; §3 Initiative scoring state).
type ScoringInputsRow struct {
	RowNumber              int
	InitiativeKey          string
	ActiveScoringFramework string
}

var ScoringInputsAliases = sheetio.AliasMap{
	"initiative_key":           {"id", "initiative_id"},
	"active_scoring_framework": {"framework", "active_framework"},
}

func ReadScoringInputs(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]ScoringInputsRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: 2}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, ScoringInputsAliases)
	if err != nil {
		return nil, nil, err
	}
	var rows []ScoringInputsRow
	var errs []RowError
	for _, r := range raw {
		key := sheetio.CoerceString(r.Fields["initiative_key"])
		if key == "" {
			errs = append(errs, newRowError(r.RowNumber, "initiative_key", "required field is blank"))
			continue
		}
		rows = append(rows, ScoringInputsRow{
			RowNumber:              r.RowNumber,
			InitiativeKey:          key,
			ActiveScoringFramework: sheetio.CoerceString(r.Fields["active_scoring_framework"]),
		})
	}
	return rows, errs, nil
}

// MathModelRow is one row of the ProductOps/MathModels tab (spec.md §3
// InitiativeMathModel, §4.1 Formula Evaluator consumer).
type MathModelRow struct {
	RowNumber       int
	InitiativeKey   string
	ModelName       string
	TargetKPIKey    string
	MetricChainText string
	FormulaText     string
	AssumptionsText string
	IsPrimary       bool
	ApprovedByUser  bool
	SuggestedByLLM  bool
}

var MathModelAliases = sheetio.AliasMap{
	"initiative_key":    {"id", "initiative_id"},
	"model_name":        {"name"},
	"target_kpi_key":    {"target_kpi", "kpi_key"},
	"metric_chain_text": {"metric_chain"},
	"formula_text":      {"formula"},
	"assumptions_text":  {"assumptions"},
	"is_primary":        {"primary"},
	"approved_by_user":  {"approved"},
	"suggested_by_llm":  {"llm_suggested", "ai_suggested"},
}

func ReadMathModels(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]MathModelRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: 2}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, MathModelAliases)
	if err != nil {
		return nil, nil, err
	}
	var rows []MathModelRow
	var errs []RowError
	for _, r := range raw {
		key := sheetio.CoerceString(r.Fields["initiative_key"])
		name := sheetio.CoerceString(r.Fields["model_name"])
		if key == "" || name == "" {
			errs = append(errs, newRowError(r.RowNumber, "initiative_key/model_name", "required field is blank"))
			continue
		}
		rows = append(rows, MathModelRow{
			RowNumber:       r.RowNumber,
			InitiativeKey:   key,
			ModelName:       name,
			TargetKPIKey:    sheetio.CoerceString(r.Fields["target_kpi_key"]),
			MetricChainText: sheetio.CoerceString(r.Fields["metric_chain_text"]),
			FormulaText:     sheetio.CoerceString(r.Fields["formula_text"]),
			AssumptionsText: sheetio.CoerceString(r.Fields["assumptions_text"]),
			IsPrimary:       sheetio.CoerceBool(r.Fields["is_primary"]),
			ApprovedByUser:  sheetio.CoerceBool(r.Fields["approved_by_user"]),
			SuggestedByLLM:  sheetio.CoerceBool(r.Fields["suggested_by_llm"]),
		})
	}
	return rows, errs, nil
}

// ParamRow is one row of the ProductOps/Params tab (spec.md §3
// InitiativeParam).
type ParamRow struct {
	RowNumber     int
	InitiativeKey string
	Framework     string
	ParamName     string
	ModelName     string
	Value         *float64
	ParamDisplay  string
	Description   string
	Unit          string
	Min           *float64
	Max           *float64
	Source        string
	Approved      bool
	IsAutoSeeded  bool
	Notes         string
}

var ParamAliases = sheetio.AliasMap{
	"initiative_key": {"id", "initiative_id"},
	"framework":      nil,
	"param_name":     {"name", "param"},
	"model_name":     nil,
	"value":          nil,
	"param_display":  {"display_name"},
	"description":    nil,
	"unit":           nil,
	"min":            {"min_value"},
	"max":            {"max_value"},
	"source":         nil,
	"approved":       nil,
	"is_auto_seeded": {"auto_seeded"},
	"notes":          nil,
}

func ReadParams(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]ParamRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: 2}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, ParamAliases)
	if err != nil {
		return nil, nil, err
	}
	var rows []ParamRow
	var errs []RowError
	for _, r := range raw {
		key := sheetio.CoerceString(r.Fields["initiative_key"])
		framework := sheetio.CoerceString(r.Fields["framework"])
		paramName := sheetio.CoerceString(r.Fields["param_name"])
		if key == "" || framework == "" || paramName == "" {
			errs = append(errs, newRowError(r.RowNumber, "initiative_key/framework/param_name", "required field is blank"))
			continue
		}
		row := ParamRow{
			RowNumber:     r.RowNumber,
			InitiativeKey: key,
			Framework:     framework,
			ParamName:     paramName,
			ModelName:     sheetio.CoerceString(r.Fields["model_name"]),
			ParamDisplay:  sheetio.CoerceString(r.Fields["param_display"]),
			Description:   sheetio.CoerceString(r.Fields["description"]),
			Unit:          sheetio.CoerceString(r.Fields["unit"]),
			Source:        sheetio.CoerceString(r.Fields["source"]),
			Approved:      sheetio.CoerceBool(r.Fields["approved"]),
			IsAutoSeeded:  sheetio.CoerceBool(r.Fields["is_auto_seeded"]),
			Notes:         sheetio.CoerceString(r.Fields["notes"]),
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["value"]); ok {
			row.Value = &v
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["min"]); ok {
			row.Min = &v
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["max"]); ok {
			row.Max = &v
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

// MetricsConfigRow is one row of the ProductOps/Metrics_Config tab (spec.md
// §3 OrganizationMetricConfig).
type MetricsConfigRow struct {
	RowNumber   int
	KPIKey      string
	KPIName     string
	KPILevel    string
	Unit        string
	Description string
	IsActive    bool
}

var MetricsConfigAliases = sheetio.AliasMap{
	"kpi_key":     {"key"},
	"kpi_name":    {"name"},
	"kpi_level":   {"level"},
	"unit":        nil,
	"description": nil,
	"is_active":   {"active"},
}

func ReadMetricsConfig(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]MetricsConfigRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: 2}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, MetricsConfigAliases)
	if err != nil {
		return nil, nil, err
	}
	var rows []MetricsConfigRow
	var errs []RowError
	for _, r := range raw {
		key := sheetio.CoerceString(r.Fields["kpi_key"])
		if key == "" {
			errs = append(errs, newRowError(r.RowNumber, "kpi_key", "required field is blank"))
			continue
		}
		rows = append(rows, MetricsConfigRow{
			RowNumber:   r.RowNumber,
			KPIKey:      key,
			KPIName:     sheetio.CoerceString(r.Fields["kpi_name"]),
			KPILevel:    sheetio.CoerceString(r.Fields["kpi_level"]),
			Unit:        sheetio.CoerceString(r.Fields["unit"]),
			Description: sheetio.CoerceString(r.Fields["description"]),
			IsActive:    sheetio.CoerceBool(r.Fields["is_active"]),
		})
	}
	return rows, errs, nil
}

// KPIContributionRow is one row of the ProductOps/KPI_Contributions tab —
// the PM-override surface for an initiative's KPI contribution map
// (spec.md §4.8 KPI Contribution Adapter).
type KPIContributionRow struct {
	RowNumber       int
	InitiativeKey   string
	ContributionRaw string
	IsPMOverride    bool
}

var KPIContributionAliases = sheetio.AliasMap{
	"initiative_key": {"id", "initiative_id"},
	"contribution":   {"kpi_contribution_json", "contribution_json"},
	"is_pm_override": {"pm_override"},
}

func ReadKPIContributions(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]KPIContributionRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: 2}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, KPIContributionAliases)
	if err != nil {
		return nil, nil, err
	}
	var rows []KPIContributionRow
	var errs []RowError
	for _, r := range raw {
		key := sheetio.CoerceString(r.Fields["initiative_key"])
		if key == "" {
			errs = append(errs, newRowError(r.RowNumber, "initiative_key", "required field is blank"))
			continue
		}
		rows = append(rows, KPIContributionRow{
			RowNumber:       r.RowNumber,
			InitiativeKey:   key,
			ContributionRaw: sheetio.CoerceString(r.Fields["contribution"]),
			IsPMOverride:    sheetio.CoerceBool(r.Fields["is_pm_override"]),
		})
	}
	return rows, errs, nil
}
