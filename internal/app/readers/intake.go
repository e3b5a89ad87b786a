package readers

import (
	"context"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
)

// IntakeRow is one parsed data row of the Intake tab (spec.md §3 Initiative
// intake fields, §4.5 Intake Sync).
type IntakeRow struct {
	RowNumber int

	// InitiativeKey is usually blank on first submission — it is assigned
	// by the Intake Sync Service and back-written into this column (spec.md
	// §4.5 Ownership rules: Intake). A non-blank value here means the row
	// has already been consolidated at least once.
	InitiativeKey string

	Title            string
	RequestingTeam   string
	RequesterName    string
	RequesterEmail   string
	Country          string
	ProductArea      string
	ProblemStatement string
	DesiredOutcome   string
	Hypothesis       string
	CustomerSegment  string
	InitiativeType   string
	StrategicTheme   string
	DeadlineRaw      string
	ImpactLow        *float64
	ImpactExpected   *float64
	ImpactHigh       *float64
	EffortTShirt     string
	EffortEngDays    *float64
	Risk             string
	IsMandatory      bool
	DependenciesText string
}

// IntakeAliases declares every header variant the Intake tab may use for
// each canonical field.
var IntakeAliases = sheetio.AliasMap{
	"initiative_key":    {"id", "initiative_id", "key"},
	"title":             {"initiative_title", "name"},
	"requesting_team":   {"team"},
	"requester_name":    {"requester", "submitted_by"},
	"requester_email":   {"email"},
	"country":           nil,
	"product_area":      {"area"},
	"problem_statement": {"problem"},
	"desired_outcome":   {"outcome"},
	"hypothesis":        nil,
	"customer_segment":  {"segment"},
	"initiative_type":   {"type"},
	"strategic_theme":   {"theme"},
	"deadline_date":     {"deadline", "due_date"},
	"impact_low":        {"impact_low_estimate"},
	"impact_expected":   {"impact_expected_estimate", "impact_mid"},
	"impact_high":       {"impact_high_estimate"},
	"effort_tshirt":     {"effort_size", "t_shirt_size"},
	"effort_eng_days":   {"effort_days", "engineering_days"},
	"risk":              nil,
	"is_mandatory":      {"mandatory"},
	"dependencies_text": {"dependencies"},
}

// ReadIntake reads the Intake tab (header row 1, data from row 2) and
// returns one IntakeRow per data row that has a title, plus one RowError
// (field "title") for each data row whose title is blank.
func ReadIntake(ctx context.Context, client sheetio.Client, spreadsheetID, tabName string) ([]IntakeRow, []RowError, error) {
	spec := sheetio.ReadSpec{SpreadsheetID: spreadsheetID, TabName: tabName, HeaderRow: 1, StartDataRow: 2}
	raw, err := sheetio.ReadRectangle(ctx, client, spec, IntakeAliases)
	if err != nil {
		return nil, nil, err
	}

	var rows []IntakeRow
	var errs []RowError
	for _, r := range raw {
		row := IntakeRow{RowNumber: r.RowNumber}
		row.InitiativeKey = sheetio.CoerceString(r.Fields["initiative_key"])
		row.Title = sheetio.CoerceString(r.Fields["title"])
		row.RequestingTeam = sheetio.CoerceString(r.Fields["requesting_team"])
		row.RequesterName = sheetio.CoerceString(r.Fields["requester_name"])
		row.RequesterEmail = sheetio.CoerceString(r.Fields["requester_email"])
		row.Country = sheetio.CoerceString(r.Fields["country"])
		row.ProductArea = sheetio.CoerceString(r.Fields["product_area"])
		row.ProblemStatement = sheetio.CoerceString(r.Fields["problem_statement"])
		row.DesiredOutcome = sheetio.CoerceString(r.Fields["desired_outcome"])
		row.Hypothesis = sheetio.CoerceString(r.Fields["hypothesis"])
		row.CustomerSegment = sheetio.CoerceString(r.Fields["customer_segment"])
		row.InitiativeType = sheetio.CoerceString(r.Fields["initiative_type"])
		row.StrategicTheme = sheetio.CoerceString(r.Fields["strategic_theme"])
		row.DeadlineRaw = sheetio.CoerceString(r.Fields["deadline_date"])
		row.EffortTShirt = sheetio.CoerceString(r.Fields["effort_tshirt"])
		row.Risk = sheetio.CoerceString(r.Fields["risk"])
		row.IsMandatory = sheetio.CoerceBool(r.Fields["is_mandatory"])
		row.DependenciesText = sheetio.CoerceString(r.Fields["dependencies_text"])

		if v, ok := sheetio.CoerceFloat(r.Fields["impact_low"]); ok {
			row.ImpactLow = &v
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["impact_expected"]); ok {
			row.ImpactExpected = &v
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["impact_high"]); ok {
			row.ImpactHigh = &v
		}
		if v, ok := sheetio.CoerceFloat(r.Fields["effort_eng_days"]); ok {
			row.EffortEngDays = &v
		}

		if row.Title == "" {
			errs = append(errs, newRowError(r.RowNumber, "title", "required field is blank"))
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}
