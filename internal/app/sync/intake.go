package sync

import (
	"context"
	"strconv"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/readers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/writers"
)

// IntakeService implements the Intake Sync Service (spec.md §4.5): the
// owned fields are requester/context/impact-triple/effort/risk/deadline and
// the new/withdrawn status subset only — it never touches scores, KPI
// fields, or LLM-owned fields.
type IntakeService struct {
	Client  sheetio.Client
	Store   storage.InitiativeStore
	TabName string
}

// PreviewRows reads the Intake tab without touching the database.
func (s *IntakeService) PreviewRows(ctx context.Context, spreadsheetID string) ([]readers.IntakeRow, []readers.RowError, error) {
	return readers.ReadIntake(ctx, s.Client, spreadsheetID, s.TabName)
}

// SyncSheetToDB consolidates the Intake tab into the Initiative store: rows
// that already carry an initiative_key are matched and updated in place;
// brand-new rows are assigned the next initiative_key and that key is
// back-written into the sheet's key column in the same batch (spec.md §4.5:
// "on create, assigns the next initiative_key and enqueues a back-write of
// the key into the source row's key column").
func (s *IntakeService) SyncSheetToDB(ctx context.Context, spreadsheetID string, commitEvery int, scopeKeys []string) (Result, error) {
	var result Result
	rows, errs, err := readers.ReadIntake(ctx, s.Client, spreadsheetID, s.TabName)
	if err != nil {
		return result, err
	}
	rowErrorsToWarnings(&result, errs)

	scope := scopeSet(scopeKeys)
	batch := newCommitBatcher(commitEvery)

	var keyBackWrites []writers.Row
	var createdRows []readers.IntakeRow
	for _, row := range rows {
		if !inScope(scope, row.InitiativeKey) && row.InitiativeKey != "" {
			result.record(RowOutcome{RowNumber: row.RowNumber, Status: RowSkipped, Reason: "out of scope"})
			continue
		}

		in, err := s.resolve(ctx, spreadsheetID, row)
		if err != nil {
			result.record(RowOutcome{RowNumber: row.RowNumber, Key: row.InitiativeKey, Status: RowFailed, Reason: err.Error()})
			continue
		}
		isNew := in.InitiativeKey == ""

		s.applyIntakeFields(&in, row, spreadsheetID)

		if isNew {
			key, err := s.Store.NextInitiativeKey(ctx)
			if err != nil {
				result.record(RowOutcome{RowNumber: row.RowNumber, Status: RowFailed, Reason: err.Error()})
				continue
			}
			in.InitiativeKey = key
			in.Status = domain.StatusNew
			if _, err := s.Store.CreateInitiative(ctx, in); err != nil {
				result.record(RowOutcome{RowNumber: row.RowNumber, Key: key, Status: RowFailed, Reason: err.Error()})
				continue
			}
			keyBackWrites = append(keyBackWrites, writers.Row{"initiative_key": key})
			createdRows = append(createdRows, row)
		} else {
			if _, err := s.Store.UpdateInitiative(ctx, in); err != nil {
				result.record(RowOutcome{RowNumber: row.RowNumber, Key: in.InitiativeKey, Status: RowFailed, Reason: err.Error()})
				continue
			}
		}

		result.record(RowOutcome{RowNumber: row.RowNumber, Key: in.InitiativeKey, Status: RowUpserted})
		batch.tick()
	}

	if len(keyBackWrites) > 0 {
		// The key back-write is addressed by row number, not by key — the key
		// is exactly what's being assigned for the first time, so it can't
		// drive UpsertWriter's key-indexed addressing like every other sync
		// service's writes do.
		if err := s.backWriteKeys(ctx, spreadsheetID, createdRows, keyBackWrites); err != nil {
			result.warnf("key back-write failed: %v", err)
		}
	}

	return result, nil
}

// resolve finds the Initiative a row maps to: by initiative_key if present,
// otherwise by (source_sheet_id, tab_name, row_number) — a brand-new intake
// submission has neither yet, so resolve returns a zero-value Initiative
// identified only by its source coordinates.
func (s *IntakeService) resolve(ctx context.Context, spreadsheetID string, row readers.IntakeRow) (domain.Initiative, error) {
	if row.InitiativeKey != "" {
		return s.Store.GetInitiativeByKey(ctx, row.InitiativeKey)
	}

	existing, err := s.Store.ListInitiatives(ctx)
	if err != nil {
		return domain.Initiative{}, err
	}
	for _, in := range existing {
		if in.SourceSheetID == spreadsheetID && in.SourceTabName == s.TabName && in.SourceRowNumber == row.RowNumber {
			return in, nil
		}
	}
	return domain.Initiative{SourceSheetID: spreadsheetID, SourceTabName: s.TabName, SourceRowNumber: row.RowNumber}, nil
}

func (s *IntakeService) applyIntakeFields(in *domain.Initiative, row readers.IntakeRow, spreadsheetID string) {
	in.SourceSheetID = spreadsheetID
	in.SourceTabName = s.TabName
	in.SourceRowNumber = row.RowNumber

	in.Title = row.Title
	in.RequestingTeam = row.RequestingTeam
	in.RequesterName = row.RequesterName
	in.RequesterEmail = row.RequesterEmail
	in.Country = row.Country
	in.ProductArea = row.ProductArea
	in.ProblemStatement = row.ProblemStatement
	in.DesiredOutcome = row.DesiredOutcome
	in.Hypothesis = row.Hypothesis
	in.CustomerSegment = row.CustomerSegment
	in.InitiativeType = row.InitiativeType
	in.StrategicTheme = row.StrategicTheme
	in.Impact = domain.ImpactTriple{Low: row.ImpactLow, Expected: row.ImpactExpected, High: row.ImpactHigh}
	in.EffortTShirt = row.EffortTShirt
	in.EffortEngDays = row.EffortEngDays
	in.Risk = row.Risk
	in.IsMandatory = row.IsMandatory
	in.DependenciesText = row.DependenciesText
	in.UpdatedSource = "intake_sync"
	in.UpdatedAt = time.Now().UTC()

	if t, ok := parseDeadline(row.DeadlineRaw); ok {
		in.DeadlineDate = &t
	}
}

func parseDeadline(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// backWriteKeys writes the newly-assigned initiative_key for each created
// row back into the Intake tab's key column, addressed directly by row
// number (the row has no key to upsert-by yet).
func (s *IntakeService) backWriteKeys(ctx context.Context, spreadsheetID string, rows []readers.IntakeRow, created []writers.Row) error {
	// Column resolution reuses the same header aliases the reader used; a
	// dedicated small batch update keeps this independent of UpsertWriter's
	// key-indexed addressing, since the key column is what's being
	// populated for the first time.
	headerRows, err := s.Client.GetValues(ctx, spreadsheetID, sheetio.Range(s.TabName+"!1:1"))
	if err != nil || len(headerRows) == 0 {
		return err
	}
	headers := make([]string, len(headerRows[0]))
	for i, v := range headerRows[0] {
		headers[i] = sheetio.CoerceString(v)
	}
	colIndex, ok := sheetio.ResolveIndices(headers, readers.IntakeAliases)["initiative_key"]
	if !ok {
		return nil
	}

	var updates []sheetio.ValueRange
	for i, row := range created {
		if i >= len(rows) {
			break
		}
		updates = append(updates, sheetio.ValueRange{
			Range:  sheetio.Range(s.TabName + "!" + columnLetter(colIndex) + strconv.Itoa(rows[i].RowNumber)),
			Values: [][]any{{row["initiative_key"]}},
		})
	}
	if len(updates) == 0 {
		return nil
	}
	return s.Client.BatchUpdateValues(ctx, spreadsheetID, updates)
}

func columnLetter(index int) string {
	if index < 0 {
		return ""
	}
	var letters []byte
	n := index
	for {
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return string(letters)
}
