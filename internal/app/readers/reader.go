// Package readers implements the tab-shaped readers of spec.md §4.3: one
// reader per tab shape, each built on sheetio.ReadRectangle and returning
// typed row records plus any row-level parse errors. A bad row never aborts
// a tab read: a row whose required field is blank is collected as a
// RowError against its row number and left out of the returned rows, and an
// optional numeric cell that does not parse is left nil without a RowError.
// This mirrors the teacher's pattern of accumulating per-item errors instead
// of failing a whole batch on one bad record (internal/app/services in the
// teacher repo).
package readers

import "fmt"

// RowError is one row-level parse problem found while reading a tab.
type RowError struct {
	RowNumber int
	Field     string
	Message   string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.RowNumber, e.Field, e.Message)
}

func newRowError(rowNumber int, field, message string) RowError {
	return RowError{RowNumber: rowNumber, Field: field, Message: message}
}
