package sheetio

import "context"

// DefaultBlankRunCutoff is the default number of consecutive fully-blank
// rows that cause a reader to stop scanning (spec.md §4.3).
const DefaultBlankRunCutoff = 50

// ReadSpec parameterizes a tab read (spec.md §4.3 common contract).
type ReadSpec struct {
	SpreadsheetID  string
	TabName        string
	HeaderRow      int // 1-based
	StartDataRow   int // 1-based; 2 for most tabs, 4 for Optimization Center tabs
	MaxRows        int // soft limit, 0 = unbounded
	BlankRunCutoff int // 0 = DefaultBlankRunCutoff
}

func (s ReadSpec) cutoff() int {
	if s.BlankRunCutoff > 0 {
		return s.BlankRunCutoff
	}
	return DefaultBlankRunCutoff
}

// RawRow is one data row as read from the sheet: its 1-based row number
// and canonical-field-keyed values.
type RawRow struct {
	RowNumber int
	Fields    map[string]any
}

// allBlank reports whether every cell of a row is blank.
func allBlank(row []any) bool {
	for _, v := range row {
		if !IsBlank(v) {
			return false
		}
	}
	return true
}

// ReadRectangle reads the header row plus the data rectangle beneath it
// (starting at spec.StartDataRow), normalizes headers, resolves each
// column against aliases, and returns one RawRow per non-blank data row —
// skipping individual blank rows but stopping the scan once it has seen
// spec.cutoff() consecutive blank rows in a row, to avoid reading a whole
// empty tail region (spec.md §4.3, §5).
func ReadRectangle(ctx context.Context, client Client, spec ReadSpec, aliases AliasMap) ([]RawRow, error) {
	headerRange := Range(spec.TabName + "!" + rowRangeA1(spec.HeaderRow, spec.HeaderRow))
	headerRows, err := client.GetValues(ctx, spec.SpreadsheetID, headerRange)
	if err != nil {
		return nil, err
	}
	if len(headerRows) == 0 {
		return nil, nil
	}
	headers := make([]string, len(headerRows[0]))
	for i, v := range headerRows[0] {
		headers[i] = CoerceString(v)
	}
	indices := ResolveIndices(headers, aliases)

	endRow := spec.StartDataRow + 100000
	dataRange := Range(spec.TabName + "!" + rowRangeA1(spec.StartDataRow, endRow))
	dataRows, err := client.GetValues(ctx, spec.SpreadsheetID, dataRange)
	if err != nil {
		return nil, err
	}

	var out []RawRow
	blankRun := 0
	for i, row := range dataRows {
		rowNumber := spec.StartDataRow + i
		if allBlank(row) {
			blankRun++
			if blankRun >= spec.cutoff() {
				break
			}
			continue
		}
		blankRun = 0

		fields := make(map[string]any, len(indices))
		for canonical, idx := range indices {
			if idx < len(row) {
				fields[canonical] = row[idx]
			}
		}
		out = append(out, RawRow{RowNumber: rowNumber, Fields: fields})
		if spec.MaxRows > 0 && len(out) >= spec.MaxRows {
			break
		}
	}
	return out, nil
}

// rowRangeA1 builds a whole-row A1 range like "2:103" for rows [from, to].
func rowRangeA1(from, to int) string {
	return itoa(from) + ":" + itoa(to)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
