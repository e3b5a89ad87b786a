package sheetio

import "context"

// Range is an A1-style range reference, e.g. "Sheet1!A2:D50".
type Range string

// ValueRange pairs a Range with the rectangle of values read from or to be
// written to it. Rows are slices of scalar-ish values (string, float64,
// bool, nil).
type ValueRange struct {
	Range  Range
	Values [][]any
}

// Client is the abstract Sheet I/O capability (spec.md §2, §4.3, §4.4):
// grid get/update/append/batch-update/protection operations. The concrete
// spreadsheet API transport and credential acquisition are explicitly out
// of this module's scope (spec.md §1) — only this interface is depended
// on.
type Client interface {
	// GetValues reads one rectangle of cell values.
	GetValues(ctx context.Context, spreadsheetID string, rng Range) ([][]any, error)

	// BatchGetValues reads several rectangles in one round trip.
	BatchGetValues(ctx context.Context, spreadsheetID string, ranges []Range) ([]ValueRange, error)

	// UpdateValues overwrites one rectangle of cell values.
	UpdateValues(ctx context.Context, spreadsheetID string, rng Range, values [][]any) error

	// BatchUpdateValues overwrites several rectangles in one round trip.
	// Implementations must chunk internally if the underlying transport
	// caps ranges-per-call (spec.md §4.4.1: "chunk to <=200 ranges per
	// batch request").
	BatchUpdateValues(ctx context.Context, spreadsheetID string, updates []ValueRange) error

	// AppendValues appends rows after the last non-empty row of rng's
	// sheet/tab, returning the first appended row number (1-based).
	AppendValues(ctx context.Context, spreadsheetID string, rng Range, values [][]any) (firstAppendedRow int, err error)

	// ProtectColumns applies a warning-only protection (a human must
	// confirm before editing) to the given column range on a tab
	// (spec.md §4.4: "Protected-column writes apply warning-only
	// protections to system-owned columns").
	ProtectColumns(ctx context.Context, spreadsheetID, tabName string, startCol, endCol int, description string) error
}

// MaxRangesPerBatch bounds the number of ranges any single
// BatchUpdateValues call may submit to the underlying transport
// (spec.md §4.4.1, §5).
const MaxRangesPerBatch = 200

// ChunkValueRanges splits updates into groups of at most MaxRangesPerBatch
// entries, preserving order, so callers of a Client implementation can
// inspect/replay the batching plan in tests (spec.md §9: "The batching
// module must allow inspection in tests (plans are serializable)").
func ChunkValueRanges(updates []ValueRange) [][]ValueRange {
	if len(updates) == 0 {
		return nil
	}
	var chunks [][]ValueRange
	for i := 0; i < len(updates); i += MaxRangesPerBatch {
		end := i + MaxRangesPerBatch
		if end > len(updates) {
			end = len(updates)
		}
		chunks = append(chunks, updates[i:end])
	}
	return chunks
}
