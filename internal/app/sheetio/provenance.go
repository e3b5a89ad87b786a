package sheetio

import "time"

// Provenance is the two-column audit contract every writer stamps on every
// touched row (spec.md §4.2 Provenance Stamper): a short token identifying
// the writer, and the UTC timestamp of the write.
type Provenance struct {
	Source string
	At     time.Time
}

// Stamp returns the provenance pair for a write happening now, under the
// given source token (e.g. "flow1.intake_sync").
func Stamp(source string) Provenance {
	return Provenance{Source: source, At: time.Now().UTC()}
}

// ISO8601UTC formats a timestamp the way every writer persists it to a
// sheet cell.
func (p Provenance) ISO8601UTC() string {
	return p.At.Format(time.RFC3339)
}

// Provenance tokens (spec.md §6.4).
const (
	SourceIntakeSync            = "flow1.intake_sync"
	SourceBacklogSheetWrite     = "flow1.backlog_sheet_write"
	SourceBacklogUpdate         = "flow1.backlog_update"
	SourceComputeAllFrameworks  = "flow3.compute_all_frameworks"
	SourceProductOpsReadInputs  = "flow3.productopssheet_read_inputs"
	SourceProductOpsWriteScores = "flow3.productopssheet_write_scores"
	SourceProductOpsWriteKPIs   = "flow3.productopssheet_write_kpi_contributions"
	SourceScoringActivate       = "flow2.activate"
)

// PMJobSource returns the provenance token for a PM-triggered action
// (spec.md §6.4: "PM jobs: pm.<job> corresponding token").
func PMJobSource(action string) string { return "pm." + action }
