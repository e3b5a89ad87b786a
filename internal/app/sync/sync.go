// Package sync implements the Sync Services of spec.md §4.5: one service
// per tab, each following the same shape — reader → per-row validation →
// repository upsert → accumulator of counts → optional commit batching.
// Every service exposes preview_rows (read-only, no DB) and
// sync_sheet_to_db (commits, honoring an optional scope and commit_every
// batch size), grounded on the teacher's per-service CRUD pattern
// generalized from single-row persistence to batch sheet ingestion.
package sync

import (
	"fmt"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/readers"
)

// RowStatus is the per-row outcome of a sync_sheet_to_db run.
type RowStatus string

const (
	RowUpserted RowStatus = "upserted"
	RowSkipped  RowStatus = "skipped"
	RowUnlocked RowStatus = "unlocked"
	RowFailed   RowStatus = "failed"
)

// RowOutcome is one row's result, collected rather than raised — a single
// bad row never aborts a whole sync (SPEC_FULL.md §10 ambient error
// handling: "a per-row collecting-result pattern ... rather than panics").
type RowOutcome struct {
	RowNumber int
	Key       string
	Status    RowStatus
	Reason    string
}

// Result is what sync_sheet_to_db returns (spec.md §4.5).
type Result struct {
	Upserts  int
	Skipped  int
	Unlocked int
	Failures int
	Rows     []RowOutcome
	Warnings []string
}

func (r *Result) record(o RowOutcome) {
	r.Rows = append(r.Rows, o)
	switch o.Status {
	case RowUpserted:
		r.Upserts++
	case RowSkipped:
		r.Skipped++
	case RowUnlocked:
		r.Unlocked++
	case RowFailed:
		r.Failures++
	}
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// scopeSet builds a lookup set from an optional scope_keys filter; a nil or
// empty scope means "no restriction, every row is in scope".
func scopeSet(scopeKeys []string) map[string]bool {
	if len(scopeKeys) == 0 {
		return nil
	}
	set := make(map[string]bool, len(scopeKeys))
	for _, k := range scopeKeys {
		set[k] = true
	}
	return set
}

func inScope(scope map[string]bool, key string) bool {
	if scope == nil {
		return true
	}
	return scope[key]
}

// rowErrorsToWarnings turns readers.RowError slices into Result warnings so
// malformed rows still surface in preview_rows/sync_sheet_to_db without
// becoming Go errors.
func rowErrorsToWarnings(result *Result, errs []readers.RowError) {
	for _, e := range errs {
		result.warnf("%s", e.Error())
	}
}

// commitBatcher tracks how many upserts have happened since the last
// "commit point" and reports when a commitEvery threshold is crossed,
// mirroring the teacher's compute_for_initiatives(keys, commit_every)-style
// batch drivers (spec.md §4.7) generalized to every sync service.
type commitBatcher struct {
	commitEvery int
	sinceCommit int
}

func newCommitBatcher(commitEvery int) *commitBatcher {
	return &commitBatcher{commitEvery: commitEvery}
}

// tick records one upsert and reports whether a commit boundary was just
// crossed. With commitEvery <= 0 every upsert commits immediately (the
// repository layer commits per-statement regardless; this only governs how
// callers might batch surrounding work, e.g. periodic status writes).
func (b *commitBatcher) tick() bool {
	if b.commitEvery <= 0 {
		return true
	}
	b.sinceCommit++
	if b.sinceCommit >= b.commitEvery {
		b.sinceCommit = 0
		return true
	}
	return false
}
