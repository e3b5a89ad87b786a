// Package suggest abstracts the LLM-backed math model suggestion capability
// (spec.md §2: "The concrete LLM provider (abstracted as a 'Suggestion'
// capability with typed requests/responses)"). The concrete model/provider
// and its credentials are explicitly out of this module's scope — only this
// interface is depended on, mirroring sheetio.Client's treatment of the
// spreadsheet transport.
package suggest

import "context"

// ModelRequest carries everything an LLM call needs to propose a math model
// for one initiative missing a formula.
type ModelRequest struct {
	InitiativeKey    string
	Title            string
	ProblemStatement string
	DesiredOutcome   string
	Hypothesis       string
	NorthStarKPIKey  string
	MaxLines         int
}

// ModelSuggestion is the LLM-owned projection written back by
// "pm.suggest_math_model_llm" — only these columns, never user-authored
// ones (spec.md §4.5 ProductOps/MathModels ownership rule: "never
// overwrites user columns with LLM suggestions").
type ModelSuggestion struct {
	ModelName       string
	TargetKPIKey    string
	MetricChainText string
	FormulaText     string
	AssumptionsText string
}

// Client is the abstract Suggestion capability.
type Client interface {
	// SuggestMathModel proposes a math model for one initiative. An error
	// is treated as a DependencyError by the caller (spec.md §7).
	SuggestMathModel(ctx context.Context, req ModelRequest) (ModelSuggestion, error)
}

// Limits bounds a single action run's LLM usage (spec.md §8: "LLM: per-
// handler cap (max_llm_calls) and per-row guards (skip rows with existing
// formula or insufficient context)").
type Limits struct {
	MaxCalls int
}

// Allow reports whether callsMade has not yet reached l's cap. A zero
// MaxCalls means unbounded.
func (l Limits) Allow(callsMade int) bool {
	if l.MaxCalls <= 0 {
		return true
	}
	return callsMade < l.MaxCalls
}
