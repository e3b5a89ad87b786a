// Package scoring implements the Scoring Engines, the Scoring Service, and
// the KPI Contribution Adapter (spec.md §4.6-4.8): one engine per
// framework behind a common compute capability, a service that drives
// per-framework scoring and activation, and an adapter that folds an
// initiative's math models into the organization KPI registry.
package scoring

import "context"

// ScoreInputs is the framework-agnostic input every engine consumes.
// Params holds the approved, framework- (and for Math Model, model-)
// scoped parameter values keyed by param_name. RiskLevel and
// EffortEngineeringDays come from the initiative itself rather than a
// param row; FormulaText is populated only for the Math Model engine.
type ScoreInputs struct {
	Params                map[string]float64
	RiskLevel             string
	EffortEngineeringDays *float64
	FormulaText           string
}

// ScoreResult is the {value_score, effort_score, overall_score,
// raw_inputs_map, warnings[]} shape every engine returns (spec.md §4.6).
type ScoreResult struct {
	ValueScore   float64
	EffortScore  float64
	OverallScore float64
	RawInputsMap map[string]float64
	Warnings     []string
}

// Engine is the one capability every scoring framework implements.
type Engine interface {
	Compute(ctx context.Context, inputs ScoreInputs) (ScoreResult, error)
}

// epsilon is the floor effort divides by zero guards against (spec.md
// §4.6: "effort = max(effort_engineering_days, ε)").
const epsilon = 0.0001
