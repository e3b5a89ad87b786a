package scoring

import (
	"context"
	"fmt"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/formula"
)

// MathModelEngine evaluates a single InitiativeMathModel's formula_text
// against its approved param env via the Safe Formula Evaluator (spec.md
// §4.1, §4.6): value = env["value"]; effort = effort_engineering_days (the
// initiative's own estimate, not a per-model param); overall = value /
// effort.
type MathModelEngine struct{}

func (MathModelEngine) Compute(ctx context.Context, inputs ScoreInputs) (ScoreResult, error) {
	if inputs.FormulaText == "" {
		return ScoreResult{}, fmt.Errorf("math_model: formula_text is empty")
	}

	env, err := formula.EvaluateScript(ctx, inputs.FormulaText, inputs.Params, 0)
	if err != nil {
		return ScoreResult{}, err
	}
	value := env["value"]

	effort := epsilon
	if inputs.EffortEngineeringDays != nil && *inputs.EffortEngineeringDays > epsilon {
		effort = *inputs.EffortEngineeringDays
	}

	return ScoreResult{
		ValueScore:   value,
		EffortScore:  effort,
		OverallScore: value / effort,
		RawInputsMap: env,
	}, nil
}
