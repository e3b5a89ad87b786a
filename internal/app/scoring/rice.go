package scoring

import (
	"context"
	"fmt"
	"strings"
)

// RICEEngine computes value = reach * impact * confidence, effort =
// max(effort, ε), overall = value / effort (spec.md §4.6).
type RICEEngine struct{}

func (RICEEngine) Compute(_ context.Context, inputs ScoreInputs) (ScoreResult, error) {
	reach, ok := inputs.Params["reach"]
	if !ok {
		return ScoreResult{}, fmt.Errorf("rice: missing required param %q", "reach")
	}
	impact, ok := inputs.Params["impact"]
	if !ok {
		return ScoreResult{}, fmt.Errorf("rice: missing required param %q", "impact")
	}

	var warnings []string
	confidence, ok := inputs.Params["confidence"]
	if !ok {
		confidence = confidenceFromRisk(inputs.RiskLevel)
		warnings = append(warnings, fmt.Sprintf("confidence missing, derived %.2f from risk level %q", confidence, inputs.RiskLevel))
	}

	effort, ok := inputs.Params["effort"]
	if !ok {
		return ScoreResult{}, fmt.Errorf("rice: missing required param %q", "effort")
	}
	if effort < epsilon {
		effort = epsilon
	}

	value := reach * impact * confidence
	return ScoreResult{
		ValueScore:   value,
		EffortScore:  effort,
		OverallScore: value / effort,
		RawInputsMap: map[string]float64{"reach": reach, "impact": impact, "confidence": confidence, "effort": effort},
		Warnings:     warnings,
	}, nil
}

// confidenceFromRisk derives a RICE confidence value from the initiative's
// risk level when no confidence param has been entered (spec.md §4.6:
// "low→0.9, medium→0.7, high→0.5, default 0.7").
func confidenceFromRisk(risk string) float64 {
	switch strings.ToLower(strings.TrimSpace(risk)) {
	case "low":
		return 0.9
	case "medium":
		return 0.7
	case "high":
		return 0.5
	default:
		return 0.7
	}
}
