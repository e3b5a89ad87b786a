package scoring

import (
	"context"
	"fmt"
)

// WSJFEngine computes value = business_value + time_criticality +
// risk_reduction, effort = job_size, overall = value / effort (spec.md
// §4.6).
type WSJFEngine struct{}

func (WSJFEngine) Compute(_ context.Context, inputs ScoreInputs) (ScoreResult, error) {
	businessValue, ok := inputs.Params["business_value"]
	if !ok {
		return ScoreResult{}, fmt.Errorf("wsjf: missing required param %q", "business_value")
	}
	timeCriticality, ok := inputs.Params["time_criticality"]
	if !ok {
		return ScoreResult{}, fmt.Errorf("wsjf: missing required param %q", "time_criticality")
	}
	riskReduction, ok := inputs.Params["risk_reduction"]
	if !ok {
		return ScoreResult{}, fmt.Errorf("wsjf: missing required param %q", "risk_reduction")
	}
	jobSize, ok := inputs.Params["job_size"]
	if !ok {
		return ScoreResult{}, fmt.Errorf("wsjf: missing required param %q", "job_size")
	}
	if jobSize < epsilon {
		jobSize = epsilon
	}

	value := businessValue + timeCriticality + riskReduction
	return ScoreResult{
		ValueScore:   value,
		EffortScore:  jobSize,
		OverallScore: value / jobSize,
		RawInputsMap: map[string]float64{
			"business_value":   businessValue,
			"time_criticality": timeCriticality,
			"risk_reduction":   riskReduction,
			"job_size":         jobSize,
		},
	}, nil
}
