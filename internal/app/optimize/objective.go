package optimize

import (
	"sort"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
)

// LexTier is one priority tier of a lexicographic objective: a single KPI,
// with candidates' contributions to that KPI scaled the same way a
// north_star objective would scale them.
type LexTier struct {
	KPIKey string
	Coeffs map[string]float64
}

// lexFreezeTolerance is the Open Question resolution for lexicographic
// objective freezing (spec.md §13 Open Question 1): fixed at an absolute
// tolerance of 1 unit on the KPI_SCALE-scaled objective (equivalent to
// 1e-6 on the unscaled value). Once tier k is solved, tier k+1's search is
// constrained to scaled_objective_k >= best_scaled_objective_k -
// lexFreezeTolerance, so a later, lower-priority tier cannot trade away an
// earlier tier's optimum for a fractional, floating-point-noise gain.
const lexFreezeTolerance = 1.0

// resolveLexicographicTiers orders the configured KPIs by descending
// weight (ties broken by kpi_key ascending, for determinism) and resolves
// each into its own single-KPI coefficient map, scaled by KPI_SCALE exactly
// as the north_star objective is. The tiers are solved in order by
// lexicographicSolve, each freezing its result before the next tier runs.
func resolveLexicographicTiers(problem *Problem, weights map[string]float64, source CandidateSource) {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if weights[keys[i]] != weights[keys[j]] {
			return weights[keys[i]] > weights[keys[j]]
		}
		return keys[i] < keys[j]
	})

	tiers := make([]LexTier, 0, len(keys))
	for _, kpi := range keys {
		coeffs := make(map[string]float64, len(problem.Candidates))
		for _, c := range problem.Candidates {
			coeffs[c.InitiativeKey] = c.KPIContributions[kpi] * domain.KPIScale
		}
		tiers = append(tiers, LexTier{KPIKey: kpi, Coeffs: coeffs})
	}

	problem.LexicographicTiers = tiers
	problem.Diagnostics["lexicographic_tier_order"] = keys
}
