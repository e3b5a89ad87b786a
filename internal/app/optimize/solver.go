package optimize

import (
	"context"
	"fmt"
	"math/bits"
	"sort"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
)

// maxExhaustiveCandidates bounds the reference solver's exhaustive search.
// Beyond this candidate count it falls back to a deterministic greedy
// heuristic, since 2^n subsets stop being practical well before n=64.
const maxExhaustiveCandidates = 20

// SelectedItem is one candidate's solved disposition.
type SelectedItem struct {
	InitiativeKey   string
	Selected        bool
	AllocatedTokens int64
}

// Solution is the Solver Adapter Contract's output (spec.md §4.12).
type Solution struct {
	Status         string // optimal | feasible | infeasible | error
	SelectedItems  []SelectedItem
	TotalObjective float64
	Diagnostics    map[string]any
}

// Solver is the contract a portfolio solver must satisfy (spec.md §4.12),
// letting the Optimization Job swap in a different backend without
// touching the Problem Builder or Feasibility Checker.
type Solver interface {
	Solve(ctx context.Context, problem Problem) (Solution, error)
}

// ReferenceSolver is a dependency-free reference implementation of the
// binary-selection portfolio problem: maximize sum(objective_i * x_i)
// subject to capacity/per-slice-cap/per-slice-floor/mandatory/exclusion/
// bundle/prerequisite/synergy-bonus/target-floor constraints, x_i in {0,1}.
// No MILP/LP solver library exists anywhere in the retrieved example
// corpus's dependency set (see DESIGN.md); for candidate counts within
// maxExhaustiveCandidates it searches every subset exhaustively, which is
// exact and trivially deterministic. Beyond the cap it falls back to a
// deterministic greedy-by-score heuristic and records that fallback in
// Diagnostics so callers can distinguish a proven-optimal run from one.
type ReferenceSolver struct{}

func (ReferenceSolver) Solve(ctx context.Context, problem Problem) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}

	n := len(problem.Candidates)
	if n == 0 {
		return Solution{Status: "optimal", Diagnostics: map[string]any{}}, nil
	}

	if problem.ObjectiveMode == domain.ObjectiveLexicographic {
		return lexicographicSolve(problem), nil
	}

	if n > maxExhaustiveCandidates {
		return greedySolve(problem), nil
	}
	return exhaustiveSolve(problem), nil
}

// alwaysFeasible is the no-op extra predicate used by single-stage solves.
func alwaysFeasible(uint64) bool { return true }

// exhaustiveSolve enumerates every subset of problem.Candidates (candidates
// are pre-sorted by InitiativeKey in the Problem Builder) and keeps the
// best feasible one. Among tied-objective optima it prefers the selection
// that includes the earliest-sorted candidate at the first point the two
// tied selections disagree (spec.md §8 worked example S6's tie-break rule:
// "select the candidate whose initiative_key sorts lexicographically
// smaller"). A candidate's sorted position is its bit index in the mask, so
// this is a bit-by-bit comparison starting from bit 0 — the opposite of
// plain integer magnitude, which weighs the highest bit index most.
func exhaustiveSolve(problem Problem) Solution {
	return exhaustiveSolveFor(problem, problem.ObjectiveCoeffs, alwaysFeasible, "exhaustive")
}

// preferOnTie reports whether mask should replace bestMask when their
// objectives are tied: at the lowest bit position where they differ, the
// mask that has that bit set (includes the earlier-sorted candidate) wins.
func preferOnTie(mask, bestMask uint64) bool {
	diff := mask ^ bestMask
	if diff == 0 {
		return false
	}
	lowestDiffBit := diff & (-diff)
	return mask&lowestDiffBit != 0
}

// exhaustiveSolveFor is the coefficient- and extra-constraint-parameterized
// core of exhaustiveSolve, reused by lexicographicSolve to search each tier
// under the previous tiers' frozen-objective constraints.
func exhaustiveSolveFor(problem Problem, coeffs map[string]float64, extra func(uint64) bool, method string) Solution {
	n := len(problem.Candidates)
	var bestMask uint64
	bestObjective := 0.0
	found := false

	for mask := uint64(0); mask < uint64(1)<<uint(n); mask++ {
		if !satisfiesConstraints(problem, mask) || !extra(mask) {
			continue
		}
		objective := maskObjectiveFor(problem, mask, coeffs)
		if !found || objective > bestObjective+epsilon || (withinEpsilon(objective, bestObjective) && preferOnTie(mask, bestMask)) {
			bestMask = mask
			bestObjective = objective
			found = true
		}
	}

	if !found {
		return Solution{
			Status:      "infeasible",
			Diagnostics: map[string]any{"candidates": n, "method": method},
		}
	}

	return Solution{
		Status:         "optimal",
		SelectedItems:  itemsFromMask(problem, bestMask),
		TotalObjective: bestObjective,
		Diagnostics:    map[string]any{"candidates": n, "method": method},
	}
}

const epsilon = 1e-9

func withinEpsilon(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= epsilon
}

func maskObjective(problem Problem, mask uint64) float64 {
	return maskObjectiveFor(problem, mask, problem.ObjectiveCoeffs)
}

func maskObjectiveFor(problem Problem, mask uint64, coeffs map[string]float64) float64 {
	total := 0.0
	for i, c := range problem.Candidates {
		if mask&(1<<uint(i)) != 0 {
			total += coeffs[c.InitiativeKey]
		}
	}
	for _, syn := range problem.ConstraintSet.SynergyBonuses {
		if allSelectedByKey(problem, mask, syn.Members) {
			total += syn.Bonus
		}
	}
	return total
}

// lexicographicSolve implements the staged freeze-and-reoptimize loop
// (spec.md §4.11, Open Question resolution in objective.go): solve tier 1
// alone, freeze its objective within lexFreezeTolerance, solve tier 2 under
// that frozen floor, and so on. The final tier's solution is returned, with
// diagnostics recording every tier's resolved objective so a caller can see
// the whole staged trail. Falls back to the greedy heuristic per tier when
// the candidate pool exceeds maxExhaustiveCandidates.
func lexicographicSolve(problem Problem) Solution {
	tiers := problem.LexicographicTiers
	if len(tiers) == 0 {
		return Solution{Status: "infeasible", Diagnostics: map[string]any{"method": "lexicographic", "error": "no KPI tiers configured"}}
	}

	diagnostics := map[string]any{"method": "lexicographic", "tier_count": len(tiers)}
	extra := alwaysFeasible
	var last Solution

	for idx, tier := range tiers {
		var sol Solution
		if len(problem.Candidates) > maxExhaustiveCandidates {
			sol = greedySolveFor(problem, tier.Coeffs, extra)
		} else {
			sol = exhaustiveSolveFor(problem, tier.Coeffs, extra, "lexicographic")
		}
		if sol.Status == "infeasible" {
			diagnostics["failed_at_tier"] = idx
			diagnostics["failed_kpi"] = tier.KPIKey
			return Solution{Status: "infeasible", Diagnostics: diagnostics}
		}

		last = sol
		diagnostics[fmt.Sprintf("tier_%d_kpi", idx)] = tier.KPIKey
		diagnostics[fmt.Sprintf("tier_%d_objective", idx)] = sol.TotalObjective

		frozenFloor := sol.TotalObjective - lexFreezeTolerance
		coeffs := tier.Coeffs
		prevExtra := extra
		extra = func(mask uint64) bool {
			return prevExtra(mask) && maskObjectiveFor(problem, mask, coeffs) >= frozenFloor
		}
	}

	last.Status = "optimal"
	last.Diagnostics = diagnostics
	return last
}

func allSelectedByKey(problem Problem, mask uint64, keys []string) bool {
	index := candidateIndex(problem)
	for _, key := range keys {
		i, ok := index[key]
		if !ok || mask&(1<<uint(i)) == 0 {
			return false
		}
	}
	return true
}

func candidateIndex(problem Problem) map[string]int {
	idx := make(map[string]int, len(problem.Candidates))
	for i, c := range problem.Candidates {
		idx[c.InitiativeKey] = i
	}
	return idx
}

// satisfiesConstraints checks every hard constraint for a candidate
// selection bitmask: total capacity, per-slice caps and floors, mandatory
// inclusion, exclusion pairs/singletons, bundle all-or-nothing, and
// prerequisite ordering.
func satisfiesConstraints(problem Problem, mask uint64) bool {
	cs := problem.ConstraintSet
	index := candidateIndex(problem)
	selected := func(key string) bool {
		i, ok := index[key]
		return ok && mask&(1<<uint(i)) != 0
	}

	var totalTokens int64
	for i, c := range problem.Candidates {
		if mask&(1<<uint(i)) != 0 {
			totalTokens += c.EngineeringTokens
		}
	}
	if problem.CapacityTotalTokens > 0 && totalTokens > problem.CapacityTotalTokens {
		return false
	}

	for key := range cs.Mandatory {
		if !selected(key) {
			return false
		}
	}
	for key := range cs.ExclusionInits {
		if selected(key) {
			return false
		}
	}
	for _, pair := range cs.ExclusionPairs {
		if selected(pair[0]) && selected(pair[1]) {
			return false
		}
	}
	for _, b := range cs.Bundles {
		allIn, allOut := true, true
		for _, m := range b.Members {
			if selected(m) {
				allOut = false
			} else {
				allIn = false
			}
		}
		if !allIn && !allOut {
			return false
		}
	}
	for dependent, required := range cs.Prerequisites {
		if !selected(dependent) {
			continue
		}
		for _, r := range required {
			if !selected(r) {
				return false
			}
		}
	}

	for dimension, byKey := range cs.CapacityCaps {
		for dimKey, capTokens := range byKey {
			var sum int64
			for i, c := range problem.Candidates {
				if mask&(1<<uint(i)) == 0 {
					continue
				}
				if dimKey == "all" || c.dimValue(dimension) == dimKey {
					sum += c.EngineeringTokens
				}
			}
			if sum > capTokens {
				return false
			}
		}
	}
	for dimension, byKey := range cs.CapacityFloors {
		for dimKey, floor := range byKey {
			var sum int64
			for i, c := range problem.Candidates {
				if mask&(1<<uint(i)) == 0 {
					continue
				}
				if dimKey == "all" || c.dimValue(dimension) == dimKey {
					sum += c.EngineeringTokens
				}
			}
			if sum < floor {
				return false
			}
		}
	}

	for dimension, byKey := range cs.Targets {
		for dimKey, byKPI := range byKey {
			for kpiKey, target := range byKPI {
				if target.Type != domain.TargetFloor {
					continue
				}
				var sum float64
				for i, c := range problem.Candidates {
					if mask&(1<<uint(i)) == 0 {
						continue
					}
					if dimKey == "all" || c.dimValue(dimension) == dimKey {
						sum += c.KPIContributions[kpiKey]
					}
				}
				if sum < target.Value {
					return false
				}
			}
		}
	}

	return true
}

func itemsFromMask(problem Problem, mask uint64) []SelectedItem {
	items := make([]SelectedItem, 0, len(problem.Candidates))
	for i, c := range problem.Candidates {
		sel := mask&(1<<uint(i)) != 0
		tokens := int64(0)
		if sel {
			tokens = c.EngineeringTokens
		}
		items = append(items, SelectedItem{InitiativeKey: c.InitiativeKey, Selected: sel, AllocatedTokens: tokens})
	}
	return items
}

// greedySolve is the deterministic fallback used above
// maxExhaustiveCandidates: sort candidates by objective coefficient per
// token descending (ties broken by initiative_key ascending), then admit
// each candidate in turn that keeps every constraint satisfiable, skipping
// mandatory and exclusion violations outright. It is not guaranteed optimal
// and is reported as such via Diagnostics["method"].
func greedySolve(problem Problem) Solution {
	return greedySolveFor(problem, problem.ObjectiveCoeffs, alwaysFeasible)
}

// greedySolveFor is the coefficient- and extra-constraint-parameterized
// core of greedySolve, reused by lexicographicSolve above
// maxExhaustiveCandidates.
func greedySolveFor(problem Problem, coeffs map[string]float64, extra func(uint64) bool) Solution {
	order := make([]int, len(problem.Candidates))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ca, cb := problem.Candidates[order[a]], problem.Candidates[order[b]]
		scoreA := densityScore(ca, coeffs)
		scoreB := densityScore(cb, coeffs)
		if scoreA != scoreB {
			return scoreA > scoreB
		}
		return ca.InitiativeKey < cb.InitiativeKey
	})

	var mask uint64
	for _, i := range order {
		candidate := uint64(1) << uint(i)
		if satisfiesConstraints(problem, mask|candidate) && extra(mask|candidate) {
			mask |= candidate
		}
	}
	for key := range problem.ConstraintSet.Mandatory {
		if i, ok := candidateIndex(problem)[key]; ok {
			mask |= uint64(1) << uint(i)
		}
	}
	if !satisfiesConstraints(problem, mask) || !extra(mask) {
		return Solution{Status: "infeasible", Diagnostics: map[string]any{"method": "greedy_fallback"}}
	}

	return Solution{
		Status:         "feasible",
		SelectedItems:  itemsFromMask(problem, mask),
		TotalObjective: maskObjectiveFor(problem, mask, coeffs),
		Diagnostics:    map[string]any{"method": "greedy_fallback", "candidates": len(problem.Candidates), "selected": bits.OnesCount64(mask)},
	}
}

func densityScore(c Candidate, coeffs map[string]float64) float64 {
	if c.EngineeringTokens <= 0 {
		return coeffs[c.InitiativeKey]
	}
	return coeffs[c.InitiativeKey] / float64(c.EngineeringTokens)
}
