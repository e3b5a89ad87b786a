package optimize

import (
	"fmt"
	"sort"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
)

// Issue is one feasibility finding (spec.md §4.10).
type Issue struct {
	Code     string
	Severity string // error | warn
	Message  string
	Keys     []string
}

// FeasibilityReport is the Feasibility Checker's verdict over a Problem.
// Status is "error" if any issue is severity error, "warn" if only warnings
// were found, else "ok". All checks run regardless of earlier failures.
type FeasibilityReport struct {
	Status string
	Issues []Issue
}

func (r *FeasibilityReport) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

func (r *FeasibilityReport) finalize() {
	status := "ok"
	for _, issue := range r.Issues {
		if issue.Severity == "error" {
			status = "error"
			break
		}
		status = "warn"
	}
	r.Status = status
}

// CheckFeasibility implements the Feasibility Checker (spec.md §4.10): runs
// every structural and numeric check against problem and collects all
// issues found, rather than stopping at the first one.
func CheckFeasibility(problem Problem) FeasibilityReport {
	var report FeasibilityReport

	keys := make(map[string]bool, len(problem.Candidates))
	for _, c := range problem.Candidates {
		keys[c.InitiativeKey] = true
	}

	checkKeysExist(&report, problem.ConstraintSet, keys)
	checkPrerequisiteCycles(&report, problem.ConstraintSet)
	checkCapacityFloors(&report, problem)
	checkKPITargetReachability(&report, problem)
	checkMandatoryExclusionOverlap(&report, problem.ConstraintSet)
	checkBundleExclusionOverlap(&report, problem.ConstraintSet)

	report.finalize()
	return report
}

func checkKeysExist(report *FeasibilityReport, cs *domain.OptimizationConstraintSet, keys map[string]bool) {
	missing := map[string]bool{}
	note := func(key string) {
		if key != "" && !keys[key] {
			missing[key] = true
		}
	}

	for key := range cs.Mandatory {
		note(key)
	}
	for key := range cs.ExclusionInits {
		note(key)
	}
	for _, pair := range cs.ExclusionPairs {
		note(pair[0])
		note(pair[1])
	}
	for _, b := range cs.Bundles {
		for _, m := range b.Members {
			note(m)
		}
	}
	for dependent, required := range cs.Prerequisites {
		note(dependent)
		for _, r := range required {
			note(r)
		}
	}
	for _, s := range cs.SynergyBonuses {
		for _, m := range s.Members {
			note(m)
		}
	}

	if len(missing) == 0 {
		return
	}
	sorted := make([]string, 0, len(missing))
	for key := range missing {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)
	report.add(Issue{
		Code:     "unknown_initiative_key",
		Severity: "error",
		Message:  fmt.Sprintf("constraint set %q references %d initiative_key(s) absent from the candidate pool", cs.Name, len(sorted)),
		Keys:     sorted,
	})
}

// checkPrerequisiteCycles runs a DFS with three-color marking over the
// dependent->required prerequisite graph and reports the first cycle found.
func checkPrerequisiteCycles(report *FeasibilityReport, cs *domain.OptimizationConstraintSet) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var path []string
	var cycle []string

	var visit func(node string) bool
	visit = func(node string) bool {
		color[node] = gray
		path = append(path, node)
		for _, next := range cs.Prerequisites[node] {
			switch color[next] {
			case gray:
				idx := indexOf(path, next)
				cycle = append([]string(nil), path[idx:]...)
				cycle = append(cycle, next)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[node] = black
		return false
	}

	dependents := make([]string, 0, len(cs.Prerequisites))
	for dependent := range cs.Prerequisites {
		dependents = append(dependents, dependent)
	}
	sort.Strings(dependents)

	for _, dependent := range dependents {
		if color[dependent] == white {
			if visit(dependent) {
				report.add(Issue{
					Code:     "prerequisite_cycle",
					Severity: "error",
					Message:  fmt.Sprintf("prerequisite graph has a cycle: %v", cycle),
					Keys:     cycle,
				})
				return
			}
		}
	}
}

func indexOf(path []string, node string) int {
	for i, p := range path {
		if p == node {
			return i
		}
	}
	return 0
}

// checkCapacityFloors reports, per (dimension, dimension_key), whether the
// sum of every candidate's engineering tokens in that slice can possibly
// meet the configured capacity_floor.
func checkCapacityFloors(report *FeasibilityReport, problem Problem) {
	for dimension, byKey := range problem.ConstraintSet.CapacityFloors {
		for dimKey, floor := range byKey {
			var sum int64
			for _, c := range problem.Candidates {
				if dimKey == "all" || c.dimValue(dimension) == dimKey {
					sum += c.EngineeringTokens
				}
			}
			if sum < floor {
				report.add(Issue{
					Code:     "capacity_floor_unreachable",
					Severity: "error",
					Message:  fmt.Sprintf("capacity_floor_unreachable(%s, required=%d, optimistic_max=%d)", dimKey, floor, sum),
					Keys:     []string{dimension, dimKey},
				})
			}
		}
	}
}

// checkKPITargetReachability reports, per (dimension, dimension_key, kpi),
// whether the sum of every eligible candidate's contribution can possibly
// meet a "floor" target. This is the optimistic upper bound: every matching
// candidate selected, never the outcome of an actual solve.
func checkKPITargetReachability(report *FeasibilityReport, problem Problem) {
	for dimension, byKey := range problem.ConstraintSet.Targets {
		for dimKey, byKPI := range byKey {
			for kpiKey, target := range byKPI {
				if target.Type != domain.TargetFloor {
					continue
				}
				var sum float64
				for _, c := range problem.Candidates {
					if dimKey == "all" || c.dimValue(dimension) == dimKey {
						sum += c.KPIContributions[kpiKey]
					}
				}
				if sum < target.Value {
					report.add(Issue{
						Code:     "kpi_target_unreachable",
						Severity: "error",
						Message:  fmt.Sprintf("kpi_target_unreachable(%s/%s, kpi=%s, required=%.4f, optimistic_max=%.4f)", dimension, dimKey, kpiKey, target.Value, sum),
						Keys:     []string{dimension, dimKey, kpiKey},
					})
				}
			}
		}
	}
}

func checkMandatoryExclusionOverlap(report *FeasibilityReport, cs *domain.OptimizationConstraintSet) {
	var overlap []string
	for key := range cs.Mandatory {
		if cs.ExclusionInits[key] {
			overlap = append(overlap, key)
		}
	}
	if len(overlap) == 0 {
		return
	}
	sort.Strings(overlap)
	report.add(Issue{
		Code:     "mandatory_exclusion_conflict",
		Severity: "error",
		Message:  fmt.Sprintf("%d initiative(s) are both mandatory and excluded", len(overlap)),
		Keys:     overlap,
	})
}

func checkBundleExclusionOverlap(report *FeasibilityReport, cs *domain.OptimizationConstraintSet) {
	var overlap []string
	for _, b := range cs.Bundles {
		for _, m := range b.Members {
			if cs.ExclusionInits[m] {
				overlap = append(overlap, m)
			}
		}
	}
	if len(overlap) == 0 {
		return
	}
	sort.Strings(overlap)
	report.add(Issue{
		Code:     "bundle_exclusion_conflict",
		Severity: "error",
		Message:  fmt.Sprintf("%d bundle member(s) are also excluded initiatives", len(overlap)),
		Keys:     overlap,
	})
}
