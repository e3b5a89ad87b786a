// Package optimize implements the Constraint Compiler, Feasibility
// Checker, Problem Builder, and Solver Adapter Contract (spec.md
// §4.9-4.12): the pipeline that turns PM-authored scenario/constraint/
// target rows and a candidate pool into a solved Portfolio.
package optimize

import (
	"fmt"
	"sort"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
)

// ConstraintRow is one already row-validated raw constraint entry (spec.md
// §4.9). Which fields are populated depends on ConstraintType: Value holds
// tokens for capacity_floor/capacity_cap or a bonus for synergy_bonus;
// InitiativeKey holds a single key for mandatory/exclusion_initiative or
// the dependent for prerequisite; Members holds the pair/bundle/
// synergy/prerequisite-required-list.
type ConstraintRow struct {
	ScenarioName      string
	ConstraintSetName string
	ConstraintType    string
	Dimension         string
	DimensionKey      string
	Value             float64
	InitiativeKey     string
	Members           []string
}

// Constraint type tokens (spec.md §4.9).
const (
	ConstraintCapacityFloor       = "capacity_floor"
	ConstraintCapacityCap         = "capacity_cap"
	ConstraintMandatory           = "mandatory"
	ConstraintBundle              = "bundle"
	ConstraintExclusionPair       = "exclusion_pair"
	ConstraintExclusionInitiative = "exclusion_initiative"
	ConstraintPrerequisite        = "prerequisite"
	ConstraintSynergyBonus        = "synergy_bonus"
)

// TargetRow is one already row-validated raw target entry (spec.md §4.9).
type TargetRow struct {
	ScenarioName      string
	ConstraintSetName string
	Dimension         string
	DimensionKey      string
	KPIKey            string
	Type              string
	Value             float64
	Notes             string
}

// ScenarioConstraintKey groups rows by (scenario_name, constraint_set_name)
// (spec.md §4.9).
type ScenarioConstraintKey struct {
	ScenarioName      string
	ConstraintSetName string
}

// CompileConstraints groups raw constraint and target rows by
// (scenario_name, constraint_set_name), deduplicates by each bucket's
// natural key, and validates the invariants spec.md §4.9 lists. validKPIKeys
// is optional (nil skips the "targets must reference a valid KPI" check).
func CompileConstraints(constraintRows []ConstraintRow, targetRows []TargetRow, validKPIKeys map[string]bool) (map[ScenarioConstraintKey]*domain.OptimizationConstraintSet, []string, error) {
	sets := make(map[ScenarioConstraintKey]*domain.OptimizationConstraintSet)
	var messages []string

	get := func(scenario, name string) *domain.OptimizationConstraintSet {
		key := ScenarioConstraintKey{ScenarioName: scenario, ConstraintSetName: name}
		if cs, ok := sets[key]; ok {
			return cs
		}
		cs := domain.NewOptimizationConstraintSet(scenario, name)
		sets[key] = cs
		return cs
	}

	// exclusionSeen / bundleSeen dedupe within each constraint set without
	// disturbing the deterministic append order of the final slices.
	exclusionSeen := make(map[ScenarioConstraintKey]map[[2]string]bool)
	bundleSeen := make(map[ScenarioConstraintKey]map[string]bool)
	synergySeen := make(map[ScenarioConstraintKey]map[string]bool)

	for _, row := range constraintRows {
		key := ScenarioConstraintKey{ScenarioName: row.ScenarioName, ConstraintSetName: row.ConstraintSetName}
		cs := get(row.ScenarioName, row.ConstraintSetName)

		if row.Value < 0 {
			messages = append(messages, fmt.Sprintf("constraint %s/%s: %s has negative value %.2f, skipped", row.ScenarioName, row.ConstraintSetName, row.ConstraintType, row.Value))
			continue
		}

		switch row.ConstraintType {
		case ConstraintCapacityFloor:
			if cs.CapacityFloors[row.Dimension] == nil {
				cs.CapacityFloors[row.Dimension] = map[string]int64{}
			}
			cs.CapacityFloors[row.Dimension][row.DimensionKey] = int64(row.Value)

		case ConstraintCapacityCap:
			if cs.CapacityCaps[row.Dimension] == nil {
				cs.CapacityCaps[row.Dimension] = map[string]int64{}
			}
			cs.CapacityCaps[row.Dimension][row.DimensionKey] = int64(row.Value)

		case ConstraintMandatory:
			cs.Mandatory[row.InitiativeKey] = true

		case ConstraintExclusionInitiative:
			cs.ExclusionInits[row.InitiativeKey] = true

		case ConstraintExclusionPair:
			if len(row.Members) != 2 {
				messages = append(messages, fmt.Sprintf("constraint %s/%s: exclusion_pair requires exactly 2 members, got %d, skipped", row.ScenarioName, row.ConstraintSetName, len(row.Members)))
				continue
			}
			a, b := row.Members[0], row.Members[1]
			if a == b {
				messages = append(messages, fmt.Sprintf("constraint %s/%s: illegal exclusion pair (%s,%s), skipped", row.ScenarioName, row.ConstraintSetName, a, b))
				continue
			}
			pair := normalizePair(a, b)
			if exclusionSeen[key] == nil {
				exclusionSeen[key] = map[[2]string]bool{}
			}
			if !exclusionSeen[key][pair] {
				exclusionSeen[key][pair] = true
				cs.ExclusionPairs = append(cs.ExclusionPairs, pair)
			}

		case ConstraintBundle:
			if len(row.Members) < 2 {
				messages = append(messages, fmt.Sprintf("constraint %s/%s: bundle %q requires >=2 members, got %d, skipped", row.ScenarioName, row.ConstraintSetName, row.InitiativeKey, len(row.Members)))
				continue
			}
			name := row.InitiativeKey
			if bundleSeen[key] == nil {
				bundleSeen[key] = map[string]bool{}
			}
			if !bundleSeen[key][name] {
				bundleSeen[key][name] = true
				cs.Bundles = append(cs.Bundles, domain.Bundle{Name: name, Members: append([]string(nil), row.Members...)})
			}

		case ConstraintPrerequisite:
			existing := cs.Prerequisites[row.InitiativeKey]
			seen := make(map[string]bool, len(existing))
			for _, r := range existing {
				seen[r] = true
			}
			for _, req := range row.Members {
				if !seen[req] {
					seen[req] = true
					existing = append(existing, req)
				}
			}
			cs.Prerequisites[row.InitiativeKey] = existing

		case ConstraintSynergyBonus:
			if len(row.Members) < 2 {
				messages = append(messages, fmt.Sprintf("constraint %s/%s: synergy_bonus requires >=2 members, got %d, skipped", row.ScenarioName, row.ConstraintSetName, len(row.Members)))
				continue
			}
			dedupKey := synergyKey(row.Members)
			if synergySeen[key] == nil {
				synergySeen[key] = map[string]bool{}
			}
			if !synergySeen[key][dedupKey] {
				synergySeen[key][dedupKey] = true
				cs.SynergyBonuses = append(cs.SynergyBonuses, domain.SynergyBonus{Members: append([]string(nil), row.Members...), Bonus: row.Value})
			}

		default:
			messages = append(messages, fmt.Sprintf("constraint %s/%s: unknown constraint_type %q, skipped", row.ScenarioName, row.ConstraintSetName, row.ConstraintType))
		}
	}

	for _, row := range targetRows {
		cs := get(row.ScenarioName, row.ConstraintSetName)

		if row.Type != domain.TargetFloor && row.Type != domain.TargetGoal {
			messages = append(messages, fmt.Sprintf("target %s/%s: invalid type %q for kpi %q, skipped", row.ScenarioName, row.ConstraintSetName, row.Type, row.KPIKey))
			continue
		}
		if row.Value < 0 {
			messages = append(messages, fmt.Sprintf("target %s/%s: negative value for kpi %q, skipped", row.ScenarioName, row.ConstraintSetName, row.KPIKey))
			continue
		}
		if validKPIKeys != nil && !validKPIKeys[row.KPIKey] {
			messages = append(messages, fmt.Sprintf("target %s/%s: kpi %q is not in the valid KPI set, skipped", row.ScenarioName, row.ConstraintSetName, row.KPIKey))
			continue
		}

		if cs.Targets[row.Dimension] == nil {
			cs.Targets[row.Dimension] = map[string]map[string]domain.Target{}
		}
		if cs.Targets[row.Dimension][row.DimensionKey] == nil {
			cs.Targets[row.Dimension][row.DimensionKey] = map[string]domain.Target{}
		}
		cs.Targets[row.Dimension][row.DimensionKey][row.KPIKey] = domain.Target{
			Type:  domain.TargetKind(row.Type),
			Value: row.Value,
			Notes: row.Notes,
		}
	}

	return sets, messages, nil
}

// normalizePair returns (a,b) sorted so a caller-supplied (B,A) dedupes
// against an earlier (A,B).
func normalizePair(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// synergyKey builds a dedup key for a synergy bonus's member set, order
// independent.
func synergyKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	key := ""
	for _, m := range sorted {
		key += m + "|"
	}
	return key
}
