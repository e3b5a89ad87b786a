package optimize

import (
	"fmt"
	"sort"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
)

// Candidate is one optimization-eligible initiative projected for the
// solver (spec.md §4.11).
type Candidate struct {
	InitiativeKey      string
	EngineeringTokens  int64
	DimCountry         string
	DimDepartment      string
	DimCategory        string
	DimProgram         string
	DimProduct         string
	DimSegment         string
	KPIContributions   map[string]float64
	ActiveOverallScore float64
}

// dimValue resolves a candidate's value for a named dimension; an unknown
// dimension name resolves to empty, matching an unscoped/no-match slice.
func (c Candidate) dimValue(dimension string) string {
	switch dimension {
	case "country":
		return c.DimCountry
	case "department":
		return c.DimDepartment
	case "category":
		return c.DimCategory
	case "program":
		return c.DimProgram
	case "product":
		return c.DimProduct
	case "segment":
		return c.DimSegment
	default:
		return ""
	}
}

// Problem is the frozen OptimizationProblem the Feasibility Checker and
// Solver consume (spec.md §4.11): candidates, compiled constraints, and a
// resolved objective.
type Problem struct {
	ScenarioName        string
	ConstraintSetName   string
	CapacityTotalTokens int64
	ObjectiveMode       domain.ObjectiveMode
	Candidates          []Candidate
	ConstraintSet       *domain.OptimizationConstraintSet
	// ObjectiveCoeffs maps initiative_key to its objective coefficient,
	// already KPI_SCALE-scaled where the objective mode scales contributions.
	// Populated for north_star and weighted_kpis; empty for lexicographic,
	// which instead populates LexicographicTiers.
	ObjectiveCoeffs map[string]float64
	// LexicographicTiers is populated only when ObjectiveMode is
	// lexicographic: one entry per KPI tier, ordered by descending weight.
	LexicographicTiers []LexTier
	Diagnostics        map[string]any
}

// CandidateSource supplies the initiative pool and registry data the
// Problem Builder needs without depending on storage directly, so it can
// be driven by either live repositories or fixtures in tests.
type CandidateSource interface {
	AllCandidates(periodKey string) ([]Candidate, error)
	CandidatesByKeys(keys []string) ([]Candidate, error)
	ActiveNorthStarKey() (string, error)
	MaxTargetValue(kpiKey string) (float64, bool)
	AllTargetValue(kpiKey string) (float64, bool)
}

// BuildProblem implements the Problem Builder (spec.md §4.11): resolves
// candidates for scope, drops time-infeasible ones, and resolves the
// objective coefficients per scenario.ObjectiveMode.
func BuildProblem(scenario domain.OptimizationScenario, constraintSet *domain.OptimizationConstraintSet, scope string, selectedKeys []string, source CandidateSource, periodEndDeadlineCutoff func(Candidate) bool) (Problem, error) {
	var candidates []Candidate
	var err error
	switch scope {
	case "all_candidates":
		candidates, err = source.AllCandidates(scenario.PeriodKey)
	case "selected_keys":
		candidates, err = source.CandidatesByKeys(selectedKeys)
	default:
		return Problem{}, fmt.Errorf("optimize: unknown scope %q", scope)
	}
	if err != nil {
		return Problem{}, err
	}

	if periodEndDeadlineCutoff != nil {
		filtered := candidates[:0]
		for _, c := range candidates {
			if periodEndDeadlineCutoff(c) {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].InitiativeKey < candidates[j].InitiativeKey })

	problem := Problem{
		ScenarioName:        scenario.Name,
		ConstraintSetName:   constraintSet.Name,
		CapacityTotalTokens: scenario.CapacityTotalTokens,
		ObjectiveMode:       scenario.ObjectiveMode,
		Candidates:          candidates,
		ConstraintSet:       constraintSet,
		ObjectiveCoeffs:     map[string]float64{},
		Diagnostics:         map[string]any{},
	}

	switch scenario.ObjectiveMode {
	case domain.ObjectiveNorthStar:
		if err := resolveNorthStarObjective(&problem, source); err != nil {
			return Problem{}, err
		}
	case domain.ObjectiveWeightedKPIs:
		if err := resolveWeightedKPIsObjective(&problem, scenario.ObjectiveWeightsJSON, source); err != nil {
			return Problem{}, err
		}
	case domain.ObjectiveLexicographic:
		resolveLexicographicTiers(&problem, scenario.ObjectiveWeightsJSON, source)
	default:
		return Problem{}, fmt.Errorf("optimize: unknown objective mode %q", scenario.ObjectiveMode)
	}

	return problem, nil
}

func resolveNorthStarObjective(problem *Problem, source CandidateSource) error {
	key, err := source.ActiveNorthStarKey()
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("optimize: north_star objective requires exactly one active north_star KPI, found none")
	}
	for _, c := range problem.Candidates {
		problem.ObjectiveCoeffs[c.InitiativeKey] = c.KPIContributions[key] * domain.KPIScale
	}
	problem.Diagnostics["north_star_key"] = key
	return nil
}

func resolveWeightedKPIsObjective(problem *Problem, weights map[string]float64, source CandidateSource) error {
	scaleMap := make(map[string]float64, len(weights))
	scaleSourceMap := make(map[string]string, len(weights))
	weightsSum := 0.0

	for kpi, weight := range weights {
		weightsSum += weight
		scale, sourceName := resolveKPIScale(kpi, source)
		scaleMap[kpi] = scale
		scaleSourceMap[kpi] = sourceName
	}

	for _, c := range problem.Candidates {
		coeff := 0.0
		for kpi, weight := range weights {
			scale := scaleMap[kpi]
			if scale == 0 {
				continue
			}
			coeff += weight * c.KPIContributions[kpi] / scale
		}
		problem.ObjectiveCoeffs[c.InitiativeKey] = coeff * domain.KPIScale
	}

	problem.Diagnostics["weights_sum"] = weightsSum
	problem.Diagnostics["kpi_scale_map"] = scaleMap
	problem.Diagnostics["scale_source_map"] = scaleSourceMap
	return nil
}

// resolveKPIScale implements the normalization scale fallback chain
// (spec.md §4.11): prefer targets["all"]["all"][kpi]["value"]; else the
// maximum target value for that KPI across any dimension; else 1.0.
func resolveKPIScale(kpiKey string, source CandidateSource) (float64, string) {
	if v, ok := source.AllTargetValue(kpiKey); ok && v != 0 {
		return v, "all_all_target"
	}
	if v, ok := source.MaxTargetValue(kpiKey); ok && v != 0 {
		return v, "max_target"
	}
	return 1.0, "fallback"
}
