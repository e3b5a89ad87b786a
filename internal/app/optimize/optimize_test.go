package optimize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
)

func TestCompileConstraintsBucketsRowsAndDedupes(t *testing.T) {
	rows := []ConstraintRow{
		{ScenarioName: "Q1-Growth", ConstraintSetName: "default", ConstraintType: ConstraintCapacityFloor, Dimension: "country", DimensionKey: "UK", Value: 30},
		{ScenarioName: "Q1-Growth", ConstraintSetName: "default", ConstraintType: ConstraintExclusionPair, Members: []string{"A", "B"}},
		{ScenarioName: "Q1-Growth", ConstraintSetName: "default", ConstraintType: ConstraintExclusionPair, Members: []string{"B", "A"}},
		{ScenarioName: "Q1-Growth", ConstraintSetName: "default", ConstraintType: ConstraintBundle, InitiativeKey: "bundle-1", Members: []string{"C", "D"}},
		{ScenarioName: "Q1-Growth", ConstraintSetName: "default", ConstraintType: "bogus"},
	}
	targets := []TargetRow{
		{ScenarioName: "Q1-Growth", ConstraintSetName: "default", Dimension: "all", DimensionKey: "all", KPIKey: "revenue", Type: "floor", Value: 100},
	}

	sets, messages, err := CompileConstraints(rows, targets, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "unknown constraint_type")

	cs := sets[ScenarioConstraintKey{ScenarioName: "Q1-Growth", ConstraintSetName: "default"}]
	require.NotNil(t, cs)
	assert.Equal(t, int64(30), cs.CapacityFloors["country"]["UK"])
	require.Len(t, cs.ExclusionPairs, 1)
	assert.Equal(t, [2]string{"A", "B"}, cs.ExclusionPairs[0])
	require.Len(t, cs.Bundles, 1)
	assert.Equal(t, []string{"C", "D"}, cs.Bundles[0].Members)
	assert.Equal(t, 100.0, cs.Targets["all"]["all"]["revenue"].Value)
}

func candidatesS5() []Candidate {
	return []Candidate{
		{InitiativeKey: "A", EngineeringTokens: 10, DimCountry: "UK"},
		{InitiativeKey: "B", EngineeringTokens: 5, DimCountry: "UK"},
		{InitiativeKey: "C", EngineeringTokens: 20, DimCountry: "UK"},
	}
}

func TestCheckFeasibilityS5ReachableFloor(t *testing.T) {
	cs := domain.NewOptimizationConstraintSet("Q1-Growth", "default")
	cs.CapacityFloors["country"] = map[string]int64{"UK": 30}

	problem := Problem{Candidates: candidatesS5(), ConstraintSet: cs, CapacityTotalTokens: 20}
	report := CheckFeasibility(problem)
	assert.Equal(t, "ok", report.Status)
}

func TestCheckFeasibilityS5UnreachableFloorReportsExactCode(t *testing.T) {
	cs := domain.NewOptimizationConstraintSet("Q1-Growth", "default")
	cs.CapacityFloors["country"] = map[string]int64{"UK": 40}

	problem := Problem{Candidates: candidatesS5(), ConstraintSet: cs, CapacityTotalTokens: 20}
	report := CheckFeasibility(problem)
	require.Equal(t, "error", report.Status)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "capacity_floor_unreachable", report.Issues[0].Code)
	assert.Equal(t, "capacity_floor_unreachable(UK, required=40, optimistic_max=35)", report.Issues[0].Message)
}

func TestCheckFeasibilityReportsUnknownKeysAndMandatoryExclusionConflict(t *testing.T) {
	cs := domain.NewOptimizationConstraintSet("Q1-Growth", "default")
	cs.Mandatory["ghost"] = true
	cs.Mandatory["A"] = true
	cs.ExclusionInits["A"] = true

	problem := Problem{Candidates: candidatesS5(), ConstraintSet: cs, CapacityTotalTokens: 20}
	report := CheckFeasibility(problem)
	require.Equal(t, "error", report.Status)

	var codes []string
	for _, issue := range report.Issues {
		codes = append(codes, issue.Code)
	}
	assert.Contains(t, codes, "unknown_initiative_key")
	assert.Contains(t, codes, "mandatory_exclusion_conflict")
}

func TestCheckFeasibilityDetectsPrerequisiteCycle(t *testing.T) {
	cs := domain.NewOptimizationConstraintSet("Q1-Growth", "default")
	cs.Prerequisites["A"] = []string{"B"}
	cs.Prerequisites["B"] = []string{"A"}

	problem := Problem{Candidates: candidatesS5(), ConstraintSet: cs, CapacityTotalTokens: 20}
	report := CheckFeasibility(problem)
	require.Equal(t, "error", report.Status)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "prerequisite_cycle", report.Issues[0].Code)
}

func candidatesS6() []Candidate {
	return []Candidate{
		{InitiativeKey: "A", EngineeringTokens: 10, KPIContributions: map[string]float64{"revenue": 5}},
		{InitiativeKey: "B", EngineeringTokens: 10, KPIContributions: map[string]float64{"revenue": 5}},
		{InitiativeKey: "C", EngineeringTokens: 5, KPIContributions: map[string]float64{"revenue": 3}},
		{InitiativeKey: "D", EngineeringTokens: 5, KPIContributions: map[string]float64{"revenue": 3}},
	}
}

func TestReferenceSolverS6PicksLexicographicallySmallerTieBreak(t *testing.T) {
	cs := domain.NewOptimizationConstraintSet("Q1-Growth", "default")
	cs.ExclusionPairs = [][2]string{{"A", "B"}}
	cs.Bundles = []domain.Bundle{{Name: "bundle-1", Members: []string{"C", "D"}}}

	problem := Problem{
		Candidates:          candidatesS6(),
		ConstraintSet:       cs,
		CapacityTotalTokens: 20,
		ObjectiveMode:       domain.ObjectiveNorthStar,
		ObjectiveCoeffs: map[string]float64{
			"A": 5 * domain.KPIScale,
			"B": 5 * domain.KPIScale,
			"C": 3 * domain.KPIScale,
			"D": 3 * domain.KPIScale,
		},
	}

	solver := ReferenceSolver{}
	solution, err := solver.Solve(context.Background(), problem)
	require.NoError(t, err)
	assert.Equal(t, "optimal", solution.Status)
	assert.InDelta(t, 11_000_000.0, solution.TotalObjective, 0.001)

	selected := map[string]bool{}
	for _, item := range solution.SelectedItems {
		selected[item.InitiativeKey] = item.Selected
	}
	assert.True(t, selected["A"])
	assert.False(t, selected["B"])
	assert.True(t, selected["C"])
	assert.True(t, selected["D"])
}

func TestReferenceSolverReportsInfeasibleWhenNoSubsetFits(t *testing.T) {
	cs := domain.NewOptimizationConstraintSet("Q1-Growth", "default")
	cs.Mandatory["A"] = true
	cs.Mandatory["B"] = true

	problem := Problem{
		Candidates: []Candidate{
			{InitiativeKey: "A", EngineeringTokens: 15},
			{InitiativeKey: "B", EngineeringTokens: 15},
		},
		ConstraintSet:       cs,
		CapacityTotalTokens: 20,
		ObjectiveMode:       domain.ObjectiveNorthStar,
		ObjectiveCoeffs:     map[string]float64{"A": 1, "B": 1},
	}

	solver := ReferenceSolver{}
	solution, err := solver.Solve(context.Background(), problem)
	require.NoError(t, err)
	assert.Equal(t, "infeasible", solution.Status)
}

func TestLexicographicSolveFreezesEachTierBeforeTheNext(t *testing.T) {
	cs := domain.NewOptimizationConstraintSet("Q1-Growth", "default")

	problem := Problem{
		Candidates: []Candidate{
			{InitiativeKey: "A", EngineeringTokens: 10},
			{InitiativeKey: "B", EngineeringTokens: 10},
		},
		ConstraintSet:       cs,
		CapacityTotalTokens: 10,
		ObjectiveMode:       domain.ObjectiveLexicographic,
		LexicographicTiers: []LexTier{
			{KPIKey: "revenue", Coeffs: map[string]float64{"A": 10, "B": 1}},
			{KPIKey: "retention", Coeffs: map[string]float64{"A": 0, "B": 100}},
		},
	}

	solver := ReferenceSolver{}
	solution, err := solver.Solve(context.Background(), problem)
	require.NoError(t, err)
	assert.Equal(t, "optimal", solution.Status)

	for _, item := range solution.SelectedItems {
		if item.InitiativeKey == "A" {
			assert.True(t, item.Selected, "tier 1 must keep its winner even though tier 2 prefers B")
		}
	}
}

func TestBuildProblemResolvesNorthStarObjective(t *testing.T) {
	scenario := domain.OptimizationScenario{
		Name: "Q1-Growth", ObjectiveMode: domain.ObjectiveNorthStar, CapacityTotalTokens: 20,
	}
	cs := domain.NewOptimizationConstraintSet("Q1-Growth", "default")
	source := fakeCandidateSource{
		all:       candidatesS6(),
		northStar: "revenue",
	}

	problem, err := BuildProblem(scenario, cs, "all_candidates", nil, source, nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0*domain.KPIScale, problem.ObjectiveCoeffs["A"])
	assert.Equal(t, "revenue", problem.Diagnostics["north_star_key"])
}

type fakeCandidateSource struct {
	all       []Candidate
	northStar string
}

func (f fakeCandidateSource) AllCandidates(periodKey string) ([]Candidate, error) { return f.all, nil }
func (f fakeCandidateSource) CandidatesByKeys(keys []string) ([]Candidate, error) { return f.all, nil }
func (f fakeCandidateSource) ActiveNorthStarKey() (string, error)                 { return f.northStar, nil }
func (f fakeCandidateSource) MaxTargetValue(kpiKey string) (float64, bool)        { return 0, false }
func (f fakeCandidateSource) AllTargetValue(kpiKey string) (float64, bool)        { return 0, false }
