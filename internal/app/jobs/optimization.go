package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/metrics"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/optimize"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/sheetio"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/writers"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// candidatePool is a storage-backed optimize.CandidateSource: it loads the
// candidate pool and north-star/target lookups once up front rather than
// round-tripping storage per solver query, since the solver may probe the
// same KPI dozens of times during an exhaustive search.
type candidatePool struct {
	all       []optimize.Candidate
	byKey     map[string]optimize.Candidate
	northStar string
	targets   map[string]map[string]map[string]domain.Target
}

// newCandidatePool builds a candidatePool for one optimization run. ctx is
// taken as a parameter rather than stored on the struct so the resulting
// CandidateSource stays free of embedded context state.
func newCandidatePool(ctx context.Context, initiativeStore storage.InitiativeStore, metricStore storage.MetricConfigStore, periodKey string, constraintSet *domain.OptimizationConstraintSet) (*candidatePool, error) {
	initiatives, err := initiativeStore.ListOptimizationCandidates(ctx, periodKey)
	if err != nil {
		return nil, err
	}

	pool := &candidatePool{
		byKey:   make(map[string]optimize.Candidate, len(initiatives)),
		targets: constraintSet.Targets,
	}
	for _, in := range initiatives {
		c := optimize.Candidate{
			InitiativeKey:    in.InitiativeKey,
			DimCountry:       in.DimCountry,
			DimDepartment:    in.DimDepartment,
			DimCategory:      in.DimCategory,
			DimProgram:       in.DimProgram,
			DimProduct:       in.DimProduct,
			DimSegment:       in.DimSegment,
			KPIContributions: in.KPIContributionJSON,
		}
		if in.EngineeringTokens != nil {
			c.EngineeringTokens = *in.EngineeringTokens
		}
		if in.Active.Overall != nil {
			c.ActiveOverallScore = *in.Active.Overall
		}
		pool.all = append(pool.all, c)
		pool.byKey[in.InitiativeKey] = c
	}

	metrics, err := metricStore.ListActiveMetricConfigs(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range metrics {
		if m.KPILevel == domain.MetricLevelNorthStar {
			pool.northStar = m.KPIKey
			break
		}
	}

	return pool, nil
}

func (p *candidatePool) AllCandidates(periodKey string) ([]optimize.Candidate, error) {
	return p.all, nil
}

func (p *candidatePool) CandidatesByKeys(keys []string) ([]optimize.Candidate, error) {
	out := make([]optimize.Candidate, 0, len(keys))
	for _, k := range keys {
		c, ok := p.byKey[k]
		if !ok {
			return nil, fmt.Errorf("optimize: selected initiative_key %q is not an optimization candidate", k)
		}
		out = append(out, c)
	}
	return out, nil
}

func (p *candidatePool) ActiveNorthStarKey() (string, error) {
	return p.northStar, nil
}

func (p *candidatePool) MaxTargetValue(kpiKey string) (float64, bool) {
	best := 0.0
	found := false
	for _, byKey := range p.targets {
		for _, byKPI := range byKey {
			target, ok := byKPI[kpiKey]
			if !ok {
				continue
			}
			if !found || target.Value > best {
				best = target.Value
				found = true
			}
		}
	}
	return best, found
}

func (p *candidatePool) AllTargetValue(kpiKey string) (float64, bool) {
	byKey, ok := p.targets["all"]
	if !ok {
		return 0, false
	}
	byKPI, ok := byKey["all"]
	if !ok {
		return 0, false
	}
	target, ok := byKPI[kpiKey]
	if !ok {
		return 0, false
	}
	return target.Value, true
}

// OptimizationJob implements the Optimization Job (spec.md §4.18): build
// problem, check feasibility, solve, persist, and publish the Runs/
// Results/Gaps rows back to the Optimization Center tabs.
type OptimizationJob struct {
	InitiativeStore storage.InitiativeStore
	MetricStore     storage.MetricConfigStore
	Store           storage.OptimizationStore
	Solver          optimize.Solver

	Client        sheetio.Client
	SpreadsheetID string
	RunsTab       string
	PortfoliosTab string

	Log *logger.Logger
}

// runsColumns mirrors the Optimization Center "Runs" tab layout.
var runsColumns = []string{
	"run_id", "scenario_name", "constraint_set_name", "status",
	"solver_name", "solver_version", "total_objective", "started_at", "finished_at",
}

// portfoliosColumns mirrors the Optimization Center "Portfolios" / "Gaps"
// tab layout — one row per selected (or infeasible-gap) item.
var portfoliosColumns = []string{
	"run_id", "initiative_key", "selected", "allocated_tokens",
}

// Run executes one end-to-end optimization attempt for the given scenario
// and scope (spec.md §4.18 exact sequence): build problem, feasibility
// check (persist-and-stop on any error-severity issue), else snapshot
// inputs, solve, persist the result and portfolio, and write the sheet
// rows.
func (j *OptimizationJob) Run(ctx context.Context, runID string, scenario domain.OptimizationScenario, constraintSet *domain.OptimizationConstraintSet, scope string, selectedKeys []string) (domain.OptimizationRun, error) {
	now := time.Now().UTC()
	run := domain.OptimizationRun{
		RunID:           runID,
		ScenarioID:      scenario.ID,
		ConstraintSetID: constraintSet.ID,
		Status:          domain.RunRunning,
		StartedAt:       &now,
		SolverName:      "reference",
		SolverVersion:   "v1",
	}
	run, err := j.Store.CreateRun(ctx, run)
	if err != nil {
		return run, err
	}

	source, err := newCandidatePool(ctx, j.InitiativeStore, j.MetricStore, scenario.PeriodKey, constraintSet)
	if err != nil {
		return j.fail(ctx, run, err)
	}

	problem, err := optimize.BuildProblem(scenario, constraintSet, scope, selectedKeys, source, nil)
	if err != nil {
		return j.fail(ctx, run, err)
	}

	report := optimize.CheckFeasibility(problem)
	if report.Status == "error" {
		finished := time.Now().UTC()
		run.FinishedAt = &finished
		run.Status = domain.RunFailed
		run.ResultJSON = map[string]any{"feasibility": report}
		run, err = j.Store.UpdateRun(ctx, run)
		if err != nil {
			return run, err
		}
		if werr := j.writeGaps(ctx, run.RunID, nil, report); werr != nil && j.Log != nil {
			j.Log.WithError(werr).Warn("optimization job: failed writing gaps for infeasible problem")
		}
		return run, nil
	}

	run.InputsSnapshotJSON = map[string]any{
		"scenario":        scenario,
		"candidate_count": len(problem.Candidates),
		"feasibility":     report,
	}

	solveStart := time.Now()
	solution, err := j.Solver.Solve(ctx, problem)
	if err != nil {
		metrics.RecordSolverRun("error", time.Since(solveStart))
		return j.fail(ctx, run, err)
	}

	metrics.RecordSolverRun(solution.Status, time.Since(solveStart))

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.ResultJSON = map[string]any{"solution": solution}
	if solution.Status == "infeasible" || solution.Status == "error" {
		run.Status = domain.RunFailed
	} else {
		run.Status = domain.RunSucceeded
	}
	run, err = j.Store.UpdateRun(ctx, run)
	if err != nil {
		return run, err
	}

	var portfolio domain.Portfolio
	if run.Status == domain.RunSucceeded {
		portfolio.RunID = run.ID
		for _, item := range solution.SelectedItems {
			if !item.Selected {
				continue
			}
			portfolio.Items = append(portfolio.Items, domain.PortfolioItem{
				InitiativeKey:   item.InitiativeKey,
				AllocatedTokens: item.AllocatedTokens,
			})
		}
		if _, err := j.Store.SavePortfolio(ctx, portfolio); err != nil {
			return run, err
		}
	}

	if err := j.writeRunRow(ctx, run, solution); err != nil && j.Log != nil {
		j.Log.WithError(err).Warn("optimization job: failed writing run row")
	}
	if err := j.writePortfolioRows(ctx, run.RunID, solution); err != nil && j.Log != nil {
		j.Log.WithError(err).Warn("optimization job: failed writing portfolio rows")
	}

	return run, nil
}

func (j *OptimizationJob) fail(ctx context.Context, run domain.OptimizationRun, cause error) (domain.OptimizationRun, error) {
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Status = domain.RunFailed
	run.ResultJSON = map[string]any{"error": cause.Error()}
	updated, err := j.Store.UpdateRun(ctx, run)
	if err != nil {
		return run, err
	}
	return updated, cause
}

func (j *OptimizationJob) writeRunRow(ctx context.Context, run domain.OptimizationRun, solution optimize.Solution) error {
	if j.Client == nil || j.RunsTab == "" {
		return nil
	}
	row := writers.Row{
		"run_id":          run.RunID,
		"status":          string(run.Status),
		"solver_name":     run.SolverName,
		"solver_version":  run.SolverVersion,
		"total_objective": solution.TotalObjective,
	}
	if run.StartedAt != nil {
		row["started_at"] = run.StartedAt.Format(time.RFC3339)
	}
	if run.FinishedAt != nil {
		row["finished_at"] = run.FinishedAt.Format(time.RFC3339)
	}
	writer := &writers.AppendOnlyWriter{
		Client:        j.Client,
		SpreadsheetID: j.SpreadsheetID,
		TabName:       j.RunsTab,
		Columns:       runsColumns,
	}
	return writer.Append(ctx, []writers.Row{row})
}

func (j *OptimizationJob) writePortfolioRows(ctx context.Context, runID string, solution optimize.Solution) error {
	if j.Client == nil || j.PortfoliosTab == "" || len(solution.SelectedItems) == 0 {
		return nil
	}
	rows := make([]writers.Row, 0, len(solution.SelectedItems))
	for _, item := range solution.SelectedItems {
		rows = append(rows, writers.Row{
			"run_id":           runID,
			"initiative_key":   item.InitiativeKey,
			"selected":         item.Selected,
			"allocated_tokens": item.AllocatedTokens,
		})
	}
	writer := &writers.AppendOnlyWriter{
		Client:        j.Client,
		SpreadsheetID: j.SpreadsheetID,
		TabName:       j.PortfoliosTab,
		Columns:       portfoliosColumns,
	}
	return writer.Append(ctx, rows)
}

// writeGaps records an infeasible run's issues on the portfolios tab as
// zero-allocation rows, one per offending initiative_key, so a PM can see
// which keys blocked the run without opening the Action Run payload.
func (j *OptimizationJob) writeGaps(ctx context.Context, runID string, _ []optimize.Candidate, report optimize.FeasibilityReport) error {
	if j.Client == nil || j.PortfoliosTab == "" {
		return nil
	}
	seen := map[string]bool{}
	var rows []writers.Row
	for _, issue := range report.Issues {
		if issue.Code == "capacity_floor_unreachable" || issue.Code == "kpi_target_unreachable" {
			continue // Keys name a dimension slice and KPI, not initiatives
		}
		for _, key := range issue.Keys {
			if seen[key] {
				continue
			}
			seen[key] = true
			rows = append(rows, writers.Row{
				"run_id":           runID,
				"initiative_key":   key,
				"selected":         false,
				"allocated_tokens": int64(0),
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	writer := &writers.AppendOnlyWriter{
		Client:        j.Client,
		SpreadsheetID: j.SpreadsheetID,
		TabName:       j.PortfoliosTab,
		Columns:       portfoliosColumns,
	}
	return writer.Append(ctx, rows)
}

// Handle adapts Run to action.Handler, registered under both
// "pm.optimize_run_selected_candidates" and "pm.optimize_run_all_candidates"
// (spec.md §6.3). actx.Options may supply "scope" ("all_candidates" |
// "selected_keys"); without it the scope follows the action name.
// actx.Scope supplies the selected keys when scope is "selected_keys".
func (j *OptimizationJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	scenarioName, _ := actx.Options["scenario_name"].(string)
	constraintSetName, _ := actx.Options["constraint_set_name"].(string)
	scope, _ := actx.Options["scope"].(string)
	if scope == "" {
		scope = "selected_keys"
		if actx.Action == "pm.optimize_run_all_candidates" {
			scope = "all_candidates"
		}
	}

	scenario, err := j.Store.GetScenario(ctx, scenarioName)
	if err != nil {
		return nil, err
	}
	constraintSet, err := j.Store.GetConstraintSet(ctx, scenarioName, constraintSetName)
	if err != nil {
		return nil, err
	}

	run, err := j.Run(ctx, actx.RunID, scenario, &constraintSet, scope, actx.Scope)
	if err != nil {
		return nil, err
	}

	result := map[string]any{
		"status":         string(run.Status),
		"selected_count": len(actx.Scope),
	}
	if run.ResultJSON != nil {
		if solution, ok := run.ResultJSON["solution"].(optimize.Solution); ok {
			result["selected_items"] = len(solution.SelectedItems)
			result["total_objective"] = solution.TotalObjective
		}
	}
	return result, nil
}
