// Package storage declares the narrow repository interfaces the rest of
// the application depends on, grounded on the teacher's
// internal/app/storage/store.go narrow-interface-per-aggregate pattern
// (AccountStore, FunctionStore, TriggerStore, ...) — one interface per
// domain aggregate, concrete implementations live in storage/postgres and
// storage/memory.
package storage

import (
	"context"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
)

// InitiativeStore persists Initiative aggregates (spec.md §3 Initiative,
// §4.5 Sync Services).
type InitiativeStore interface {
	CreateInitiative(ctx context.Context, in domain.Initiative) (domain.Initiative, error)
	UpdateInitiative(ctx context.Context, in domain.Initiative) (domain.Initiative, error)
	GetInitiative(ctx context.Context, id int64) (domain.Initiative, error)
	GetInitiativeByKey(ctx context.Context, key string) (domain.Initiative, error)
	ListInitiatives(ctx context.Context) ([]domain.Initiative, error)
	ListInitiativesByStatus(ctx context.Context, status domain.InitiativeStatus) ([]domain.Initiative, error)
	ListOptimizationCandidates(ctx context.Context, periodKey string) ([]domain.Initiative, error)
	NextInitiativeKey(ctx context.Context) (string, error)
}

// MathModelStore persists InitiativeMathModel rows (spec.md §3, §4.1).
type MathModelStore interface {
	UpsertMathModel(ctx context.Context, m domain.MathModel) (domain.MathModel, error)
	ListMathModelsByInitiative(ctx context.Context, initiativeID int64) ([]domain.MathModel, error)
	GetPrimaryMathModel(ctx context.Context, initiativeID int64) (domain.MathModel, error)
}

// ParamStore persists InitiativeParam rows (spec.md §3).
type ParamStore interface {
	UpsertParam(ctx context.Context, p domain.Param) (domain.Param, error)
	ListParamsByInitiative(ctx context.Context, initiativeKey string) ([]domain.Param, error)
	ListParamsByFramework(ctx context.Context, initiativeKey, framework string) ([]domain.Param, error)
}

// ScoreHistoryStore persists append-only ScoreHistory rows (spec.md §3).
type ScoreHistoryStore interface {
	AppendScoreHistory(ctx context.Context, h domain.ScoreHistory) (domain.ScoreHistory, error)
	ListScoreHistory(ctx context.Context, initiativeID int64) ([]domain.ScoreHistory, error)
}

// MetricConfigStore persists OrganizationMetricConfig rows (spec.md §3).
type MetricConfigStore interface {
	UpsertMetricConfig(ctx context.Context, m domain.OrganizationMetricConfig) (domain.OrganizationMetricConfig, error)
	GetMetricConfig(ctx context.Context, kpiKey string) (domain.OrganizationMetricConfig, error)
	ListMetricConfigs(ctx context.Context) ([]domain.OrganizationMetricConfig, error)
	ListActiveMetricConfigs(ctx context.Context) ([]domain.OrganizationMetricConfig, error)
}

// OptimizationStore persists scenarios, constraint sets, runs and
// portfolios (spec.md §3, §4.9-4.12).
type OptimizationStore interface {
	UpsertScenario(ctx context.Context, s domain.OptimizationScenario) (domain.OptimizationScenario, error)
	GetScenario(ctx context.Context, name string) (domain.OptimizationScenario, error)
	ListScenarios(ctx context.Context) ([]domain.OptimizationScenario, error)

	UpsertConstraintSet(ctx context.Context, c domain.OptimizationConstraintSet) (domain.OptimizationConstraintSet, error)
	GetConstraintSet(ctx context.Context, scenarioName, name string) (domain.OptimizationConstraintSet, error)

	CreateRun(ctx context.Context, r domain.OptimizationRun) (domain.OptimizationRun, error)
	UpdateRun(ctx context.Context, r domain.OptimizationRun) (domain.OptimizationRun, error)
	GetRun(ctx context.Context, runID string) (domain.OptimizationRun, error)
	ListRunsByScenario(ctx context.Context, scenarioID int64) ([]domain.OptimizationRun, error)

	SavePortfolio(ctx context.Context, p domain.Portfolio) (domain.Portfolio, error)
	GetPortfolioByRun(ctx context.Context, runID int64) (domain.Portfolio, error)
}

// ActionRunStore persists the durable action ledger (spec.md §3 ActionRun,
// §5 claim protocol).
type ActionRunStore interface {
	EnqueueActionRun(ctx context.Context, r domain.ActionRun) (domain.ActionRun, error)
	GetActionRun(ctx context.Context, runID string) (domain.ActionRun, error)
	ListActionRuns(ctx context.Context, status domain.ActionRunStatus, limit int) ([]domain.ActionRun, error)

	// ClaimNextActionRun atomically selects and marks the oldest queued run
	// running, using a row-level lock that skips rows already locked by a
	// concurrent claimant (spec.md §5: "FOR UPDATE SKIP LOCKED"). Returns
	// (domain.ActionRun{}, false, nil) when no queued run is available.
	ClaimNextActionRun(ctx context.Context) (domain.ActionRun, bool, error)

	FinishActionRun(ctx context.Context, runID string, status domain.ActionRunStatus, resultJSON, errorText string, finishedAt time.Time) error

	// ListStuckActionRuns returns runs stuck in "running" past the given
	// deadline, for the stuck-run sweeper (SPEC_FULL.md §12).
	ListStuckActionRuns(ctx context.Context, olderThan time.Time) ([]domain.ActionRun, error)
	RequeueActionRun(ctx context.Context, runID string) error
}
