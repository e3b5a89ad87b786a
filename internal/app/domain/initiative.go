// Package domain holds the entity types shared across the sync engine,
// scoring pipeline, optimization builder, and action ledger.
package domain

import "time"

// ScoringFramework identifies which scoring model is authoritative for an
// initiative's active score fields.
type ScoringFramework string

const (
	FrameworkRICE      ScoringFramework = "RICE"
	FrameworkWSJF      ScoringFramework = "WSJF"
	FrameworkMathModel ScoringFramework = "MATH_MODEL"
)

// InitiativeStatus is the backlog lifecycle state of an Initiative.
type InitiativeStatus string

const (
	StatusNew                 InitiativeStatus = "new"
	StatusNeedsInfo           InitiativeStatus = "needs_info"
	StatusUnderReview         InitiativeStatus = "under_review"
	StatusApprovedInPrinciple InitiativeStatus = "approved_in_principle"
	StatusScheduled           InitiativeStatus = "scheduled"
	StatusRejected            InitiativeStatus = "rejected"
	StatusWithdrawn           InitiativeStatus = "withdrawn"
)

// IntakeAllowedStatuses is the subset of statuses the intake pipeline may
// itself write (spec.md §4.5 Ownership rules: Intake).
var IntakeAllowedStatuses = map[InitiativeStatus]bool{
	StatusNew:       true,
	StatusWithdrawn: true,
}

// KPIContributionSource records whether the active KPI contribution map is
// system-computed or a PM override.
type KPIContributionSource string

const (
	KPIContribSourceComputed   KPIContributionSource = "computed"
	KPIContribSourcePMOverride KPIContributionSource = "pm_override"
)

// ImpactTriple is the low/expected/high impact estimate carried on intake.
type ImpactTriple struct {
	Low      *float64
	Expected *float64
	High     *float64
}

// ScoreTriple is the {value, effort, overall} shape shared by every
// per-framework and active score projection.
type ScoreTriple struct {
	Value   *float64
	Effort  *float64
	Overall *float64
}

// Initiative is the canonical unit of proposed work (spec.md §3).
type Initiative struct {
	ID int64

	// Identity
	InitiativeKey string // INIT-NNNNNN, assigned on first persistence

	// Source provenance
	SourceSheetID   string
	SourceTabName   string
	SourceRowNumber int

	// Descriptive attributes
	Title            string
	RequestingTeam   string
	RequesterName    string
	RequesterEmail   string
	Country          string
	ProductArea      string
	ProblemStatement string
	DesiredOutcome   string
	Hypothesis       string
	CustomerSegment  string
	InitiativeType   string
	StrategicTheme   string
	DeadlineDate     *time.Time
	Impact           ImpactTriple
	EffortTShirt     string
	EffortEngDays    *float64
	Risk             string
	IsMandatory      bool
	DependenciesText string

	// Lifecycle
	Status InitiativeStatus

	// Scoring state
	ActiveScoringFramework *ScoringFramework
	RICE                   ScoreTriple
	WSJF                   ScoreTriple
	Math                   ScoreTriple
	Active                 ScoreTriple

	// KPI state
	KPIContributionJSON         map[string]float64
	KPIContributionComputedJSON map[string]float64
	KPIContributionSource       *KPIContributionSource

	// Metric chain
	MetricChainJSON []string

	// Central-editable / product-owned fields
	UseMathModel                 bool
	LinkedObjectives             []string
	LLMNotes                     string
	StrategicPriorityCoefficient *float64

	// Optimization candidacy
	IsOptimizationCandidate bool
	CandidatePeriodKey      string
	EngineeringTokens       *int64
	DimCountry              string
	DimDepartment           string
	DimCategory             string
	DimProgram              string
	DimProduct              string
	DimSegment              string

	// Audit
	UpdatedSource        string
	UpdatedAt            time.Time
	ScoringUpdatedSource string
	ScoringUpdatedAt     time.Time
}

// Clone returns a deep-enough copy for safe mutation in tests and sync
// pipelines (slices/maps are copied; nested pointers to scalars are
// re-allocated).
func (in Initiative) Clone() Initiative {
	out := in
	if in.DeadlineDate != nil {
		t := *in.DeadlineDate
		out.DeadlineDate = &t
	}
	if in.KPIContributionJSON != nil {
		out.KPIContributionJSON = make(map[string]float64, len(in.KPIContributionJSON))
		for k, v := range in.KPIContributionJSON {
			out.KPIContributionJSON[k] = v
		}
	}
	if in.KPIContributionComputedJSON != nil {
		out.KPIContributionComputedJSON = make(map[string]float64, len(in.KPIContributionComputedJSON))
		for k, v := range in.KPIContributionComputedJSON {
			out.KPIContributionComputedJSON[k] = v
		}
	}
	if in.MetricChainJSON != nil {
		out.MetricChainJSON = append([]string(nil), in.MetricChainJSON...)
	}
	if in.LinkedObjectives != nil {
		out.LinkedObjectives = append([]string(nil), in.LinkedObjectives...)
	}
	return out
}

// MathModel is one math-model owned by an Initiative (1:N).
type MathModel struct {
	ID              int64
	InitiativeID    int64
	ModelName       string
	TargetKPIKey    string
	MetricChainText string
	FormulaText     string
	AssumptionsText string
	IsPrimary       bool
	ApprovedByUser  bool
	SuggestedByLLM  bool
	ComputedScore   *float64
	LastComputedAt  *time.Time
}

// Param is a normalized (initiative_key, framework, param_name[, model_name])
// row feeding either the RICE/WSJF engines or a math model's env.
type Param struct {
	ID            int64
	InitiativeKey string
	Framework     string
	ParamName     string
	ModelName     string // empty for framework-level params
	Value         *float64
	ParamDisplay  string
	Description   string
	Unit          string
	Min           *float64
	Max           *float64
	Source        string
	Approved      bool
	IsAutoSeeded  bool
	Notes         string
}

// Key returns the natural unique key for a Param row.
func (p Param) Key() string {
	return p.InitiativeKey + "|" + p.Framework + "|" + p.ParamName + "|" + p.ModelName
}

// ScoreHistory is an optional append-only record of one scoring run.
type ScoreHistory struct {
	ID            int64
	InitiativeID  int64
	FrameworkName string
	ValueScore    *float64
	EffortScore   *float64
	OverallScore  *float64
	InputsJSON    map[string]float64
	CreatedAt     time.Time
}
