package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
)

func TestRICEEngineDerivesConfidenceFromRisk(t *testing.T) {
	engine := RICEEngine{}
	result, err := engine.Compute(context.Background(), ScoreInputs{
		Params:    map[string]float64{"reach": 10000, "impact": 3, "effort": 20},
		RiskLevel: "medium",
	})
	require.NoError(t, err)
	assert.Equal(t, 10000.0*3*0.7, result.ValueScore)
	assert.Equal(t, 20.0, result.EffortScore)
	assert.InDelta(t, 1050.0, result.OverallScore, 0.001)
	assert.Len(t, result.Warnings, 1)
}

func TestRICEEngineUsesExplicitConfidence(t *testing.T) {
	engine := RICEEngine{}
	result, err := engine.Compute(context.Background(), ScoreInputs{
		Params: map[string]float64{"reach": 10000, "impact": 3, "confidence": 0.7, "effort": 20},
	})
	require.NoError(t, err)
	assert.Equal(t, 21000.0, result.ValueScore)
	assert.InDelta(t, 1050.0, result.OverallScore, 0.001)
	assert.Empty(t, result.Warnings)
}

func TestWSJFEngineComputesOverall(t *testing.T) {
	engine := WSJFEngine{}
	result, err := engine.Compute(context.Background(), ScoreInputs{
		Params: map[string]float64{"business_value": 5, "time_criticality": 3, "risk_reduction": 2, "job_size": 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.ValueScore)
	assert.Equal(t, 2.0, result.OverallScore)
}

func TestMathModelEngineEvaluatesFormula(t *testing.T) {
	engine := MathModelEngine{}
	effort := 4.0
	result, err := engine.Compute(context.Background(), ScoreInputs{
		Params:                map[string]float64{"monthly_users": 1000, "conversion": 0.02},
		EffortEngineeringDays: &effort,
		FormulaText:           "value = monthly_users * conversion",
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, result.ValueScore)
	assert.Equal(t, 4.0, result.EffortScore)
	assert.Equal(t, 5.0, result.OverallScore)
}

func TestEngineForRejectsUnknownFramework(t *testing.T) {
	_, err := EngineFor(domain.ScoringFramework("bogus"))
	assert.ErrorIs(t, err, ErrUnknownFramework)
}

func newServiceWithStore(t *testing.T) (*Service, *memory.Memory) {
	t.Helper()
	store := memory.New()
	adapter := &KPIAdapter{Initiatives: store, MathModels: store, Metrics: store}
	svc := &Service{
		Initiatives: store,
		Params:      store,
		MathModels:  store,
		History:     store,
		Metrics:     store,
		Adapter:     adapter,
	}
	return svc, store
}

func TestScoreInitiativeWritesPerFrameworkTripleWithoutActivating(t *testing.T) {
	svc, store := newServiceWithStore(t)
	ctx := context.Background()

	in, err := store.CreateInitiative(ctx, domain.Initiative{InitiativeKey: "INIT-000001", Risk: "low"})
	require.NoError(t, err)
	_, err = store.UpsertParam(ctx, domain.Param{InitiativeKey: "INIT-000001", Framework: "RICE", ParamName: "reach", Value: ptr(10000), Approved: true})
	require.NoError(t, err)
	_, err = store.UpsertParam(ctx, domain.Param{InitiativeKey: "INIT-000001", Framework: "RICE", ParamName: "impact", Value: ptr(3), Approved: true})
	require.NoError(t, err)
	_, err = store.UpsertParam(ctx, domain.Param{InitiativeKey: "INIT-000001", Framework: "RICE", ParamName: "confidence", Value: ptr(0.7), Approved: true})
	require.NoError(t, err)
	_, err = store.UpsertParam(ctx, domain.Param{InitiativeKey: "INIT-000001", Framework: "RICE", ParamName: "effort", Value: ptr(20), Approved: true})
	require.NoError(t, err)

	updated, result, err := svc.ScoreInitiative(ctx, in, domain.FrameworkRICE, false, "pm.score_selected")
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, result.OverallScore, 0.001)
	require.NotNil(t, updated.RICE.Overall)
	assert.InDelta(t, 1050.0, *updated.RICE.Overall, 0.001)
	assert.Nil(t, updated.Active.Overall)
	assert.Nil(t, updated.ActiveScoringFramework)
}

func TestActivateInitiativeFrameworkCopiesTripleAndStampsSource(t *testing.T) {
	svc, store := newServiceWithStore(t)
	ctx := context.Background()

	in, err := store.CreateInitiative(ctx, domain.Initiative{
		InitiativeKey: "INIT-000001",
		RICE:          domain.ScoreTriple{Value: ptr(21000), Effort: ptr(20), Overall: ptr(1050)},
	})
	require.NoError(t, err)

	updated, err := svc.ActivateInitiativeFramework(ctx, in, domain.FrameworkRICE, "flow2.activate")
	require.NoError(t, err)
	require.NotNil(t, updated.Active.Overall)
	assert.InDelta(t, 1050.0, *updated.Active.Overall, 0.001)
	require.NotNil(t, updated.ActiveScoringFramework)
	assert.Equal(t, domain.FrameworkRICE, *updated.ActiveScoringFramework)
	assert.Equal(t, "flow2.activate", updated.ScoringUpdatedSource)
}

func TestActivateInitiativeFrameworkClearsActiveWhenNoScores(t *testing.T) {
	svc, store := newServiceWithStore(t)
	ctx := context.Background()

	active := domain.FrameworkWSJF
	in, err := store.CreateInitiative(ctx, domain.Initiative{
		InitiativeKey:          "INIT-000001",
		ActiveScoringFramework: &active,
		Active:                 domain.ScoreTriple{Value: ptr(1), Effort: ptr(1), Overall: ptr(1)},
	})
	require.NoError(t, err)

	updated, err := svc.ActivateInitiativeFramework(ctx, in, domain.FrameworkRICE, "flow2.activate")
	require.NoError(t, err)
	assert.Nil(t, updated.Active.Overall)
	assert.Nil(t, updated.ActiveScoringFramework)
}

func TestKPIAdapterRepresentativeWinsAndPMOverrideBlocksOverwrite(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	source := domain.KPIContribSourcePMOverride
	in, err := store.CreateInitiative(ctx, domain.Initiative{
		InitiativeKey:         "INIT-000001",
		KPIContributionSource: &source,
	})
	require.NoError(t, err)

	_, err = store.UpsertMetricConfig(ctx, domain.OrganizationMetricConfig{KPIKey: "revenue", KPILevel: domain.MetricLevelNorthStar, IsActive: true})
	require.NoError(t, err)
	_, err = store.UpsertMetricConfig(ctx, domain.OrganizationMetricConfig{KPIKey: "internal_only", KPILevel: domain.MetricLevelOperational, IsActive: true})
	require.NoError(t, err)

	_, err = store.UpsertMathModel(ctx, domain.MathModel{InitiativeID: in.ID, ModelName: "primary", TargetKPIKey: "revenue", IsPrimary: true, ComputedScore: ptr(42)})
	require.NoError(t, err)
	_, err = store.UpsertMathModel(ctx, domain.MathModel{InitiativeID: in.ID, ModelName: "secondary", TargetKPIKey: "revenue", ComputedScore: ptr(99)})
	require.NoError(t, err)
	_, err = store.UpsertMathModel(ctx, domain.MathModel{InitiativeID: in.ID, ModelName: "offtopic", TargetKPIKey: "internal_only", ComputedScore: ptr(5)})
	require.NoError(t, err)

	adapter := &KPIAdapter{Initiatives: store, MathModels: store, Metrics: store}
	result, err := adapter.UpdateInitiativeContributions(ctx, &in, true)
	require.NoError(t, err)

	assert.True(t, result.SkippedDueToOverride)
	assert.False(t, result.Updated)
	assert.Equal(t, []string{"internal_only"}, result.InvalidKPIs)
	assert.Equal(t, 42.0, in.KPIContributionComputedJSON["revenue"])

	got, err := store.GetInitiativeByKey(ctx, "INIT-000001")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.KPIContributionComputedJSON["revenue"])
	assert.Nil(t, got.KPIContributionJSON)
	require.NotNil(t, got.KPIContributionSource)
	assert.Equal(t, domain.KPIContribSourcePMOverride, *got.KPIContributionSource)
}

func TestScoreInitiativeAllFrameworksScoresOwnedMathModels(t *testing.T) {
	svc, store := newServiceWithStore(t)
	ctx := context.Background()

	effort := 4.0
	in, err := store.CreateInitiative(ctx, domain.Initiative{
		InitiativeKey: "INIT-000001",
		UseMathModel:  true,
		EffortEngDays: &effort,
	})
	require.NoError(t, err)

	_, err = store.UpsertMathModel(ctx, domain.MathModel{
		InitiativeID: in.ID, ModelName: "primary", TargetKPIKey: "revenue",
		FormulaText: "value = base * rate", IsPrimary: true,
	})
	require.NoError(t, err)
	_, err = store.UpsertParam(ctx, domain.Param{InitiativeKey: "INIT-000001", Framework: "MATH_MODEL", ModelName: "primary", ParamName: "base", Value: ptr(100), Approved: true})
	require.NoError(t, err)
	_, err = store.UpsertParam(ctx, domain.Param{InitiativeKey: "INIT-000001", Framework: "MATH_MODEL", ModelName: "primary", ParamName: "rate", Value: ptr(2), Approved: true})
	require.NoError(t, err)

	updated, err := svc.ScoreInitiativeAllFrameworks(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, updated.Math.Overall)
	assert.Equal(t, 50.0, *updated.Math.Overall) // value=200, effort=4

	models, err := store.ListMathModelsByInitiative(ctx, in.ID)
	require.NoError(t, err)
	require.Len(t, models, 1)
	require.NotNil(t, models[0].ComputedScore)
	assert.Equal(t, 50.0, *models[0].ComputedScore)
}
