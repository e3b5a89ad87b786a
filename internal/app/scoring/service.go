package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// Service implements the Scoring Service (spec.md §4.7): drives the
// per-framework engines against an initiative's approved params, writes
// the per-framework triple, and -- only on explicit activation -- copies
// the chosen framework's triple into the initiative's active fields.
type Service struct {
	Initiatives   storage.InitiativeStore
	Params        storage.ParamStore
	MathModels    storage.MathModelStore
	History       storage.ScoreHistoryStore
	Metrics       storage.MetricConfigStore
	Adapter       *KPIAdapter
	EnableHistory bool
}

// BatchResult summarizes a compute_all_frameworks / compute_for_initiatives
// run: how many initiatives scored cleanly and which ones failed.
type BatchResult struct {
	Scored int
	Failed int
	Errors []string
}

// ScoreInitiative implements score_initiative: compute framework's engine
// against in's approved params and write the per-framework triple. On
// activate, additionally copy the fresh triple into the active fields and
// stamp scoring_updated_source = source.
func (s *Service) ScoreInitiative(ctx context.Context, in domain.Initiative, framework domain.ScoringFramework, activate bool, source string) (domain.Initiative, ScoreResult, error) {
	engine, err := EngineFor(framework)
	if err != nil {
		return in, ScoreResult{}, err
	}

	inputs, err := s.buildInputs(ctx, in, framework, "")
	if err != nil {
		return in, ScoreResult{}, err
	}

	result, err := engine.Compute(ctx, inputs)
	if err != nil {
		return in, ScoreResult{}, err
	}

	out := in.Clone()
	writeTriple(&out, framework, result)

	if activate {
		fw := framework
		out.ActiveScoringFramework = &fw
		out.Active = tripleFor(out, framework)
		out.ScoringUpdatedSource = source
		out.ScoringUpdatedAt = time.Now().UTC()
	}

	if s.EnableHistory && s.History != nil {
		_, _ = s.History.AppendScoreHistory(ctx, domain.ScoreHistory{
			InitiativeID:  in.ID,
			FrameworkName: string(framework),
			ValueScore:    ptr(result.ValueScore),
			EffortScore:   ptr(result.EffortScore),
			OverallScore:  ptr(result.OverallScore),
			InputsJSON:    result.RawInputsMap,
			CreatedAt:     time.Now().UTC(),
		})
	}

	updated, err := s.Initiatives.UpdateInitiative(ctx, out)
	return updated, result, err
}

// ScoreInitiativeAllFrameworks implements score_initiative_all_frameworks:
// compute RICE and WSJF unconditionally (a missing framework's params just
// leave that triple unset, not an error — not every initiative has every
// framework's inputs filled in), and, if use_math_model, score every owned
// math model and invoke the KPI Contribution Adapter with commit=false.
func (s *Service) ScoreInitiativeAllFrameworks(ctx context.Context, in domain.Initiative) (domain.Initiative, error) {
	out := in.Clone()

	if inputs, err := s.buildInputs(ctx, in, domain.FrameworkRICE, ""); err == nil {
		if r, err := (RICEEngine{}).Compute(ctx, inputs); err == nil {
			writeTriple(&out, domain.FrameworkRICE, r)
		}
	}
	if inputs, err := s.buildInputs(ctx, in, domain.FrameworkWSJF, ""); err == nil {
		if r, err := (WSJFEngine{}).Compute(ctx, inputs); err == nil {
			writeTriple(&out, domain.FrameworkWSJF, r)
		}
	}

	if in.UseMathModel {
		if err := s.scoreAllMathModels(ctx, &out); err != nil {
			return out, err
		}
		if s.Adapter != nil {
			if _, err := s.Adapter.UpdateInitiativeContributions(ctx, &out, false); err != nil {
				return out, err
			}
		}
	}

	return s.Initiatives.UpdateInitiative(ctx, out)
}

// scoreAllMathModels scores every InitiativeMathModel owned by in,
// persisting computed_score/last_computed_at on each, then selects the
// representative model (spec.md §4.6: is_primary, else target_kpi_key ==
// active north_star, else highest computed_score) and writes its result
// into in's Math triple.
func (s *Service) scoreAllMathModels(ctx context.Context, in *domain.Initiative) error {
	models, err := s.MathModels.ListMathModelsByInitiative(ctx, in.ID)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return nil
	}

	now := time.Now().UTC()
	results := make(map[string]ScoreResult, len(models))
	for i, m := range models {
		inputs, err := s.buildInputs(ctx, *in, domain.FrameworkMathModel, m.ModelName)
		if err != nil {
			continue
		}
		inputs.FormulaText = m.FormulaText

		result, err := (MathModelEngine{}).Compute(ctx, inputs)
		if err != nil {
			continue
		}
		results[m.ModelName] = result

		m.ComputedScore = ptr(result.OverallScore)
		m.LastComputedAt = &now
		updated, err := s.MathModels.UpsertMathModel(ctx, m)
		if err != nil {
			return err
		}
		models[i] = updated
	}

	northStarKey, err := s.activeNorthStarKey(ctx)
	if err != nil {
		return err
	}
	rep, ok := SelectRepresentativeModel(models, northStarKey)
	if !ok {
		return nil
	}
	if result, ok := results[rep.ModelName]; ok {
		writeTriple(in, domain.FrameworkMathModel, result)
	}
	return nil
}

// SelectRepresentativeModel implements the representative-score-selection
// rule shared by the Scoring Service and the KPI Contribution Adapter
// (spec.md §4.6): the is_primary=true model, else the model whose
// target_kpi_key equals the active north_star, else the highest
// computed_score.
func SelectRepresentativeModel(models []domain.MathModel, northStarKey string) (domain.MathModel, bool) {
	for _, m := range models {
		if m.IsPrimary {
			return m, true
		}
	}
	if northStarKey != "" {
		for _, m := range models {
			if m.TargetKPIKey == northStarKey {
				return m, true
			}
		}
	}
	var best domain.MathModel
	found := false
	for _, m := range models {
		if m.ComputedScore == nil {
			continue
		}
		if !found || *m.ComputedScore > *best.ComputedScore {
			best = m
			found = true
		}
	}
	return best, found
}

func (s *Service) activeNorthStarKey(ctx context.Context) (string, error) {
	if s.Metrics == nil {
		return "", nil
	}
	configs, err := s.Metrics.ListActiveMetricConfigs(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range configs {
		if c.KPILevel == domain.MetricLevelNorthStar {
			return c.KPIKey, nil
		}
	}
	return "", nil
}

// ActivateInitiativeFramework implements activate_initiative_framework:
// copy {framework}_{value,effort,overall}_score into the active fields;
// clear the active fields if the chosen framework carries no scores yet.
func (s *Service) ActivateInitiativeFramework(ctx context.Context, in domain.Initiative, framework domain.ScoringFramework, source string) (domain.Initiative, error) {
	out := in.Clone()
	triple := tripleFor(out, framework)

	if triple.Value == nil && triple.Effort == nil && triple.Overall == nil {
		out.Active = domain.ScoreTriple{}
		out.ActiveScoringFramework = nil
	} else {
		out.Active = triple
		fw := framework
		out.ActiveScoringFramework = &fw
	}
	out.ScoringUpdatedSource = source
	out.ScoringUpdatedAt = time.Now().UTC()

	return s.Initiatives.UpdateInitiative(ctx, out)
}

// ComputeAllFrameworks implements compute_all_frameworks: a batch driver
// over every initiative.
func (s *Service) ComputeAllFrameworks(ctx context.Context, commitEvery int, log *logger.Logger) (BatchResult, error) {
	all, err := s.Initiatives.ListInitiatives(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	return s.computeBatch(ctx, all, commitEvery, log), nil
}

// ComputeForInitiatives implements compute_for_initiatives: a batch driver
// scoped to the given initiative_keys; unknown keys are skipped rather than
// failing the whole batch.
func (s *Service) ComputeForInitiatives(ctx context.Context, keys []string, commitEvery int, log *logger.Logger) (BatchResult, error) {
	targets := make([]domain.Initiative, 0, len(keys))
	for _, key := range keys {
		in, err := s.Initiatives.GetInitiativeByKey(ctx, key)
		if err != nil {
			continue
		}
		targets = append(targets, in)
	}
	return s.computeBatch(ctx, targets, commitEvery, log), nil
}

func (s *Service) computeBatch(ctx context.Context, initiatives []domain.Initiative, commitEvery int, log *logger.Logger) BatchResult {
	var result BatchResult
	sinceCheckpoint := 0
	for _, in := range initiatives {
		if _, err := s.ScoreInitiativeAllFrameworks(ctx, in); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", in.InitiativeKey, err))
			continue
		}
		result.Scored++
		sinceCheckpoint++
		if commitEvery > 0 && sinceCheckpoint >= commitEvery {
			sinceCheckpoint = 0
			if log != nil {
				log.WithField("scored", result.Scored).Info("scoring batch checkpoint")
			}
		}
	}
	return result
}

// buildInputs assembles ScoreInputs for framework from in's approved
// params. modelName scopes the lookup to a single Math Model's own
// parameter rows; empty selects framework-level (non-model-scoped) rows.
func (s *Service) buildInputs(ctx context.Context, in domain.Initiative, framework domain.ScoringFramework, modelName string) (ScoreInputs, error) {
	params, err := s.Params.ListParamsByFramework(ctx, in.InitiativeKey, string(framework))
	if err != nil {
		return ScoreInputs{}, err
	}

	raw := make(map[string]float64, len(params))
	for _, p := range params {
		if !p.Approved || p.Value == nil {
			continue
		}
		if p.ModelName != modelName {
			continue
		}
		raw[p.ParamName] = *p.Value
	}

	return ScoreInputs{
		Params:                raw,
		RiskLevel:             in.Risk,
		EffortEngineeringDays: in.EffortEngDays,
	}, nil
}

func writeTriple(in *domain.Initiative, framework domain.ScoringFramework, r ScoreResult) {
	t := domain.ScoreTriple{Value: ptr(r.ValueScore), Effort: ptr(r.EffortScore), Overall: ptr(r.OverallScore)}
	switch framework {
	case domain.FrameworkRICE:
		in.RICE = t
	case domain.FrameworkWSJF:
		in.WSJF = t
	case domain.FrameworkMathModel:
		in.Math = t
	}
}

func tripleFor(in domain.Initiative, framework domain.ScoringFramework) domain.ScoreTriple {
	switch framework {
	case domain.FrameworkRICE:
		return in.RICE
	case domain.FrameworkWSJF:
		return in.WSJF
	case domain.FrameworkMathModel:
		return in.Math
	default:
		return domain.ScoreTriple{}
	}
}

func ptr(v float64) *float64 { return &v }
