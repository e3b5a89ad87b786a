package jobs

import (
	"context"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/formula"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/suggest"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// applyLLMOwnedColumns writes the only InitiativeMathModel fields
// "pm.suggest_math_model_llm" may write — everything else on a model row is
// user-owned (spec.md §4.5 ProductOps/MathModels: "never overwrites user
// columns with LLM suggestions").
func applyLLMOwnedColumns(existing domain.MathModel, s suggest.ModelSuggestion) domain.MathModel {
	existing.ModelName = s.ModelName
	existing.TargetKPIKey = s.TargetKPIKey
	existing.MetricChainText = s.MetricChainText
	existing.FormulaText = s.FormulaText
	existing.AssumptionsText = s.AssumptionsText
	existing.SuggestedByLLM = true
	return existing
}

// findModelByName returns the model named name among models, if any.
func findModelByName(models []domain.MathModel, name string) (domain.MathModel, bool) {
	for _, m := range models {
		if m.ModelName == name {
			return m, true
		}
	}
	return domain.MathModel{}, false
}

// SuggestMathModelLLMJob implements "pm.suggest_math_model_llm" (spec.md
// §6.3): call the Suggestion capability for each selected initiative that
// has no formula yet, writing only the LLM-owned columns of the resulting
// InitiativeMathModel row (spec.md §8's "skip rows with existing formula or
// insufficient context" guard, and the per-handler `max_llm_calls` cap).
type SuggestMathModelLLMJob struct {
	Initiatives storage.InitiativeStore
	MathModels  storage.MathModelStore
	Client      suggest.Client
	Limits      suggest.Limits
	Log         *logger.Logger
}

func hasExistingFormula(models []domain.MathModel) bool {
	for _, m := range models {
		if m.FormulaText != "" {
			return true
		}
	}
	return false
}

func (j *SuggestMathModelLLMJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	counts := summaryCounts{SelectedCount: len(actx.Scope)}
	if len(actx.Scope) == 0 {
		return counts.toMap(), nil
	}

	northStar, _ := actx.Options["north_star_kpi_key"].(string)
	maxLines, _ := actx.Options["max_formula_lines"].(int)

	callsMade := 0
	for _, key := range actx.Scope {
		in, err := j.Initiatives.GetInitiativeByKey(ctx, key)
		if err != nil {
			counts.FailedCount++
			continue
		}

		models, err := j.MathModels.ListMathModelsByInitiative(ctx, in.ID)
		if err != nil {
			counts.FailedCount++
			continue
		}
		if hasExistingFormula(models) {
			counts.SkippedCount++
			continue
		}
		if in.ProblemStatement == "" && in.DesiredOutcome == "" && in.Hypothesis == "" {
			counts.SkippedCount++
			continue
		}
		if !j.Limits.Allow(callsMade) {
			counts.SkippedCount++
			continue
		}

		suggestion, err := j.Client.SuggestMathModel(ctx, suggest.ModelRequest{
			InitiativeKey:    in.InitiativeKey,
			Title:            in.Title,
			ProblemStatement: in.ProblemStatement,
			DesiredOutcome:   in.DesiredOutcome,
			Hypothesis:       in.Hypothesis,
			NorthStarKPIKey:  northStar,
			MaxLines:         maxLines,
		})
		callsMade++
		if err != nil {
			counts.FailedCount++
			if j.Log != nil {
				j.Log.WithField("initiative_key", key).WithError(err).Warn("suggest_math_model_llm: suggestion failed")
			}
			continue
		}

		existing, _ := findModelByName(models, suggestion.ModelName)
		existing.InitiativeID = in.ID
		model := applyLLMOwnedColumns(existing, suggestion)
		if _, err := j.MathModels.UpsertMathModel(ctx, model); err != nil {
			counts.FailedCount++
			continue
		}
		counts.SavedCount++
	}

	result := counts.toMap()
	result["llm_calls"] = callsMade
	return result, nil
}

// SeedMathParamsJob implements "pm.seed_math_params" (spec.md §6.3): parse
// every approved formula's identifiers via the formula evaluator's
// ExtractIdentifiers and append a Param row (unapproved, auto-seeded) for
// any identifier not already backed by a param on that model.
type SeedMathParamsJob struct {
	Initiatives storage.InitiativeStore
	MathModels  storage.MathModelStore
	Params      storage.ParamStore
	Log         *logger.Logger
}

func (j *SeedMathParamsJob) Handle(ctx context.Context, actx action.Context) (map[string]any, error) {
	counts := summaryCounts{SelectedCount: len(actx.Scope)}
	if len(actx.Scope) == 0 {
		return counts.toMap(), nil
	}

	for _, key := range actx.Scope {
		in, err := j.Initiatives.GetInitiativeByKey(ctx, key)
		if err != nil {
			counts.FailedCount++
			continue
		}

		models, err := j.MathModels.ListMathModelsByInitiative(ctx, in.ID)
		if err != nil {
			counts.FailedCount++
			continue
		}

		existingParams, err := j.Params.ListParamsByFramework(ctx, in.InitiativeKey, string(domain.FrameworkMathModel))
		if err != nil {
			counts.FailedCount++
			continue
		}
		haveParam := make(map[string]bool, len(existingParams))
		for _, p := range existingParams {
			haveParam[p.ModelName+"|"+p.ParamName] = true
		}

		seededAny := false
		for _, model := range models {
			if !model.ApprovedByUser || model.FormulaText == "" {
				continue
			}
			identifiers, err := formula.ExtractIdentifiers(model.FormulaText)
			if err != nil {
				counts.FailedCount++
				if j.Log != nil {
					j.Log.WithField("initiative_key", key).WithField("model_name", model.ModelName).WithError(err).Warn("seed_math_params: formula parse failed")
				}
				continue
			}
			for _, name := range identifiers {
				if haveParam[model.ModelName+"|"+name] {
					continue
				}
				_, err := j.Params.UpsertParam(ctx, domain.Param{
					InitiativeKey: in.InitiativeKey,
					Framework:     string(domain.FrameworkMathModel),
					ParamName:     name,
					ModelName:     model.ModelName,
					Source:        "seed_math_params",
					IsAutoSeeded:  true,
					Approved:      false,
				})
				if err != nil {
					counts.FailedCount++
					continue
				}
				haveParam[model.ModelName+"|"+name] = true
				seededAny = true
			}
		}
		if seededAny {
			counts.SavedCount++
		} else {
			counts.SkippedCount++
		}
	}
	return counts.toMap(), nil
}
