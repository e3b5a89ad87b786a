package scoring

import (
	"context"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
)

// KPIAdapter implements the KPI Contribution Adapter (spec.md §4.8): groups
// an initiative's math models by target_kpi_key, picks one representative
// per group (representative wins — scores are never summed across models
// for the same KPI), and folds the result into the active KPI registry.
type KPIAdapter struct {
	Initiatives storage.InitiativeStore
	MathModels  storage.MathModelStore
	Metrics     storage.MetricConfigStore
}

// ContributionResult is the outcome of UpdateInitiativeContributions
// (spec.md §4.8: "{updated, skipped_due_to_override, invalid_kpis[],
// computed_keys[]}").
type ContributionResult struct {
	Updated              bool
	SkippedDueToOverride bool
	InvalidKPIs          []string
	ComputedKeys         []string
}

// ComputeKPIContributions implements compute_kpi_contributions: drops
// groups whose target_kpi_key is not present in the active registry or
// whose level is not eligible (north_star or strategic), recording the
// dropped keys.
func (a *KPIAdapter) ComputeKPIContributions(ctx context.Context, initiativeID int64) (map[string]float64, []string, error) {
	models, err := a.MathModels.ListMathModelsByInitiative(ctx, initiativeID)
	if err != nil {
		return nil, nil, err
	}
	registry, err := a.eligibleRegistry(ctx)
	if err != nil {
		return nil, nil, err
	}

	groups := make(map[string][]domain.MathModel)
	for _, m := range models {
		if m.TargetKPIKey == "" {
			continue
		}
		groups[m.TargetKPIKey] = append(groups[m.TargetKPIKey], m)
	}

	contributions := make(map[string]float64)
	var invalid []string
	for kpiKey, group := range groups {
		if !registry[kpiKey] {
			invalid = append(invalid, kpiKey)
			continue
		}
		rep, ok := representativeByScore(group)
		if !ok {
			continue
		}
		contributions[kpiKey] = *rep.ComputedScore
	}
	return contributions, invalid, nil
}

// representativeByScore picks the is_primary model if the group has one,
// else the model with the highest computed_score (spec.md §4.8). A group
// whose primary model has no computed score yields no representative.
func representativeByScore(models []domain.MathModel) (domain.MathModel, bool) {
	for _, m := range models {
		if m.IsPrimary {
			if m.ComputedScore == nil {
				return domain.MathModel{}, false
			}
			return m, true
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

func (a *KPIAdapter) eligibleRegistry(ctx context.Context) (map[string]bool, error) {
	configs, err := a.Metrics.ListActiveMetricConfigs(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(configs))
	for _, c := range configs {
		if c.KPILevel.EligibleForContribution() {
			set[c.KPIKey] = true
		}
	}
	return set, nil
}

// UpdateInitiativeContributions implements update_initiative_contributions:
// kpi_contribution_computed_json is always overwritten; kpi_contribution_json
// is overwritten only if the current source is not pm_override, in which
// case the source is stamped "computed". When commit is false, in is
// mutated in place but never persisted — score_initiative_all_frameworks
// passes commit=false and relies on its own trailing UpdateInitiative call
// as the single point of persistence for the whole pipeline.
func (a *KPIAdapter) UpdateInitiativeContributions(ctx context.Context, in *domain.Initiative, commit bool) (ContributionResult, error) {
	contributions, invalid, err := a.ComputeKPIContributions(ctx, in.ID)
	if err != nil {
		return ContributionResult{}, err
	}

	in.KPIContributionComputedJSON = contributions
	result := ContributionResult{InvalidKPIs: invalid}

	isOverride := in.KPIContributionSource != nil && *in.KPIContributionSource == domain.KPIContribSourcePMOverride
	if isOverride {
		result.SkippedDueToOverride = true
	} else {
		in.KPIContributionJSON = contributions
		source := domain.KPIContribSourceComputed
		in.KPIContributionSource = &source
		in.ScoringUpdatedSource = "kpi_contribution_adapter"
		in.ScoringUpdatedAt = time.Now().UTC()
		result.Updated = true
	}
	for k := range contributions {
		result.ComputedKeys = append(result.ComputedKeys, k)
	}

	if commit {
		updated, err := a.Initiatives.UpdateInitiative(ctx, *in)
		if err != nil {
			return result, err
		}
		*in = updated
	}
	return result, nil
}
