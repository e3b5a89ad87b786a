// Package memory is a thread-safe in-memory persistence layer implementing
// the storage interfaces declared in internal/app/storage, grounded on the
// teacher's internal/app/storage/memory.go (one exported Memory type, one
// map per aggregate, clone-on-read/clone-on-write to avoid aliasing). It is
// intended for tests and prototyping and deliberately keeps the
// implementation simple.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
)

// Memory implements every storage interface over plain Go maps.
type Memory struct {
	mu sync.RWMutex

	nextID int64

	initiatives      map[int64]domain.Initiative
	initiativesByKey map[string]int64
	initiativeSeq    int64

	mathModels map[int64]domain.MathModel

	params map[int64]domain.Param

	scoreHistory map[int64]domain.ScoreHistory

	metricConfigs map[string]domain.OrganizationMetricConfig

	scenarios      map[string]domain.OptimizationScenario
	constraintSets map[string]domain.OptimizationConstraintSet
	runs           map[string]domain.OptimizationRun
	runsBySeq      map[int64]string
	portfolios     map[int64]domain.Portfolio
	portfolioByRun map[int64]int64

	actionRuns map[string]domain.ActionRun
}

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{
		nextID:           1,
		initiatives:      make(map[int64]domain.Initiative),
		initiativesByKey: make(map[string]int64),
		mathModels:       make(map[int64]domain.MathModel),
		params:           make(map[int64]domain.Param),
		scoreHistory:     make(map[int64]domain.ScoreHistory),
		metricConfigs:    make(map[string]domain.OrganizationMetricConfig),
		scenarios:        make(map[string]domain.OptimizationScenario),
		constraintSets:   make(map[string]domain.OptimizationConstraintSet),
		runs:             make(map[string]domain.OptimizationRun),
		runsBySeq:        make(map[int64]string),
		portfolios:       make(map[int64]domain.Portfolio),
		portfolioByRun:   make(map[int64]int64),
		actionRuns:       make(map[string]domain.ActionRun),
	}
}

func (m *Memory) nextIDLocked() int64 {
	id := m.nextID
	m.nextID++
	return id
}

var (
	_ storage.InitiativeStore   = (*Memory)(nil)
	_ storage.MathModelStore    = (*Memory)(nil)
	_ storage.ParamStore        = (*Memory)(nil)
	_ storage.ScoreHistoryStore = (*Memory)(nil)
	_ storage.MetricConfigStore = (*Memory)(nil)
	_ storage.OptimizationStore = (*Memory)(nil)
	_ storage.ActionRunStore    = (*Memory)(nil)
)

// InitiativeStore implementation ----------------------------------------------

func (m *Memory) CreateInitiative(_ context.Context, in domain.Initiative) (domain.Initiative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if in.ID == 0 {
		in.ID = m.nextIDLocked()
	} else if _, exists := m.initiatives[in.ID]; exists {
		return domain.Initiative{}, fmt.Errorf("initiative %d already exists", in.ID)
	}
	if _, exists := m.initiativesByKey[in.InitiativeKey]; in.InitiativeKey != "" && exists {
		return domain.Initiative{}, fmt.Errorf("initiative key %s already exists", in.InitiativeKey)
	}

	in.UpdatedAt = time.Now().UTC()
	m.initiatives[in.ID] = in.Clone()
	if in.InitiativeKey != "" {
		m.initiativesByKey[in.InitiativeKey] = in.ID
	}
	return in.Clone(), nil
}

func (m *Memory) UpdateInitiative(_ context.Context, in domain.Initiative) (domain.Initiative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.initiatives[in.ID]
	if !ok {
		return domain.Initiative{}, fmt.Errorf("initiative %d not found", in.ID)
	}

	in.SourceSheetID = original.SourceSheetID
	in.SourceTabName = original.SourceTabName
	in.UpdatedAt = time.Now().UTC()

	m.initiatives[in.ID] = in.Clone()
	if in.InitiativeKey != "" {
		m.initiativesByKey[in.InitiativeKey] = in.ID
	}
	return in.Clone(), nil
}

func (m *Memory) GetInitiative(_ context.Context, id int64) (domain.Initiative, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	in, ok := m.initiatives[id]
	if !ok {
		return domain.Initiative{}, fmt.Errorf("initiative %d not found", id)
	}
	return in.Clone(), nil
}

func (m *Memory) GetInitiativeByKey(_ context.Context, key string) (domain.Initiative, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.initiativesByKey[key]
	if !ok {
		return domain.Initiative{}, fmt.Errorf("initiative %s not found", key)
	}
	return m.initiatives[id].Clone(), nil
}

func (m *Memory) ListInitiatives(_ context.Context) ([]domain.Initiative, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.Initiative, 0, len(m.initiatives))
	for _, in := range m.initiatives {
		result = append(result, in.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ListInitiativesByStatus(_ context.Context, status domain.InitiativeStatus) ([]domain.Initiative, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.Initiative, 0)
	for _, in := range m.initiatives {
		if in.Status == status {
			result = append(result, in.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ListOptimizationCandidates(_ context.Context, periodKey string) ([]domain.Initiative, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.Initiative, 0)
	for _, in := range m.initiatives {
		if in.IsOptimizationCandidate && in.CandidatePeriodKey == periodKey {
			result = append(result, in.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) NextInitiativeKey(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initiativeSeq++
	return fmt.Sprintf("INIT-%06d", m.initiativeSeq), nil
}

// MathModelStore implementation ------------------------------------------------

func (m *Memory) UpsertMathModel(_ context.Context, model domain.MathModel) (domain.MathModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.mathModels {
		if existing.InitiativeID == model.InitiativeID && existing.ModelName == model.ModelName {
			model.ID = id
			m.mathModels[id] = model
			return model, nil
		}
	}

	model.ID = m.nextIDLocked()
	m.mathModels[model.ID] = model
	return model, nil
}

func (m *Memory) ListMathModelsByInitiative(_ context.Context, initiativeID int64) ([]domain.MathModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.MathModel, 0)
	for _, model := range m.mathModels {
		if model.InitiativeID == initiativeID {
			result = append(result, model)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetPrimaryMathModel(_ context.Context, initiativeID int64) (domain.MathModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, model := range m.mathModels {
		if model.InitiativeID == initiativeID && model.IsPrimary {
			return model, nil
		}
	}
	return domain.MathModel{}, fmt.Errorf("no primary math model for initiative %d", initiativeID)
}

// ParamStore implementation -----------------------------------------------------

func (m *Memory) UpsertParam(_ context.Context, p domain.Param) (domain.Param, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.params {
		if existing.Key() == p.Key() {
			p.ID = id
			m.params[id] = p
			return p, nil
		}
	}

	p.ID = m.nextIDLocked()
	m.params[p.ID] = p
	return p, nil
}

func (m *Memory) ListParamsByInitiative(_ context.Context, initiativeKey string) ([]domain.Param, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.Param, 0)
	for _, p := range m.params {
		if p.InitiativeKey == initiativeKey {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ListParamsByFramework(_ context.Context, initiativeKey, framework string) ([]domain.Param, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.Param, 0)
	for _, p := range m.params {
		if p.InitiativeKey == initiativeKey && p.Framework == framework {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ScoreHistoryStore implementation ----------------------------------------------

func (m *Memory) AppendScoreHistory(_ context.Context, h domain.ScoreHistory) (domain.ScoreHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h.ID = m.nextIDLocked()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	m.scoreHistory[h.ID] = h
	return h, nil
}

func (m *Memory) ListScoreHistory(_ context.Context, initiativeID int64) ([]domain.ScoreHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.ScoreHistory, 0)
	for _, h := range m.scoreHistory {
		if h.InitiativeID == initiativeID {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// MetricConfigStore implementation -----------------------------------------------

func (m *Memory) UpsertMetricConfig(_ context.Context, cfg domain.OrganizationMetricConfig) (domain.OrganizationMetricConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.metricConfigs[cfg.KPIKey]; ok {
		cfg.ID = existing.ID
	} else {
		cfg.ID = m.nextIDLocked()
	}
	m.metricConfigs[cfg.KPIKey] = cfg
	return cfg, nil
}

func (m *Memory) GetMetricConfig(_ context.Context, kpiKey string) (domain.OrganizationMetricConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.metricConfigs[kpiKey]
	if !ok {
		return domain.OrganizationMetricConfig{}, fmt.Errorf("metric config %s not found", kpiKey)
	}
	return cfg, nil
}

func (m *Memory) ListMetricConfigs(_ context.Context) ([]domain.OrganizationMetricConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.OrganizationMetricConfig, 0, len(m.metricConfigs))
	for _, cfg := range m.metricConfigs {
		result = append(result, cfg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].KPIKey < result[j].KPIKey })
	return result, nil
}

func (m *Memory) ListActiveMetricConfigs(_ context.Context) ([]domain.OrganizationMetricConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.OrganizationMetricConfig, 0)
	for _, cfg := range m.metricConfigs {
		if cfg.IsActive {
			result = append(result, cfg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].KPIKey < result[j].KPIKey })
	return result, nil
}

// OptimizationStore implementation -----------------------------------------------

func (m *Memory) UpsertScenario(_ context.Context, sc domain.OptimizationScenario) (domain.OptimizationScenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.scenarios[sc.Name]; ok {
		sc.ID = existing.ID
	} else {
		sc.ID = m.nextIDLocked()
	}
	m.scenarios[sc.Name] = sc
	return sc, nil
}

func (m *Memory) GetScenario(_ context.Context, name string) (domain.OptimizationScenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sc, ok := m.scenarios[name]
	if !ok {
		return domain.OptimizationScenario{}, fmt.Errorf("scenario %s not found", name)
	}
	return sc, nil
}

func (m *Memory) ListScenarios(_ context.Context) ([]domain.OptimizationScenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.OptimizationScenario, 0, len(m.scenarios))
	for _, sc := range m.scenarios {
		result = append(result, sc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func constraintSetKey(scenarioName, name string) string {
	return scenarioName + "|" + name
}

func (m *Memory) UpsertConstraintSet(_ context.Context, c domain.OptimizationConstraintSet) (domain.OptimizationConstraintSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := constraintSetKey(c.ScenarioName, c.Name)
	if existing, ok := m.constraintSets[key]; ok {
		c.ID = existing.ID
	} else {
		c.ID = m.nextIDLocked()
	}
	m.constraintSets[key] = c
	return c, nil
}

func (m *Memory) GetConstraintSet(_ context.Context, scenarioName, name string) (domain.OptimizationConstraintSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.constraintSets[constraintSetKey(scenarioName, name)]
	if !ok {
		return domain.OptimizationConstraintSet{}, fmt.Errorf("constraint set %s/%s not found", scenarioName, name)
	}
	return c, nil
}

func (m *Memory) CreateRun(_ context.Context, r domain.OptimizationRun) (domain.OptimizationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[r.RunID]; exists {
		return domain.OptimizationRun{}, fmt.Errorf("run %s already exists", r.RunID)
	}
	r.ID = m.nextIDLocked()
	m.runs[r.RunID] = r
	m.runsBySeq[r.ID] = r.RunID
	return r, nil
}

func (m *Memory) UpdateRun(_ context.Context, r domain.OptimizationRun) (domain.OptimizationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.runs[r.RunID]
	if !ok {
		return domain.OptimizationRun{}, fmt.Errorf("run %s not found", r.RunID)
	}
	r.ID = existing.ID
	m.runs[r.RunID] = r
	return r, nil
}

func (m *Memory) GetRun(_ context.Context, runID string) (domain.OptimizationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[runID]
	if !ok {
		return domain.OptimizationRun{}, fmt.Errorf("run %s not found", runID)
	}
	return r, nil
}

func (m *Memory) ListRunsByScenario(_ context.Context, scenarioID int64) ([]domain.OptimizationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.OptimizationRun, 0)
	for _, r := range m.runs {
		if r.ScenarioID == scenarioID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *Memory) SavePortfolio(_ context.Context, p domain.Portfolio) (domain.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.nextIDLocked()
	m.portfolios[p.ID] = p
	m.portfolioByRun[p.RunID] = p.ID
	return p, nil
}

func (m *Memory) GetPortfolioByRun(_ context.Context, runID int64) (domain.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.portfolioByRun[runID]
	if !ok {
		return domain.Portfolio{}, fmt.Errorf("portfolio for run %d not found", runID)
	}
	return m.portfolios[id], nil
}

// ActionRunStore implementation --------------------------------------------------

func (m *Memory) EnqueueActionRun(_ context.Context, r domain.ActionRun) (domain.ActionRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.actionRuns[r.RunID]; exists {
		return domain.ActionRun{}, fmt.Errorf("action run %s already exists", r.RunID)
	}
	r.ID = m.nextIDLocked()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = domain.ActionStatusQueued
	}
	m.actionRuns[r.RunID] = r
	return r, nil
}

func (m *Memory) GetActionRun(_ context.Context, runID string) (domain.ActionRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.actionRuns[runID]
	if !ok {
		return domain.ActionRun{}, fmt.Errorf("action run %s not found", runID)
	}
	return r, nil
}

func (m *Memory) ListActionRuns(_ context.Context, status domain.ActionRunStatus, limit int) ([]domain.ActionRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.ActionRun, 0)
	for _, r := range m.actionRuns {
		if status == "" || r.Status == status {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *Memory) ClaimNextActionRun(_ context.Context) (domain.ActionRun, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var oldest *domain.ActionRun
	for key, r := range m.actionRuns {
		if r.Status != domain.ActionStatusQueued {
			continue
		}
		if oldest == nil || r.CreatedAt.Before(oldest.CreatedAt) {
			cp := m.actionRuns[key]
			oldest = &cp
		}
	}
	if oldest == nil {
		return domain.ActionRun{}, false, nil
	}

	now := time.Now().UTC()
	oldest.Status = domain.ActionStatusRunning
	oldest.StartedAt = &now
	m.actionRuns[oldest.RunID] = *oldest
	return *oldest, true, nil
}

func (m *Memory) FinishActionRun(_ context.Context, runID string, status domain.ActionRunStatus, resultJSON, errorText string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.actionRuns[runID]
	if !ok {
		return fmt.Errorf("action run %s not found", runID)
	}
	r.Status = status
	r.ErrorText = errorText
	if resultJSON != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(resultJSON), &parsed); err == nil {
			r.ResultJSON = parsed
		}
	}
	r.FinishedAt = &finishedAt
	m.actionRuns[runID] = r
	return nil
}

func (m *Memory) ListStuckActionRuns(_ context.Context, olderThan time.Time) ([]domain.ActionRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.ActionRun, 0)
	for _, r := range m.actionRuns {
		if r.Status == domain.ActionStatusRunning && r.StartedAt != nil && r.StartedAt.Before(olderThan) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.Before(*result[j].StartedAt) })
	return result, nil
}

func (m *Memory) RequeueActionRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.actionRuns[runID]
	if !ok {
		return fmt.Errorf("action run %s not found", runID)
	}
	r.Status = domain.ActionStatusQueued
	r.StartedAt = nil
	m.actionRuns[runID] = r
	return nil
}
