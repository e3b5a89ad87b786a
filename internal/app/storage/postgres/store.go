// Package postgres implements the storage interfaces backed by
// PostgreSQL, grounded on the teacher's internal/app/storage/postgres/
// store.go (plain database/sql + lib/pq, one exported method per
// operation, a shared rowScanner interface for single-row vs. multi-row
// scanning, toNullString/toNullTime helpers for optional columns).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
)

// Store implements every storage interface backed by a single *sql.DB.
type Store struct {
	db *sql.DB
}

var _ storage.InitiativeStore = (*Store)(nil)
var _ storage.MathModelStore = (*Store)(nil)
var _ storage.ParamStore = (*Store)(nil)
var _ storage.ScoreHistoryStore = (*Store)(nil)
var _ storage.MetricConfigStore = (*Store)(nil)
var _ storage.OptimizationStore = (*Store)(nil)
var _ storage.ActionRunStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func toNullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	ut := t.Time.UTC()
	return &ut
}

func toNullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func toNullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// --- InitiativeStore --------------------------------------------------------

const initiativeColumns = `
	id, initiative_key, source_sheet_id, source_tab_name, source_row_number,
	title, requesting_team, requester_name, requester_email, country,
	product_area, problem_statement, desired_outcome, hypothesis,
	customer_segment, initiative_type, strategic_theme, deadline_date,
	impact_low, impact_expected, impact_high, effort_tshirt, effort_eng_days,
	risk, is_mandatory, dependencies_text, status, active_scoring_framework,
	rice_value, rice_effort, rice_overall, wsjf_value, wsjf_effort, wsjf_overall,
	math_value, math_effort, math_overall, active_value, active_effort, active_overall,
	kpi_contribution_json, kpi_contribution_computed_json, kpi_contribution_source,
	metric_chain_json, use_math_model, linked_objectives_json, llm_notes,
	strategic_priority_coefficient, is_optimization_candidate, candidate_period_key,
	engineering_tokens, dim_country, dim_department, dim_category, dim_program,
	dim_product, dim_segment, updated_source, updated_at, scoring_updated_source,
	scoring_updated_at
`

func scanInitiative(s rowScanner) (domain.Initiative, error) {
	var (
		in                        domain.Initiative
		deadline                  sql.NullTime
		impactLow, impactExpected sql.NullFloat64
		impactHigh, effortEngDays sql.NullFloat64
		framework                 sql.NullString
		riceV, riceE, riceO       sql.NullFloat64
		wsjfV, wsjfE, wsjfO       sql.NullFloat64
		mathV, mathE, mathO       sql.NullFloat64
		activeV, activeE, activeO sql.NullFloat64
		kpiJSON, kpiComputedJSON  []byte
		kpiSource                 sql.NullString
		metricChainJSON           []byte
		priorityCoef              sql.NullFloat64
		engTokens                 sql.NullInt64
		linkedObjectivesJSON      []byte
	)

	if err := s.Scan(
		&in.ID, &in.InitiativeKey, &in.SourceSheetID, &in.SourceTabName, &in.SourceRowNumber,
		&in.Title, &in.RequestingTeam, &in.RequesterName, &in.RequesterEmail, &in.Country,
		&in.ProductArea, &in.ProblemStatement, &in.DesiredOutcome, &in.Hypothesis,
		&in.CustomerSegment, &in.InitiativeType, &in.StrategicTheme, &deadline,
		&impactLow, &impactExpected, &impactHigh, &in.EffortTShirt, &effortEngDays,
		&in.Risk, &in.IsMandatory, &in.DependenciesText, &in.Status, &framework,
		&riceV, &riceE, &riceO, &wsjfV, &wsjfE, &wsjfO,
		&mathV, &mathE, &mathO, &activeV, &activeE, &activeO,
		&kpiJSON, &kpiComputedJSON, &kpiSource,
		&metricChainJSON, &in.UseMathModel, &linkedObjectivesJSON, &in.LLMNotes,
		&priorityCoef, &in.IsOptimizationCandidate, &in.CandidatePeriodKey,
		&engTokens, &in.DimCountry, &in.DimDepartment, &in.DimCategory, &in.DimProgram,
		&in.DimProduct, &in.DimSegment, &in.UpdatedSource, &in.UpdatedAt, &in.ScoringUpdatedSource,
		&in.ScoringUpdatedAt,
	); err != nil {
		return domain.Initiative{}, err
	}

	in.DeadlineDate = fromNullTime(deadline)
	in.Impact.Low = fromNullFloat(impactLow)
	in.Impact.Expected = fromNullFloat(impactExpected)
	in.Impact.High = fromNullFloat(impactHigh)
	in.EffortEngDays = fromNullFloat(effortEngDays)
	if framework.Valid {
		f := domain.ScoringFramework(framework.String)
		in.ActiveScoringFramework = &f
	}
	in.RICE = domain.ScoreTriple{Value: fromNullFloat(riceV), Effort: fromNullFloat(riceE), Overall: fromNullFloat(riceO)}
	in.WSJF = domain.ScoreTriple{Value: fromNullFloat(wsjfV), Effort: fromNullFloat(wsjfE), Overall: fromNullFloat(wsjfO)}
	in.Math = domain.ScoreTriple{Value: fromNullFloat(mathV), Effort: fromNullFloat(mathE), Overall: fromNullFloat(mathO)}
	in.Active = domain.ScoreTriple{Value: fromNullFloat(activeV), Effort: fromNullFloat(activeE), Overall: fromNullFloat(activeO)}
	if len(kpiJSON) > 0 {
		_ = json.Unmarshal(kpiJSON, &in.KPIContributionJSON)
	}
	if len(kpiComputedJSON) > 0 {
		_ = json.Unmarshal(kpiComputedJSON, &in.KPIContributionComputedJSON)
	}
	if kpiSource.Valid {
		src := domain.KPIContributionSource(kpiSource.String)
		in.KPIContributionSource = &src
	}
	if len(metricChainJSON) > 0 {
		_ = json.Unmarshal(metricChainJSON, &in.MetricChainJSON)
	}
	if len(linkedObjectivesJSON) > 0 {
		_ = json.Unmarshal(linkedObjectivesJSON, &in.LinkedObjectives)
	}
	in.StrategicPriorityCoefficient = fromNullFloat(priorityCoef)
	in.EngineeringTokens = fromNullInt(engTokens)

	return in, nil
}

func (s *Store) CreateInitiative(ctx context.Context, in domain.Initiative) (domain.Initiative, error) {
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = time.Now().UTC()
	}
	kpiJSON, _ := marshalJSON(in.KPIContributionJSON)
	kpiComputedJSON, _ := marshalJSON(in.KPIContributionComputedJSON)
	metricChainJSON, _ := marshalJSON(in.MetricChainJSON)
	linkedObjectivesJSON, _ := marshalJSON(in.LinkedObjectives)

	var framework sql.NullString
	if in.ActiveScoringFramework != nil {
		framework = toNullString(string(*in.ActiveScoringFramework))
	}
	var kpiSource sql.NullString
	if in.KPIContributionSource != nil {
		kpiSource = toNullString(string(*in.KPIContributionSource))
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO initiatives (
			initiative_key, source_sheet_id, source_tab_name, source_row_number,
			title, requesting_team, requester_name, requester_email, country,
			product_area, problem_statement, desired_outcome, hypothesis,
			customer_segment, initiative_type, strategic_theme, deadline_date,
			impact_low, impact_expected, impact_high, effort_tshirt, effort_eng_days,
			risk, is_mandatory, dependencies_text, status, active_scoring_framework,
			rice_value, rice_effort, rice_overall, wsjf_value, wsjf_effort, wsjf_overall,
			math_value, math_effort, math_overall, active_value, active_effort, active_overall,
			kpi_contribution_json, kpi_contribution_computed_json, kpi_contribution_source,
			metric_chain_json, use_math_model, linked_objectives_json, llm_notes,
			strategic_priority_coefficient, is_optimization_candidate, candidate_period_key,
			engineering_tokens, dim_country, dim_department, dim_category, dim_program,
			dim_product, dim_segment, updated_source, updated_at, scoring_updated_source,
			scoring_updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,
			$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38,$39,$40,$41,$42,
			$43,$44,$45,$46,$47,$48,$49,$50,$51,$52,$53,$54,$55,$56,$57,$58,$59
		)
		RETURNING id
	`,
		in.InitiativeKey, in.SourceSheetID, in.SourceTabName, in.SourceRowNumber,
		in.Title, in.RequestingTeam, in.RequesterName, in.RequesterEmail, in.Country,
		in.ProductArea, in.ProblemStatement, in.DesiredOutcome, in.Hypothesis,
		in.CustomerSegment, in.InitiativeType, in.StrategicTheme, toNullTime(in.DeadlineDate),
		toNullFloat(in.Impact.Low), toNullFloat(in.Impact.Expected), toNullFloat(in.Impact.High),
		in.EffortTShirt, toNullFloat(in.EffortEngDays),
		in.Risk, in.IsMandatory, in.DependenciesText, in.Status, framework,
		toNullFloat(in.RICE.Value), toNullFloat(in.RICE.Effort), toNullFloat(in.RICE.Overall),
		toNullFloat(in.WSJF.Value), toNullFloat(in.WSJF.Effort), toNullFloat(in.WSJF.Overall),
		toNullFloat(in.Math.Value), toNullFloat(in.Math.Effort), toNullFloat(in.Math.Overall),
		toNullFloat(in.Active.Value), toNullFloat(in.Active.Effort), toNullFloat(in.Active.Overall),
		kpiJSON, kpiComputedJSON, kpiSource,
		metricChainJSON, in.UseMathModel, linkedObjectivesJSON, in.LLMNotes,
		toNullFloat(in.StrategicPriorityCoefficient), in.IsOptimizationCandidate, in.CandidatePeriodKey,
		toNullInt(in.EngineeringTokens), in.DimCountry, in.DimDepartment, in.DimCategory, in.DimProgram,
		in.DimProduct, in.DimSegment, in.UpdatedSource, in.UpdatedAt, in.ScoringUpdatedSource,
		in.ScoringUpdatedAt,
	)
	if err := row.Scan(&in.ID); err != nil {
		return domain.Initiative{}, err
	}
	return in, nil
}

func (s *Store) UpdateInitiative(ctx context.Context, in domain.Initiative) (domain.Initiative, error) {
	in.UpdatedAt = time.Now().UTC()
	kpiJSON, _ := marshalJSON(in.KPIContributionJSON)
	kpiComputedJSON, _ := marshalJSON(in.KPIContributionComputedJSON)
	metricChainJSON, _ := marshalJSON(in.MetricChainJSON)
	linkedObjectivesJSON, _ := marshalJSON(in.LinkedObjectives)

	var framework sql.NullString
	if in.ActiveScoringFramework != nil {
		framework = toNullString(string(*in.ActiveScoringFramework))
	}
	var kpiSource sql.NullString
	if in.KPIContributionSource != nil {
		kpiSource = toNullString(string(*in.KPIContributionSource))
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE initiatives SET
			title=$2, requesting_team=$3, requester_name=$4, requester_email=$5, country=$6,
			product_area=$7, problem_statement=$8, desired_outcome=$9, hypothesis=$10,
			customer_segment=$11, initiative_type=$12, strategic_theme=$13, deadline_date=$14,
			impact_low=$15, impact_expected=$16, impact_high=$17, effort_tshirt=$18, effort_eng_days=$19,
			risk=$20, is_mandatory=$21, dependencies_text=$22, status=$23, active_scoring_framework=$24,
			rice_value=$25, rice_effort=$26, rice_overall=$27, wsjf_value=$28, wsjf_effort=$29, wsjf_overall=$30,
			math_value=$31, math_effort=$32, math_overall=$33, active_value=$34, active_effort=$35, active_overall=$36,
			kpi_contribution_json=$37, kpi_contribution_computed_json=$38, kpi_contribution_source=$39,
			metric_chain_json=$40, use_math_model=$41, linked_objectives_json=$42, llm_notes=$43,
			strategic_priority_coefficient=$44, is_optimization_candidate=$45, candidate_period_key=$46,
			engineering_tokens=$47, dim_country=$48, dim_department=$49, dim_category=$50, dim_program=$51,
			dim_product=$52, dim_segment=$53, updated_source=$54, updated_at=$55, scoring_updated_source=$56,
			scoring_updated_at=$57
		WHERE id = $1
	`,
		in.ID,
		in.Title, in.RequestingTeam, in.RequesterName, in.RequesterEmail, in.Country,
		in.ProductArea, in.ProblemStatement, in.DesiredOutcome, in.Hypothesis,
		in.CustomerSegment, in.InitiativeType, in.StrategicTheme, toNullTime(in.DeadlineDate),
		toNullFloat(in.Impact.Low), toNullFloat(in.Impact.Expected), toNullFloat(in.Impact.High),
		in.EffortTShirt, toNullFloat(in.EffortEngDays),
		in.Risk, in.IsMandatory, in.DependenciesText, in.Status, framework,
		toNullFloat(in.RICE.Value), toNullFloat(in.RICE.Effort), toNullFloat(in.RICE.Overall),
		toNullFloat(in.WSJF.Value), toNullFloat(in.WSJF.Effort), toNullFloat(in.WSJF.Overall),
		toNullFloat(in.Math.Value), toNullFloat(in.Math.Effort), toNullFloat(in.Math.Overall),
		toNullFloat(in.Active.Value), toNullFloat(in.Active.Effort), toNullFloat(in.Active.Overall),
		kpiJSON, kpiComputedJSON, kpiSource,
		metricChainJSON, in.UseMathModel, linkedObjectivesJSON, in.LLMNotes,
		toNullFloat(in.StrategicPriorityCoefficient), in.IsOptimizationCandidate, in.CandidatePeriodKey,
		toNullInt(in.EngineeringTokens), in.DimCountry, in.DimDepartment, in.DimCategory, in.DimProgram,
		in.DimProduct, in.DimSegment, in.UpdatedSource, in.UpdatedAt, in.ScoringUpdatedSource,
		in.ScoringUpdatedAt,
	)
	if err != nil {
		return domain.Initiative{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.Initiative{}, sql.ErrNoRows
	}
	return in, nil
}

func (s *Store) GetInitiative(ctx context.Context, id int64) (domain.Initiative, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+initiativeColumns+` FROM initiatives WHERE id = $1`, id)
	return scanInitiative(row)
}

func (s *Store) GetInitiativeByKey(ctx context.Context, key string) (domain.Initiative, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+initiativeColumns+` FROM initiatives WHERE initiative_key = $1`, key)
	return scanInitiative(row)
}

func (s *Store) ListInitiatives(ctx context.Context) ([]domain.Initiative, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+initiativeColumns+` FROM initiatives ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Initiative
	for rows.Next() {
		in, err := scanInitiative(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, in)
	}
	return result, rows.Err()
}

func (s *Store) ListInitiativesByStatus(ctx context.Context, status domain.InitiativeStatus) ([]domain.Initiative, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+initiativeColumns+` FROM initiatives WHERE status = $1 ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Initiative
	for rows.Next() {
		in, err := scanInitiative(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, in)
	}
	return result, rows.Err()
}

func (s *Store) ListOptimizationCandidates(ctx context.Context, periodKey string) ([]domain.Initiative, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+initiativeColumns+` FROM initiatives
		WHERE is_optimization_candidate = true AND candidate_period_key = $1
		ORDER BY id
	`, periodKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Initiative
	for rows.Next() {
		in, err := scanInitiative(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, in)
	}
	return result, rows.Err()
}

func (s *Store) NextInitiativeKey(ctx context.Context) (string, error) {
	var seq int64
	row := s.db.QueryRowContext(ctx, `SELECT nextval('initiative_key_seq')`)
	if err := row.Scan(&seq); err != nil {
		return "", err
	}
	return formatInitiativeKey(seq), nil
}

func formatInitiativeKey(seq int64) string {
	digits := "000000"
	s := digits
	str := []byte(s)
	v := seq
	for i := len(str) - 1; i >= 0 && v > 0; i-- {
		str[i] = byte('0' + v%10)
		v /= 10
	}
	return "INIT-" + string(str)
}

// --- MathModelStore ----------------------------------------------------------

func (s *Store) UpsertMathModel(ctx context.Context, m domain.MathModel) (domain.MathModel, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO initiative_math_models (
			initiative_id, model_name, target_kpi_key, metric_chain_text, formula_text,
			assumptions_text, is_primary, approved_by_user, suggested_by_llm,
			computed_score, last_computed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (initiative_id, model_name) DO UPDATE SET
			target_kpi_key = EXCLUDED.target_kpi_key,
			metric_chain_text = EXCLUDED.metric_chain_text,
			formula_text = EXCLUDED.formula_text,
			assumptions_text = EXCLUDED.assumptions_text,
			is_primary = EXCLUDED.is_primary,
			approved_by_user = EXCLUDED.approved_by_user,
			suggested_by_llm = EXCLUDED.suggested_by_llm,
			computed_score = EXCLUDED.computed_score,
			last_computed_at = EXCLUDED.last_computed_at
		RETURNING id
	`, m.InitiativeID, m.ModelName, m.TargetKPIKey, m.MetricChainText, m.FormulaText,
		m.AssumptionsText, m.IsPrimary, m.ApprovedByUser, m.SuggestedByLLM,
		toNullFloat(m.ComputedScore), toNullTime(m.LastComputedAt))
	if err := row.Scan(&m.ID); err != nil {
		return domain.MathModel{}, err
	}
	return m, nil
}

func scanMathModel(s rowScanner) (domain.MathModel, error) {
	var (
		m              domain.MathModel
		computedScore  sql.NullFloat64
		lastComputedAt sql.NullTime
	)
	if err := s.Scan(&m.ID, &m.InitiativeID, &m.ModelName, &m.TargetKPIKey, &m.MetricChainText,
		&m.FormulaText, &m.AssumptionsText, &m.IsPrimary, &m.ApprovedByUser, &m.SuggestedByLLM,
		&computedScore, &lastComputedAt); err != nil {
		return domain.MathModel{}, err
	}
	m.ComputedScore = fromNullFloat(computedScore)
	m.LastComputedAt = fromNullTime(lastComputedAt)
	return m, nil
}

func (s *Store) ListMathModelsByInitiative(ctx context.Context, initiativeID int64) ([]domain.MathModel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, initiative_id, model_name, target_kpi_key, metric_chain_text, formula_text,
			assumptions_text, is_primary, approved_by_user, suggested_by_llm,
			computed_score, last_computed_at
		FROM initiative_math_models WHERE initiative_id = $1 ORDER BY id
	`, initiativeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MathModel
	for rows.Next() {
		m, err := scanMathModel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) GetPrimaryMathModel(ctx context.Context, initiativeID int64) (domain.MathModel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, initiative_id, model_name, target_kpi_key, metric_chain_text, formula_text,
			assumptions_text, is_primary, approved_by_user, suggested_by_llm,
			computed_score, last_computed_at
		FROM initiative_math_models WHERE initiative_id = $1 AND is_primary = true
		LIMIT 1
	`, initiativeID)
	return scanMathModel(row)
}

// --- ParamStore ---------------------------------------------------------------

func (s *Store) UpsertParam(ctx context.Context, p domain.Param) (domain.Param, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO initiative_params (
			initiative_key, framework, param_name, model_name, value, param_display,
			description, unit, min_value, max_value, source, approved, is_auto_seeded, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (initiative_key, framework, param_name, model_name) DO UPDATE SET
			value = EXCLUDED.value,
			param_display = EXCLUDED.param_display,
			description = EXCLUDED.description,
			unit = EXCLUDED.unit,
			min_value = EXCLUDED.min_value,
			max_value = EXCLUDED.max_value,
			source = EXCLUDED.source,
			approved = EXCLUDED.approved,
			is_auto_seeded = EXCLUDED.is_auto_seeded,
			notes = EXCLUDED.notes
		RETURNING id
	`, p.InitiativeKey, p.Framework, p.ParamName, p.ModelName, toNullFloat(p.Value), p.ParamDisplay,
		p.Description, p.Unit, toNullFloat(p.Min), toNullFloat(p.Max), p.Source, p.Approved, p.IsAutoSeeded, p.Notes)
	if err := row.Scan(&p.ID); err != nil {
		return domain.Param{}, err
	}
	return p, nil
}

func scanParam(s rowScanner) (domain.Param, error) {
	var (
		p        domain.Param
		value    sql.NullFloat64
		min, max sql.NullFloat64
	)
	if err := s.Scan(&p.ID, &p.InitiativeKey, &p.Framework, &p.ParamName, &p.ModelName, &value,
		&p.ParamDisplay, &p.Description, &p.Unit, &min, &max, &p.Source, &p.Approved, &p.IsAutoSeeded, &p.Notes); err != nil {
		return domain.Param{}, err
	}
	p.Value = fromNullFloat(value)
	p.Min = fromNullFloat(min)
	p.Max = fromNullFloat(max)
	return p, nil
}

const paramColumns = `id, initiative_key, framework, param_name, model_name, value, param_display,
	description, unit, min_value, max_value, source, approved, is_auto_seeded, notes`

func (s *Store) ListParamsByInitiative(ctx context.Context, initiativeKey string) ([]domain.Param, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+paramColumns+` FROM initiative_params WHERE initiative_key = $1 ORDER BY id`, initiativeKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Param
	for rows.Next() {
		p, err := scanParam(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) ListParamsByFramework(ctx context.Context, initiativeKey, framework string) ([]domain.Param, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+paramColumns+` FROM initiative_params WHERE initiative_key = $1 AND framework = $2 ORDER BY id`, initiativeKey, framework)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Param
	for rows.Next() {
		p, err := scanParam(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- ScoreHistoryStore ---------------------------------------------------------

func (s *Store) AppendScoreHistory(ctx context.Context, h domain.ScoreHistory) (domain.ScoreHistory, error) {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	inputsJSON, _ := marshalJSON(h.InputsJSON)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO score_history (initiative_id, framework_name, value_score, effort_score, overall_score, inputs_json, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, h.InitiativeID, h.FrameworkName, toNullFloat(h.ValueScore), toNullFloat(h.EffortScore), toNullFloat(h.OverallScore), inputsJSON, h.CreatedAt)
	if err := row.Scan(&h.ID); err != nil {
		return domain.ScoreHistory{}, err
	}
	return h, nil
}

func (s *Store) ListScoreHistory(ctx context.Context, initiativeID int64) ([]domain.ScoreHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, initiative_id, framework_name, value_score, effort_score, overall_score, inputs_json, created_at
		FROM score_history WHERE initiative_id = $1 ORDER BY created_at DESC
	`, initiativeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ScoreHistory
	for rows.Next() {
		var (
			h                        domain.ScoreHistory
			valueS, effortS, overall sql.NullFloat64
			inputsJSON               []byte
		)
		if err := rows.Scan(&h.ID, &h.InitiativeID, &h.FrameworkName, &valueS, &effortS, &overall, &inputsJSON, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.ValueScore = fromNullFloat(valueS)
		h.EffortScore = fromNullFloat(effortS)
		h.OverallScore = fromNullFloat(overall)
		if len(inputsJSON) > 0 {
			_ = json.Unmarshal(inputsJSON, &h.InputsJSON)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// --- MetricConfigStore ---------------------------------------------------------

func (s *Store) UpsertMetricConfig(ctx context.Context, m domain.OrganizationMetricConfig) (domain.OrganizationMetricConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO organization_metric_configs (kpi_key, kpi_name, kpi_level, unit, description, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (kpi_key) DO UPDATE SET
			kpi_name = EXCLUDED.kpi_name,
			kpi_level = EXCLUDED.kpi_level,
			unit = EXCLUDED.unit,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active
		RETURNING id
	`, m.KPIKey, m.KPIName, m.KPILevel, m.Unit, m.Description, m.IsActive)
	if err := row.Scan(&m.ID); err != nil {
		return domain.OrganizationMetricConfig{}, err
	}
	return m, nil
}

func scanMetricConfig(s rowScanner) (domain.OrganizationMetricConfig, error) {
	var m domain.OrganizationMetricConfig
	if err := s.Scan(&m.ID, &m.KPIKey, &m.KPIName, &m.KPILevel, &m.Unit, &m.Description, &m.IsActive); err != nil {
		return domain.OrganizationMetricConfig{}, err
	}
	return m, nil
}

const metricConfigColumns = `id, kpi_key, kpi_name, kpi_level, unit, description, is_active`

func (s *Store) GetMetricConfig(ctx context.Context, kpiKey string) (domain.OrganizationMetricConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+metricConfigColumns+` FROM organization_metric_configs WHERE kpi_key = $1`, kpiKey)
	return scanMetricConfig(row)
}

func (s *Store) ListMetricConfigs(ctx context.Context) ([]domain.OrganizationMetricConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+metricConfigColumns+` FROM organization_metric_configs ORDER BY kpi_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.OrganizationMetricConfig
	for rows.Next() {
		m, err := scanMetricConfig(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) ListActiveMetricConfigs(ctx context.Context) ([]domain.OrganizationMetricConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+metricConfigColumns+` FROM organization_metric_configs WHERE is_active = true ORDER BY kpi_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.OrganizationMetricConfig
	for rows.Next() {
		m, err := scanMetricConfig(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// --- OptimizationStore ---------------------------------------------------------

func (s *Store) UpsertScenario(ctx context.Context, sc domain.OptimizationScenario) (domain.OptimizationScenario, error) {
	weightsJSON, _ := marshalJSON(sc.ObjectiveWeightsJSON)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO optimization_scenarios (name, period_key, capacity_total_tokens, objective_mode, objective_weights_json, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (name) DO UPDATE SET
			period_key = EXCLUDED.period_key,
			capacity_total_tokens = EXCLUDED.capacity_total_tokens,
			objective_mode = EXCLUDED.objective_mode,
			objective_weights_json = EXCLUDED.objective_weights_json,
			notes = EXCLUDED.notes
		RETURNING id
	`, sc.Name, sc.PeriodKey, sc.CapacityTotalTokens, sc.ObjectiveMode, weightsJSON, sc.Notes)
	if err := row.Scan(&sc.ID); err != nil {
		return domain.OptimizationScenario{}, err
	}
	return sc, nil
}

func (s *Store) GetScenario(ctx context.Context, name string) (domain.OptimizationScenario, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, period_key, capacity_total_tokens, objective_mode, objective_weights_json, notes
		FROM optimization_scenarios WHERE name = $1
	`, name)
	var sc domain.OptimizationScenario
	var weightsJSON []byte
	if err := row.Scan(&sc.ID, &sc.Name, &sc.PeriodKey, &sc.CapacityTotalTokens, &sc.ObjectiveMode, &weightsJSON, &sc.Notes); err != nil {
		return domain.OptimizationScenario{}, err
	}
	if len(weightsJSON) > 0 {
		_ = json.Unmarshal(weightsJSON, &sc.ObjectiveWeightsJSON)
	}
	return sc, nil
}

func (s *Store) ListScenarios(ctx context.Context) ([]domain.OptimizationScenario, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, period_key, capacity_total_tokens, objective_mode, objective_weights_json, notes
		FROM optimization_scenarios ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.OptimizationScenario
	for rows.Next() {
		var sc domain.OptimizationScenario
		var weightsJSON []byte
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.PeriodKey, &sc.CapacityTotalTokens, &sc.ObjectiveMode, &weightsJSON, &sc.Notes); err != nil {
			return nil, err
		}
		if len(weightsJSON) > 0 {
			_ = json.Unmarshal(weightsJSON, &sc.ObjectiveWeightsJSON)
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (s *Store) UpsertConstraintSet(ctx context.Context, c domain.OptimizationConstraintSet) (domain.OptimizationConstraintSet, error) {
	floorsJSON, _ := marshalJSON(c.CapacityFloors)
	capsJSON, _ := marshalJSON(c.CapacityCaps)
	mandatoryJSON, _ := marshalJSON(c.Mandatory)
	bundlesJSON, _ := marshalJSON(c.Bundles)
	exclusionPairsJSON, _ := marshalJSON(c.ExclusionPairs)
	exclusionInitsJSON, _ := marshalJSON(c.ExclusionInits)
	prerequisitesJSON, _ := marshalJSON(c.Prerequisites)
	synergyJSON, _ := marshalJSON(c.SynergyBonuses)
	targetsJSON, _ := marshalJSON(c.Targets)

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO optimization_constraint_sets (
			scenario_name, name, capacity_floors_json, capacity_caps_json, mandatory_json,
			bundles_json, exclusion_pairs_json, exclusion_inits_json, prerequisites_json,
			synergy_bonuses_json, targets_json
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (scenario_name, name) DO UPDATE SET
			capacity_floors_json = EXCLUDED.capacity_floors_json,
			capacity_caps_json = EXCLUDED.capacity_caps_json,
			mandatory_json = EXCLUDED.mandatory_json,
			bundles_json = EXCLUDED.bundles_json,
			exclusion_pairs_json = EXCLUDED.exclusion_pairs_json,
			exclusion_inits_json = EXCLUDED.exclusion_inits_json,
			prerequisites_json = EXCLUDED.prerequisites_json,
			synergy_bonuses_json = EXCLUDED.synergy_bonuses_json,
			targets_json = EXCLUDED.targets_json
		RETURNING id
	`, c.ScenarioName, c.Name, floorsJSON, capsJSON, mandatoryJSON, bundlesJSON,
		exclusionPairsJSON, exclusionInitsJSON, prerequisitesJSON, synergyJSON, targetsJSON)
	if err := row.Scan(&c.ID); err != nil {
		return domain.OptimizationConstraintSet{}, err
	}
	return c, nil
}

func (s *Store) GetConstraintSet(ctx context.Context, scenarioName, name string) (domain.OptimizationConstraintSet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario_name, name, capacity_floors_json, capacity_caps_json, mandatory_json,
			bundles_json, exclusion_pairs_json, exclusion_inits_json, prerequisites_json,
			synergy_bonuses_json, targets_json
		FROM optimization_constraint_sets WHERE scenario_name = $1 AND name = $2
	`, scenarioName, name)

	c := domain.NewOptimizationConstraintSet(scenarioName, name)
	var floorsJSON, capsJSON, mandatoryJSON, bundlesJSON, exclusionPairsJSON, exclusionInitsJSON, prerequisitesJSON, synergyJSON, targetsJSON []byte
	if err := row.Scan(&c.ID, &c.ScenarioName, &c.Name, &floorsJSON, &capsJSON, &mandatoryJSON,
		&bundlesJSON, &exclusionPairsJSON, &exclusionInitsJSON, &prerequisitesJSON, &synergyJSON, &targetsJSON); err != nil {
		return domain.OptimizationConstraintSet{}, err
	}
	_ = json.Unmarshal(floorsJSON, &c.CapacityFloors)
	_ = json.Unmarshal(capsJSON, &c.CapacityCaps)
	_ = json.Unmarshal(mandatoryJSON, &c.Mandatory)
	_ = json.Unmarshal(bundlesJSON, &c.Bundles)
	_ = json.Unmarshal(exclusionPairsJSON, &c.ExclusionPairs)
	_ = json.Unmarshal(exclusionInitsJSON, &c.ExclusionInits)
	_ = json.Unmarshal(prerequisitesJSON, &c.Prerequisites)
	_ = json.Unmarshal(synergyJSON, &c.SynergyBonuses)
	_ = json.Unmarshal(targetsJSON, &c.Targets)
	return *c, nil
}

func (s *Store) CreateRun(ctx context.Context, r domain.OptimizationRun) (domain.OptimizationRun, error) {
	inputsJSON, _ := marshalJSON(r.InputsSnapshotJSON)
	resultJSON, _ := marshalJSON(r.ResultJSON)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO optimization_runs (
			run_id, scenario_id, constraint_set_id, status, started_at, finished_at,
			inputs_snapshot_json, result_json, solver_name, solver_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, r.RunID, r.ScenarioID, r.ConstraintSetID, r.Status, toNullTime(r.StartedAt), toNullTime(r.FinishedAt),
		inputsJSON, resultJSON, r.SolverName, r.SolverVersion)
	if err := row.Scan(&r.ID); err != nil {
		return domain.OptimizationRun{}, err
	}
	return r, nil
}

func scanRun(s rowScanner) (domain.OptimizationRun, error) {
	var (
		r                      domain.OptimizationRun
		startedAt, finishedAt  sql.NullTime
		inputsJSON, resultJSON []byte
	)
	if err := s.Scan(&r.ID, &r.RunID, &r.ScenarioID, &r.ConstraintSetID, &r.Status, &startedAt, &finishedAt,
		&inputsJSON, &resultJSON, &r.SolverName, &r.SolverVersion); err != nil {
		return domain.OptimizationRun{}, err
	}
	r.StartedAt = fromNullTime(startedAt)
	r.FinishedAt = fromNullTime(finishedAt)
	if len(inputsJSON) > 0 {
		_ = json.Unmarshal(inputsJSON, &r.InputsSnapshotJSON)
	}
	if len(resultJSON) > 0 {
		_ = json.Unmarshal(resultJSON, &r.ResultJSON)
	}
	return r, nil
}

const runColumns = `id, run_id, scenario_id, constraint_set_id, status, started_at, finished_at,
	inputs_snapshot_json, result_json, solver_name, solver_version`

func (s *Store) UpdateRun(ctx context.Context, r domain.OptimizationRun) (domain.OptimizationRun, error) {
	inputsJSON, _ := marshalJSON(r.InputsSnapshotJSON)
	resultJSON, _ := marshalJSON(r.ResultJSON)
	result, err := s.db.ExecContext(ctx, `
		UPDATE optimization_runs SET status=$2, started_at=$3, finished_at=$4,
			inputs_snapshot_json=$5, result_json=$6, solver_name=$7, solver_version=$8
		WHERE run_id = $1
	`, r.RunID, r.Status, toNullTime(r.StartedAt), toNullTime(r.FinishedAt), inputsJSON, resultJSON, r.SolverName, r.SolverVersion)
	if err != nil {
		return domain.OptimizationRun{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.OptimizationRun{}, sql.ErrNoRows
	}
	return r, nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (domain.OptimizationRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM optimization_runs WHERE run_id = $1`, runID)
	return scanRun(row)
}

func (s *Store) ListRunsByScenario(ctx context.Context, scenarioID int64) ([]domain.OptimizationRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM optimization_runs WHERE scenario_id = $1 ORDER BY id DESC`, scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.OptimizationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) SavePortfolio(ctx context.Context, p domain.Portfolio) (domain.Portfolio, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Portfolio{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO portfolios (run_id) VALUES ($1) RETURNING id
	`, p.RunID)
	if err := row.Scan(&p.ID); err != nil {
		return domain.Portfolio{}, err
	}

	for _, item := range p.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO portfolio_items (portfolio_id, initiative_key, allocated_tokens)
			VALUES ($1,$2,$3)
		`, p.ID, item.InitiativeKey, item.AllocatedTokens); err != nil {
			return domain.Portfolio{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Portfolio{}, err
	}
	return p, nil
}

func (s *Store) GetPortfolioByRun(ctx context.Context, runID int64) (domain.Portfolio, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, run_id FROM portfolios WHERE run_id = $1`, runID)
	var p domain.Portfolio
	if err := row.Scan(&p.ID, &p.RunID); err != nil {
		return domain.Portfolio{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT initiative_key, allocated_tokens FROM portfolio_items WHERE portfolio_id = $1 ORDER BY initiative_key`, p.ID)
	if err != nil {
		return domain.Portfolio{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.PortfolioItem
		if err := rows.Scan(&item.InitiativeKey, &item.AllocatedTokens); err != nil {
			return domain.Portfolio{}, err
		}
		p.Items = append(p.Items, item)
	}
	return p, rows.Err()
}

// --- ActionRunStore ------------------------------------------------------------

func (s *Store) EnqueueActionRun(ctx context.Context, r domain.ActionRun) (domain.ActionRun, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	payloadJSON, _ := marshalJSON(r.PayloadJSON)
	requestedByJSON, _ := marshalJSON(r.RequestedByJSON)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO action_runs (run_id, action, status, payload_json, requested_by_json, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, r.RunID, r.Action, r.Status, payloadJSON, requestedByJSON, r.CreatedAt)
	if err := row.Scan(&r.ID); err != nil {
		return domain.ActionRun{}, err
	}
	return r, nil
}

const actionRunColumns = `id, run_id, action, status, payload_json, result_json, error_text,
	requested_by_json, created_at, started_at, finished_at`

func scanActionRun(s rowScanner) (domain.ActionRun, error) {
	var (
		r                                        domain.ActionRun
		payloadJSON, resultJSON, requestedByJSON []byte
		errText                                  sql.NullString
		startedAt, finished                      sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.RunID, &r.Action, &r.Status, &payloadJSON, &resultJSON, &errText,
		&requestedByJSON, &r.CreatedAt, &startedAt, &finished); err != nil {
		return domain.ActionRun{}, err
	}
	if len(payloadJSON) > 0 {
		_ = json.Unmarshal(payloadJSON, &r.PayloadJSON)
	}
	if len(resultJSON) > 0 {
		_ = json.Unmarshal(resultJSON, &r.ResultJSON)
	}
	if len(requestedByJSON) > 0 {
		_ = json.Unmarshal(requestedByJSON, &r.RequestedByJSON)
	}
	r.ErrorText = errText.String
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		r.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time.UTC()
		r.FinishedAt = &t
	}
	return r, nil
}

func (s *Store) GetActionRun(ctx context.Context, runID string) (domain.ActionRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionRunColumns+` FROM action_runs WHERE run_id = $1`, runID)
	return scanActionRun(row)
}

func (s *Store) ListActionRuns(ctx context.Context, status domain.ActionRunStatus, limit int) ([]domain.ActionRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+actionRunColumns+` FROM action_runs WHERE $1 = '' OR status = $1 ORDER BY created_at DESC LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.ActionRun
	for rows.Next() {
		r, err := scanActionRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ClaimNextActionRun claims the oldest queued run with FOR UPDATE SKIP
// LOCKED, grounded on the teacher's jam store's NextPending (spec.md §5).
func (s *Store) ClaimNextActionRun(ctx context.Context) (domain.ActionRun, bool, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.ActionRun{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+actionRunColumns+`
		FROM action_runs
		WHERE status = $1
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, domain.ActionStatusQueued)

	r, err := scanActionRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ActionRun{}, false, tx.Commit()
		}
		return domain.ActionRun{}, false, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE action_runs SET status = $2, started_at = $3 WHERE id = $1
	`, r.ID, domain.ActionStatusRunning, now); err != nil {
		return domain.ActionRun{}, false, err
	}
	r.Status = domain.ActionStatusRunning
	r.StartedAt = &now

	if err := tx.Commit(); err != nil {
		return domain.ActionRun{}, false, err
	}
	return r, true, nil
}

func (s *Store) FinishActionRun(ctx context.Context, runID string, status domain.ActionRunStatus, resultJSON, errorText string, finishedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE action_runs SET status = $2, result_json = $3, error_text = $4, finished_at = $5
		WHERE run_id = $1
	`, runID, status, toNullString(resultJSON), toNullString(errorText), finishedAt)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) ListStuckActionRuns(ctx context.Context, olderThan time.Time) ([]domain.ActionRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+actionRunColumns+` FROM action_runs WHERE status = $1 AND started_at < $2 ORDER BY started_at
	`, domain.ActionStatusRunning, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.ActionRun
	for rows.Next() {
		r, err := scanActionRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) RequeueActionRun(ctx context.Context, runID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE action_runs SET status = $2, started_at = NULL WHERE run_id = $1
	`, runID, domain.ActionStatusQueued)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
