package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
	"github.com/bibbank/taxrisk/pkg/money"
	pgutil "github.com/bibbank/taxrisk/pkg/postgres"
)

// VerdictRepository implements port.VerdictRepository using PostgreSQL.
type VerdictRepository struct {
	pool *pgxpool.Pool
}

// NewVerdictRepository creates a new PostgreSQL-backed verdict repository.
func NewVerdictRepository(pool *pgxpool.Pool) *VerdictRepository {
	return &VerdictRepository{pool: pool}
}

const verdictColumns = `
	id, tenant_id, business_id, business_category, currency,
	declared_revenue, expected_low, expected_high, estimate_method,
	revenue_gap_ratio, final_score, risk_tier,
	ml_group_score, ai_group_score, explanation, scored_at,
	pattern_checks, risk_factors`

type patternCheckRow struct {
	Type       string   `json:"type"`
	Score      float64  `json:"score"`
	Indicators []string `json:"indicators,omitempty"`
}

type riskFactorRow struct {
	Factor      string  `json:"factor"`
	Severity    string  `json:"severity"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

func encodePatterns(report model.PatternReport) (checks, factors []byte, err error) {
	checkRows := make([]patternCheckRow, 0, len(report.Checks()))
	for _, c := range report.Checks() {
		checkRows = append(checkRows, patternCheckRow(c))
	}
	factorRows := make([]riskFactorRow, 0, len(report.RiskFactors()))
	for _, f := range report.RiskFactors() {
		factorRows = append(factorRows, riskFactorRow(f))
	}
	if checks, err = json.Marshal(checkRows); err != nil {
		return nil, nil, fmt.Errorf("failed to encode pattern checks: %w", err)
	}
	if factors, err = json.Marshal(factorRows); err != nil {
		return nil, nil, fmt.Errorf("failed to encode risk factors: %w", err)
	}
	return checks, factors, nil
}

func decodePatterns(checks, factors []byte) (model.PatternReport, error) {
	var (
		checkRows  []patternCheckRow
		factorRows []riskFactorRow
	)
	if len(checks) > 0 {
		if err := json.Unmarshal(checks, &checkRows); err != nil {
			return model.PatternReport{}, fmt.Errorf("failed to decode pattern checks: %w", err)
		}
	}
	if len(factors) > 0 {
		if err := json.Unmarshal(factors, &factorRows); err != nil {
			return model.PatternReport{}, fmt.Errorf("failed to decode risk factors: %w", err)
		}
	}
	out := make([]model.PatternCheck, 0, len(checkRows))
	for _, c := range checkRows {
		out = append(out, model.PatternCheck(c))
	}
	rf := make([]model.RiskFactor, 0, len(factorRows))
	for _, f := range factorRows {
		rf = append(rf, model.RiskFactor(f))
	}
	return model.NewPatternReport(out, rf), nil
}

// Save persists a verdict and every scorer outcome, contributing or excluded.
func (r *VerdictRepository) Save(ctx context.Context, record *model.VerdictRecord) error {
	return pgutil.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		v := record.Verdict()
		est := record.Estimate()

		var declared *decimal.Decimal
		if d, ok := record.DeclaredRevenue(); ok {
			amt := d.Amount()
			declared = &amt
		}

		checks, factors, err := encodePatterns(record.Patterns())
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO verdicts (`+verdictColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			record.ID(),
			record.TenantID(),
			record.BusinessID(),
			record.Category().String(),
			est.Low().Currency().Code(),
			declared,
			est.Low().Amount(),
			est.High().Amount(),
			est.Method(),
			optional(record.GapRatio()),
			v.FinalScore(),
			v.RiskTier().String(),
			optional(v.MLGroupScore()),
			optional(v.AIGroupScore()),
			v.Explanation(),
			record.ScoredAt(),
			checks,
			factors,
		)
		if err != nil {
			return fmt.Errorf("failed to save verdict: %w", err)
		}

		pos := 0
		for _, s := range v.ContributingScores() {
			if err := insertScore(ctx, tx, record, pos, s.ScorerID(), s.Group(), s.Status(),
				s.RawScore(), s.NormalizedScore(), s.ConfidenceWeight(), s.Rationale()); err != nil {
				return err
			}
			pos++
		}
		for _, x := range v.ExcludedScorers() {
			if err := insertScore(ctx, tx, record, pos, x.ScorerID, x.Group, x.Status, 0, 0, 0, ""); err != nil {
				return err
			}
			pos++
		}
		return nil
	})
}

func insertScore(
	ctx context.Context,
	q pgutil.Querier,
	record *model.VerdictRecord,
	pos int,
	scorerID string,
	group valueobject.ScorerGroup,
	status valueobject.ScoreStatus,
	raw, normalized, weight float64,
	rationale string,
) error {
	_, err := q.Exec(ctx, `
		INSERT INTO verdict_scores (
			verdict_id, tenant_id, position, scorer_id, scorer_group,
			status, status_code, status_detail,
			raw_score, normalized_score, confidence_weight, rationale
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		record.ID(), record.TenantID(), pos, scorerID, group.String(),
		status.Kind(), status.Code(), status.Detail(),
		raw, normalized, weight, rationale,
	)
	if err != nil {
		return fmt.Errorf("failed to save scorer %s: %w", scorerID, err)
	}
	return nil
}

// FindByID retrieves a verdict by its unique identifier.
func (r *VerdictRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.VerdictRecord, error) {
	query := `SELECT ` + verdictColumns + ` FROM verdicts WHERE tenant_id = $1 AND id = $2`

	record, err := r.scanVerdict(ctx, r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// FindByBusinessID lists a business's verdicts, newest first.
func (r *VerdictRepository) FindByBusinessID(ctx context.Context, tenantID uuid.UUID, businessID string, limit, offset int) ([]*model.VerdictRecord, error) {
	query := `SELECT ` + verdictColumns + `
		FROM verdicts
		WHERE tenant_id = $1 AND business_id = $2
		ORDER BY scored_at DESC, id
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, tenantID, businessID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	rowsData, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (verdictRow, error) {
		return scanVerdictRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan verdict row: %w", err)
	}

	records := make([]*model.VerdictRecord, 0, len(rowsData))
	for _, vr := range rowsData {
		rec, err := r.assemble(ctx, vr)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

type verdictRow struct {
	id, tenantID              uuid.UUID
	businessID, category, cur string
	declared                  *decimal.Decimal
	low, high                 decimal.Decimal
	method                    string
	gapRatio                  *float64
	finalScore                float64
	tier                      string
	mlScore, aiScore          *float64
	explanation               string
	scoredAt                  time.Time
	checks, factors           []byte
}

func scanVerdictRow(row pgx.Row) (verdictRow, error) {
	var vr verdictRow
	err := row.Scan(
		&vr.id, &vr.tenantID, &vr.businessID, &vr.category, &vr.cur,
		&vr.declared, &vr.low, &vr.high, &vr.method,
		&vr.gapRatio, &vr.finalScore, &vr.tier,
		&vr.mlScore, &vr.aiScore, &vr.explanation, &vr.scoredAt,
		&vr.checks, &vr.factors,
	)
	return vr, err
}

func (r *VerdictRepository) scanVerdict(ctx context.Context, row pgx.Row) (*model.VerdictRecord, error) {
	vr, err := scanVerdictRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan verdict: %w", err)
	}
	return r.assemble(ctx, vr)
}

func (r *VerdictRepository) assemble(ctx context.Context, vr verdictRow) (*model.VerdictRecord, error) {
	category, err := valueobject.CategoryFromString(vr.category)
	if err != nil {
		return nil, fmt.Errorf("failed to parse category: %w", err)
	}
	tier, err := valueobject.RiskTierFromString(vr.tier)
	if err != nil {
		return nil, fmt.Errorf("failed to parse risk tier: %w", err)
	}
	cur, err := money.NewCurrency(vr.cur)
	if err != nil {
		return nil, fmt.Errorf("failed to parse currency: %w", err)
	}
	estimate, err := model.NewRevenueEstimate(money.New(vr.low, cur), money.New(vr.high, cur), vr.method)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild estimate: %w", err)
	}

	contributing, excluded, err := r.loadScores(ctx, vr.id)
	if err != nil {
		return nil, err
	}

	var declared *money.Money
	if vr.declared != nil {
		m := money.New(*vr.declared, cur)
		declared = &m
	}

	patterns, err := decodePatterns(vr.checks, vr.factors)
	if err != nil {
		return nil, err
	}

	verdict := model.NewConsensusVerdict(vr.finalScore, tier, contributing, excluded, vr.mlScore, vr.aiScore, vr.explanation)
	return model.ReconstructVerdictRecord(
		vr.id, vr.tenantID, vr.businessID, category,
		declared, estimate, vr.gapRatio, verdict, patterns, vr.scoredAt,
	), nil
}

func (r *VerdictRepository) loadScores(ctx context.Context, verdictID uuid.UUID) ([]model.ScoreResult, []model.ExcludedScorer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scorer_id, scorer_group, status, status_code, status_detail,
			raw_score, normalized_score, confidence_weight, rationale
		FROM verdict_scores
		WHERE verdict_id = $1
		ORDER BY position`,
		verdictID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query verdict scores: %w", err)
	}
	defer rows.Close()

	var (
		contributing []model.ScoreResult
		excluded     []model.ExcludedScorer
	)
	for rows.Next() {
		var (
			scorerID, groupStr, kind, code, detail, rationale string
			raw, normalized, weight                           float64
		)
		if err := rows.Scan(&scorerID, &groupStr, &kind, &code, &detail, &raw, &normalized, &weight, &rationale); err != nil {
			return nil, nil, fmt.Errorf("failed to scan verdict score: %w", err)
		}
		group, err := valueobject.ScorerGroupFromString(groupStr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse scorer group: %w", err)
		}
		status, err := valueobject.ScoreStatusFromParts(kind, code, detail)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse scorer status: %w", err)
		}
		if status.IsOK() {
			contributing = append(contributing, model.ReconstructScoreResult(scorerID, group, weight, raw, normalized, rationale, status))
		} else {
			excluded = append(excluded, model.ExcludedScorer{ScorerID: scorerID, Group: group, Status: status})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate verdict scores: %w", err)
	}
	return contributing, excluded, nil
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
