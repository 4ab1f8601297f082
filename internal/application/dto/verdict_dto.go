package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/taxrisk/internal/domain/model"
)

// ScoreFilingRequest is the input DTO for the ScoreFiling use case.
type ScoreFilingRequest struct {
	Filing   model.RawFiling `json:"filing"`
	TenantID uuid.UUID       `json:"tenant_id"`
}

// ScoreDTO is one contributing scorer's output.
type ScoreDTO struct {
	ScorerID         string  `json:"scorer_id"`
	Group            string  `json:"group"`
	Rationale        string  `json:"rationale,omitempty"`
	RawScore         float64 `json:"raw_score"`
	NormalizedScore  float64 `json:"normalized_score"`
	ConfidenceWeight float64 `json:"confidence_weight"`
}

// ExcludedDTO is a scorer that did not contribute and why.
type ExcludedDTO struct {
	ScorerID string `json:"scorer_id"`
	Group    string `json:"group"`
	Status   string `json:"status"`
	Reason   string `json:"reason"`
}

// RiskFactorDTO is one rule-based finding, scored 0-100.
type RiskFactorDTO struct {
	Factor      string  `json:"factor"`
	Severity    string  `json:"severity"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// PatternDTO is a matched fraud pattern.
type PatternDTO struct {
	Type       string   `json:"type"`
	Label      string   `json:"label"`
	Indicators []string `json:"indicators"`
	Score      float64  `json:"score"`
}

// VerdictResponse is the output DTO returned after scoring or lookup.
type VerdictResponse struct {
	ScoredAt            time.Time       `json:"scored_at"`
	RevenueGapRatio     *float64        `json:"revenue_gap_ratio,omitempty"`
	MLGroupScore        *float64        `json:"ml_group_score,omitempty"`
	AIGroupScore        *float64        `json:"ai_group_score,omitempty"`
	Scores              []ScoreDTO      `json:"scores"`
	Excluded            []ExcludedDTO   `json:"excluded"`
	MatchedPatterns     []PatternDTO    `json:"matched_patterns"`
	RiskFactors         []RiskFactorDTO `json:"risk_factors"`
	Recommendations     []string        `json:"recommendations"`
	BusinessID          string          `json:"business_id"`
	BusinessCategory    string          `json:"business_category"`
	DeclaredRevenue     string          `json:"declared_revenue,omitempty"`
	ExpectedRevenueLow  string          `json:"expected_revenue_low"`
	ExpectedRevenueHigh string          `json:"expected_revenue_high"`
	EstimateMethod      string          `json:"estimate_method"`
	RiskTier            string          `json:"risk_tier"`
	Explanation         string          `json:"explanation"`
	FinalScore          float64         `json:"final_score"`
	ID                  uuid.UUID       `json:"id"`
	TenantID            uuid.UUID       `json:"tenant_id"`
	Partial             bool            `json:"partial"`
}

// GetVerdictRequest is the input DTO for retrieving a verdict.
type GetVerdictRequest struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	VerdictID uuid.UUID `json:"verdict_id"`
}

// ListVerdictsRequest is the input DTO for a business's verdict history.
type ListVerdictsRequest struct {
	BusinessID string    `json:"business_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}

// ListVerdictsResponse is the output DTO for verdict history.
type ListVerdictsResponse struct {
	Verdicts []VerdictResponse `json:"verdicts"`
}

// FromModel maps a verdict record to the response DTO.
func FromModel(r *model.VerdictRecord) VerdictResponse {
	v := r.Verdict()
	resp := VerdictResponse{
		ID:                  r.ID(),
		TenantID:            r.TenantID(),
		BusinessID:          r.BusinessID(),
		BusinessCategory:    r.Category().String(),
		ExpectedRevenueLow:  r.Estimate().Low().String(),
		ExpectedRevenueHigh: r.Estimate().High().String(),
		EstimateMethod:      r.Estimate().Method(),
		FinalScore:          v.FinalScore(),
		RiskTier:            v.RiskTier().String(),
		Explanation:         v.Explanation(),
		Recommendations:     v.RiskTier().Recommendation(),
		Partial:             v.IsPartial(),
		Scores:              make([]ScoreDTO, 0, len(v.ContributingScores())),
		Excluded:            make([]ExcludedDTO, 0, len(v.ExcludedScorers())),
		MatchedPatterns:     []PatternDTO{},
		RiskFactors:         []RiskFactorDTO{},
		ScoredAt:            r.ScoredAt(),
	}
	if declared, ok := r.DeclaredRevenue(); ok {
		resp.DeclaredRevenue = declared.String()
	}
	if g, ok := r.GapRatio(); ok {
		resp.RevenueGapRatio = &g
	}
	if s, ok := v.MLGroupScore(); ok {
		resp.MLGroupScore = &s
	}
	if s, ok := v.AIGroupScore(); ok {
		resp.AIGroupScore = &s
	}
	for _, s := range v.ContributingScores() {
		resp.Scores = append(resp.Scores, ScoreDTO{
			ScorerID:         s.ScorerID(),
			Group:            s.Group().String(),
			RawScore:         s.RawScore(),
			NormalizedScore:  s.NormalizedScore(),
			ConfidenceWeight: s.ConfidenceWeight(),
			Rationale:        s.Rationale(),
		})
	}
	for _, x := range v.ExcludedScorers() {
		resp.Excluded = append(resp.Excluded, ExcludedDTO{
			ScorerID: x.ScorerID,
			Group:    x.Group.String(),
			Status:   x.Status.Kind(),
			Reason:   x.Status.Reason(),
		})
	}
	for _, c := range r.Patterns().Matched() {
		resp.MatchedPatterns = append(resp.MatchedPatterns, PatternDTO{
			Type:       c.Type,
			Label:      model.PatternLabel(c.Type),
			Indicators: c.Indicators,
			Score:      c.Score,
		})
	}
	for _, f := range r.Patterns().RiskFactors() {
		resp.RiskFactors = append(resp.RiskFactors, RiskFactorDTO(f))
	}
	return resp
}
