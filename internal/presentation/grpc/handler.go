package grpc

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/taxrisk/internal/application/dto"
	"github.com/bibbank/taxrisk/internal/application/usecase"
	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/pkg/auth"
)

// requireRole checks that the caller has at least one of the given roles.
func requireRole(ctx context.Context, roles ...string) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	if !claims.HasAnyRole(roles...) {
		return status.Error(codes.PermissionDenied, "insufficient permissions")
	}
	return nil
}

// tenantIDFromContext extracts the tenant ID from JWT claims in the context.
func tenantIDFromContext(ctx context.Context) (uuid.UUID, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	if claims.TenantID == uuid.Nil {
		return uuid.Nil, status.Error(codes.PermissionDenied, "token carries no tenant")
	}
	return claims.TenantID, nil
}

var _ TaxRiskServiceServer = (*TaxRiskServiceHandler)(nil)

// TaxRiskServiceHandler implements TaxRiskServiceServer on top of the use cases.
type TaxRiskServiceHandler struct {
	UnimplementedTaxRiskServiceServer
	scoreFiling  *usecase.ScoreFiling
	getVerdict   *usecase.GetVerdict
	listVerdicts *usecase.ListVerdicts
	logger       *slog.Logger
}

// NewTaxRiskServiceHandler creates a new gRPC handler.
func NewTaxRiskServiceHandler(
	scoreFiling *usecase.ScoreFiling,
	getVerdict *usecase.GetVerdict,
	listVerdicts *usecase.ListVerdicts,
	logger *slog.Logger,
) *TaxRiskServiceHandler {
	return &TaxRiskServiceHandler{
		scoreFiling:  scoreFiling,
		getVerdict:   getVerdict,
		listVerdicts: listVerdicts,
		logger:       logger,
	}
}

// --- Messages ---

// ScoreFilingRequest carries one raw filing.
type ScoreFilingRequest struct {
	Filing *model.RawFiling `json:"filing"`
}

// ScoreMsg is one contributing scorer.
type ScoreMsg struct {
	ScorerID         string  `json:"scorer_id"`
	Group            string  `json:"group"`
	Rationale        string  `json:"rationale,omitempty"`
	RawScore         float64 `json:"raw_score"`
	NormalizedScore  float64 `json:"normalized_score"`
	ConfidenceWeight float64 `json:"confidence_weight"`
}

// ExcludedMsg is a scorer left out of the consensus.
type ExcludedMsg struct {
	ScorerID string `json:"scorer_id"`
	Group    string `json:"group"`
	Status   string `json:"status"`
	Reason   string `json:"reason"`
}

// PatternMsg is a matched fraud pattern.
type PatternMsg struct {
	Type       string   `json:"type"`
	Label      string   `json:"label"`
	Indicators []string `json:"indicators"`
	Score      float64  `json:"score"`
}

// RiskFactorMsg is one rule-based finding.
type RiskFactorMsg struct {
	Factor      string  `json:"factor"`
	Severity    string  `json:"severity"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// VerdictMsg is the wire form of a recorded verdict.
type VerdictMsg struct {
	ID                  string          `json:"id"`
	BusinessID          string          `json:"business_id"`
	BusinessCategory    string          `json:"business_category"`
	DeclaredRevenue     string          `json:"declared_revenue,omitempty"`
	ExpectedRevenueLow  string          `json:"expected_revenue_low"`
	ExpectedRevenueHigh string          `json:"expected_revenue_high"`
	EstimateMethod      string          `json:"estimate_method"`
	RevenueGapRatio     *float64        `json:"revenue_gap_ratio,omitempty"`
	FinalScore          float64         `json:"final_score"`
	RiskTier            string          `json:"risk_tier"`
	MLGroupScore        *float64        `json:"ml_group_score,omitempty"`
	AIGroupScore        *float64        `json:"ai_group_score,omitempty"`
	Partial             bool            `json:"partial"`
	Explanation         string          `json:"explanation"`
	Recommendations     []string        `json:"recommendations"`
	Scores              []ScoreMsg      `json:"scores"`
	Excluded            []ExcludedMsg   `json:"excluded"`
	MatchedPatterns     []PatternMsg    `json:"matched_patterns"`
	RiskFactors         []RiskFactorMsg `json:"risk_factors"`
	ScoredAt            string          `json:"scored_at"`
}

// ScoreFilingResponse returns the new verdict.
type ScoreFilingResponse struct {
	Verdict *VerdictMsg `json:"verdict"`
}

// GetVerdictRequest looks up one verdict.
type GetVerdictRequest struct {
	ID string `json:"id"`
}

// GetVerdictResponse returns the verdict.
type GetVerdictResponse struct {
	Verdict *VerdictMsg `json:"verdict"`
}

// ListVerdictsRequest pages through a business's history.
type ListVerdictsRequest struct {
	BusinessID string `json:"business_id"`
	Limit      int32  `json:"limit"`
	Offset     int32  `json:"offset"`
}

// ListVerdictsResponse is one page of history, newest first.
type ListVerdictsResponse struct {
	Verdicts []*VerdictMsg `json:"verdicts"`
}

// --- Handlers ---

// ScoreFiling scores a filing for the caller's tenant.
func (h *TaxRiskServiceHandler) ScoreFiling(ctx context.Context, req *ScoreFilingRequest) (*ScoreFilingResponse, error) {
	if err := requireRole(ctx, auth.RoleAdmin, auth.RoleInvestigator, auth.RoleIngest); err != nil {
		return nil, err
	}
	if req == nil || req.Filing == nil {
		return nil, status.Error(codes.InvalidArgument, "filing is required")
	}
	tenantID, err := tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "scoring filing",
		slog.String("tenant_id", tenantID.String()),
		slog.String("business_id", req.Filing.BusinessID),
		slog.String("business_category", req.Filing.Category),
	)

	result, err := h.scoreFiling.Execute(ctx, dto.ScoreFilingRequest{TenantID: tenantID, Filing: *req.Filing})
	if err != nil {
		return nil, h.toStatus(ctx, "score filing", err)
	}
	return &ScoreFilingResponse{Verdict: toVerdictMsg(result)}, nil
}

// GetVerdict returns one verdict of the caller's tenant.
func (h *TaxRiskServiceHandler) GetVerdict(ctx context.Context, req *GetVerdictRequest) (*GetVerdictResponse, error) {
	if err := requireRole(ctx, auth.RoleAdmin, auth.RoleInvestigator, auth.RoleAuditor); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, err := tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	verdictID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid id: %v", err)
	}

	result, err := h.getVerdict.Execute(ctx, dto.GetVerdictRequest{TenantID: tenantID, VerdictID: verdictID})
	if err != nil {
		return nil, h.toStatus(ctx, "get verdict", err)
	}
	return &GetVerdictResponse{Verdict: toVerdictMsg(result)}, nil
}

// ListVerdicts returns a page of a business's verdicts.
func (h *TaxRiskServiceHandler) ListVerdicts(ctx context.Context, req *ListVerdictsRequest) (*ListVerdictsResponse, error) {
	if err := requireRole(ctx, auth.RoleAdmin, auth.RoleInvestigator, auth.RoleAuditor); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, err := tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	result, err := h.listVerdicts.Execute(ctx, dto.ListVerdictsRequest{
		TenantID:   tenantID,
		BusinessID: req.BusinessID,
		Limit:      int(req.Limit),
		Offset:     int(req.Offset),
	})
	if err != nil {
		return nil, h.toStatus(ctx, "list verdicts", err)
	}

	resp := &ListVerdictsResponse{Verdicts: make([]*VerdictMsg, 0, len(result.Verdicts))}
	for _, v := range result.Verdicts {
		resp.Verdicts = append(resp.Verdicts, toVerdictMsg(v))
	}
	return resp, nil
}

// toStatus maps use-case errors onto gRPC codes. Unknown errors are logged and hidden.
func (h *TaxRiskServiceHandler) toStatus(ctx context.Context, op string, err error) error {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationStatus(verr)
	case errors.Is(err, usecase.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, usecase.ErrVerdictNotFound):
		return status.Error(codes.NotFound, "verdict not found")
	case errors.Is(err, service.ErrNoScorersAvailable):
		return status.Error(codes.FailedPrecondition, "no scorer produced a usable result")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, op+" timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, op+" cancelled")
	}

	h.logger.ErrorContext(ctx, "failed to "+op, slog.String("error", err.Error()))
	return status.Error(codes.Internal, "internal error")
}

func validationStatus(verr *model.ValidationError) error {
	st := status.New(codes.InvalidArgument, verr.Error())

	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	br := &errdetails.BadRequest{}
	for _, f := range fields {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       f,
			Description: verr.Fields[f],
		})
	}
	if detailed, err := st.WithDetails(br); err == nil {
		return detailed.Err()
	}
	return st.Err()
}

func toVerdictMsg(v dto.VerdictResponse) *VerdictMsg {
	msg := &VerdictMsg{
		ID:                  v.ID.String(),
		BusinessID:          v.BusinessID,
		BusinessCategory:    v.BusinessCategory,
		DeclaredRevenue:     v.DeclaredRevenue,
		ExpectedRevenueLow:  v.ExpectedRevenueLow,
		ExpectedRevenueHigh: v.ExpectedRevenueHigh,
		EstimateMethod:      v.EstimateMethod,
		RevenueGapRatio:     v.RevenueGapRatio,
		FinalScore:          v.FinalScore,
		RiskTier:            v.RiskTier,
		MLGroupScore:        v.MLGroupScore,
		AIGroupScore:        v.AIGroupScore,
		Partial:             v.Partial,
		Explanation:         v.Explanation,
		Recommendations:     v.Recommendations,
		Scores:              make([]ScoreMsg, 0, len(v.Scores)),
		Excluded:            make([]ExcludedMsg, 0, len(v.Excluded)),
		MatchedPatterns:     make([]PatternMsg, 0, len(v.MatchedPatterns)),
		RiskFactors:         make([]RiskFactorMsg, 0, len(v.RiskFactors)),
		ScoredAt:            v.ScoredAt.Format(time.RFC3339Nano),
	}
	for _, s := range v.Scores {
		msg.Scores = append(msg.Scores, ScoreMsg(s))
	}
	for _, x := range v.Excluded {
		msg.Excluded = append(msg.Excluded, ExcludedMsg(x))
	}
	for _, p := range v.MatchedPatterns {
		msg.MatchedPatterns = append(msg.MatchedPatterns, PatternMsg(p))
	}
	for _, f := range v.RiskFactors {
		msg.RiskFactors = append(msg.RiskFactors, RiskFactorMsg(f))
	}
	return msg
}
