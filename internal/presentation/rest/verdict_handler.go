package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/bibbank/taxrisk/internal/application/dto"
	"github.com/bibbank/taxrisk/internal/application/usecase"
	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/pkg/auth"
)

// maxFilingBytes bounds a score request body.
const maxFilingBytes = 1 << 20

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// VerdictHandler exposes the scoring use cases as a JSON API.
type VerdictHandler struct {
	scoreFiling  *usecase.ScoreFiling
	getVerdict   *usecase.GetVerdict
	listVerdicts *usecase.ListVerdicts
	logger       *slog.Logger
}

// NewVerdictHandler creates the JSON API handler.
func NewVerdictHandler(
	scoreFiling *usecase.ScoreFiling,
	getVerdict *usecase.GetVerdict,
	listVerdicts *usecase.ListVerdicts,
	logger *slog.Logger,
) *VerdictHandler {
	return &VerdictHandler{
		scoreFiling:  scoreFiling,
		getVerdict:   getVerdict,
		listVerdicts: listVerdicts,
		logger:       logger,
	}
}

// RegisterRoutes registers the API endpoints on the provided ServeMux.
func (h *VerdictHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/filings/score", h.ScoreFiling)
	mux.HandleFunc("GET /api/v1/verdicts/{id}", h.GetVerdict)
	mux.HandleFunc("GET /api/v1/businesses/{business_id}/verdicts", h.ListVerdicts)
}

// ScoreFiling scores the filing in the request body.
func (h *VerdictHandler) ScoreFiling(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := authorize(w, r, auth.RoleAdmin, auth.RoleInvestigator, auth.RoleIngest)
	if !ok {
		return
	}

	var filing model.RawFiling
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFilingBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&filing); err != nil {
		writeError(w, http.StatusBadRequest, "malformed filing: "+err.Error(), nil)
		return
	}

	resp, err := h.scoreFiling.Execute(r.Context(), dto.ScoreFilingRequest{TenantID: tenantID, Filing: filing})
	if err != nil {
		h.writeUseCaseError(r.Context(), w, "score filing", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetVerdict returns one verdict of the caller's tenant.
func (h *VerdictHandler) GetVerdict(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := authorize(w, r, auth.RoleAdmin, auth.RoleInvestigator, auth.RoleAuditor)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid verdict id", nil)
		return
	}

	resp, err := h.getVerdict.Execute(r.Context(), dto.GetVerdictRequest{TenantID: tenantID, VerdictID: id})
	if err != nil {
		h.writeUseCaseError(r.Context(), w, "get verdict", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListVerdicts pages through a business's verdicts, newest first.
func (h *VerdictHandler) ListVerdicts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := authorize(w, r, auth.RoleAdmin, auth.RoleInvestigator, auth.RoleAuditor)
	if !ok {
		return
	}
	limit, err1 := queryInt(r, "limit")
	offset, err2 := queryInt(r, "offset")
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	resp, err := h.listVerdicts.Execute(r.Context(), dto.ListVerdictsRequest{
		TenantID:   tenantID,
		BusinessID: r.PathValue("business_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.writeUseCaseError(r.Context(), w, "list verdicts", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func authorize(w http.ResponseWriter, r *http.Request, roles ...string) (uuid.UUID, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication", nil)
		return uuid.Nil, false
	}
	if !claims.HasAnyRole(roles...) {
		writeError(w, http.StatusForbidden, "insufficient role", nil)
		return uuid.Nil, false
	}
	if claims.TenantID == uuid.Nil {
		writeError(w, http.StatusForbidden, "token carries no tenant", nil)
		return uuid.Nil, false
	}
	return claims.TenantID, true
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

func (h *VerdictHandler) writeUseCaseError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "invalid filing", verr.Fields)
	case errors.Is(err, usecase.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, usecase.ErrVerdictNotFound):
		writeError(w, http.StatusNotFound, "verdict not found", nil)
	case errors.Is(err, service.ErrNoScorersAvailable):
		writeError(w, http.StatusServiceUnavailable, "no scorer produced a usable result", nil)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, op+" timed out", nil)
	default:
		h.logger.ErrorContext(ctx, "failed to "+op, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func writeError(w http.ResponseWriter, code int, msg string, fields map[string]string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Fields: fields})
}
