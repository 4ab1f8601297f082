package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// ServiceName is reported by the probes.
const ServiceName = "taxrisk"

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler provides HTTP health check endpoints for the tax risk service.
type HealthHandler struct {
	logger    *slog.Logger
	startTime time.Time
	checks    map[string]ReadinessCheck
	info      func() map[string]any
	timeout   time.Duration
}

// HealthOption customizes a HealthHandler.
type HealthOption func(*HealthHandler)

// WithCheck adds a named readiness check. A failing check makes /readyz return 503.
func WithCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandler) { h.checks[name] = check }
}

// WithInfo attaches static facts (loaded models, configured judges) to /readyz.
func WithInfo(info func() map[string]any) HealthOption {
	return func(h *HealthHandler) { h.info = info }
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(logger *slog.Logger, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		logger:    logger,
		startTime: time.Now(),
		checks:    map[string]ReadinessCheck{},
		timeout:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the JSON response for readiness checks.
type ReadinessResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
	Info    map[string]any    `json:"info,omitempty"`
}

// RegisterRoutes registers health endpoints on the provided ServeMux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz handles liveness probe requests.
func (h *HealthHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Readyz runs every readiness check under a shared deadline.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadinessResponse{Status: "ready", Service: ServiceName, Checks: make(map[string]string, len(names))}
	code := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WarnContext(ctx, "readiness check failed", slog.String("check", name), slog.String("error", err.Error()))
			resp.Checks[name] = err.Error()
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	if h.info != nil {
		resp.Info = h.info()
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
