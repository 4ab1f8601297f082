package rest

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/bibbank/taxrisk/pkg/auth"
)

// ServerOptions configures the HTTP server. Only Address and Health are required.
type ServerOptions struct {
	Address string
	Health  *HealthHandler
	Metrics http.Handler

	// API is mounted under /api/ behind authentication and rate limiting.
	API *VerdictHandler
	JWT *auth.JWTService
	// RateLimit is requests per second across all API callers; zero disables it.
	RateLimit float64
	Burst     int
}

// NewServer builds the HTTP server: probes, metrics, and the optional JSON API.
func NewServer(opts ServerOptions, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	opts.Health.RegisterRoutes(mux)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	if opts.API != nil {
		apiMux := http.NewServeMux()
		opts.API.RegisterRoutes(apiMux)

		middlewares := []func(http.Handler) http.Handler{LoggingMiddleware(logger)}
		if opts.RateLimit > 0 {
			burst := max(opts.Burst, 1)
			middlewares = append(middlewares, RateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
		}
		if opts.JWT != nil {
			middlewares = append(middlewares, AuthMiddleware(opts.JWT))
		} else {
			logger.Warn("HTTP API authentication disabled: no JWT configuration")
		}
		mux.Handle("/api/", chain(apiMux, middlewares...))
	}

	return &http.Server{
		Addr:              opts.Address,
		Handler:           otelhttp.NewHandler(mux, "taxrisk.http", otelhttp.WithFilter(notProbe)),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func notProbe(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}
