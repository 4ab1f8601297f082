package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"

	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/service"
)

var (
	breakerStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taxrisk_judge_breaker_state",
		Help: "Current state of judge circuit breakers (0=closed, 0.5=half-open, 1=open)",
	}, []string{"provider"})

	breakerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxrisk_judge_requests_total",
		Help: "Judge provider calls by outcome",
	}, []string{"provider", "outcome"})

	breakerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxrisk_judge_breaker_state_changes_total",
		Help: "Total number of judge circuit breaker state transitions",
	}, []string{"provider", "from", "to"})
)

// BreakerSettings tunes a provider's circuit breaker.
type BreakerSettings struct {
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold uint32
	HalfOpenRequests uint32
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}
	return s
}

// BreakerProvider guards a JudgeProvider with a circuit breaker so a failing
// backend is skipped quickly instead of costing every request its full timeout.
type BreakerProvider struct {
	next   port.JudgeProvider
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewBreakerProvider wraps next. Caller cancellation does not count as a provider failure.
func NewBreakerProvider(next port.JudgeProvider, settings BreakerSettings, logger *slog.Logger) *BreakerProvider {
	s := settings.withDefaults()
	name := next.Name()

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerStateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			breakerStateGauge.WithLabelValues(name).Set(breakerStateValue(to))
			logger.Warn("judge circuit breaker state changed",
				slog.String("provider", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	breakerStateGauge.WithLabelValues(name).Set(breakerStateValue(gobreaker.StateClosed))

	return &BreakerProvider{next: next, cb: cb, logger: logger}
}

func (p *BreakerProvider) Name() string { return p.next.Name() }

// State reports the breaker state, e.g. for readiness checks.
func (p *BreakerProvider) State() gobreaker.State { return p.cb.State() }

// Complete forwards to the wrapped provider unless the breaker is open.
func (p *BreakerProvider) Complete(ctx context.Context, req port.JudgeRequest) (string, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		return p.next.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			breakerRequestsTotal.WithLabelValues(p.Name(), "rejected").Inc()
			return "", fmt.Errorf("%w: %s circuit %s", service.ErrProvider, p.Name(), err)
		}
		breakerRequestsTotal.WithLabelValues(p.Name(), "error").Inc()
		return "", err
	}
	breakerRequestsTotal.WithLabelValues(p.Name(), "ok").Inc()
	return out.(string), nil
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}
