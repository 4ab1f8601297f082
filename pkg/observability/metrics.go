package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	ServiceName string
	// Registerer defaults to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// InitMetrics wires an OTel meter provider to a Prometheus exporter, installs it
// globally, and returns the /metrics handler for the same registry.
func InitMetrics(cfg MetricsConfig) (*sdkmetric.MeterProvider, http.Handler, error) {
	reg, gath := cfg.Registerer, cfg.Gatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gath == nil {
		gath = prometheus.DefaultGatherer
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, fmt.Errorf("observability: prometheus exporter: %w", err)
	}

	res, err := serviceResource(cfg.ServiceName)
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return provider, promhttp.HandlerFor(gath, promhttp.HandlerOpts{}), nil
}

func serviceResource(name string) (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(name)))
	if err != nil {
		return nil, fmt.Errorf("observability: resource: %w", err)
	}
	return res, nil
}

// Shutdown flushes a provider within ctx. Nil providers are ignored.
func Shutdown(ctx context.Context, providers ...interface{ Shutdown(context.Context) error }) error {
	var first error
	for _, p := range providers {
		if p == nil {
			continue
		}
		if err := p.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
