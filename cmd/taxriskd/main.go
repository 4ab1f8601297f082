package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/bibbank/taxrisk/internal/application/usecase"
	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/internal/infrastructure/config"
	"github.com/bibbank/taxrisk/internal/infrastructure/ensemble"
	"github.com/bibbank/taxrisk/internal/infrastructure/kafka"
	"github.com/bibbank/taxrisk/internal/infrastructure/messaging"
	"github.com/bibbank/taxrisk/internal/infrastructure/ml"
	"github.com/bibbank/taxrisk/internal/infrastructure/postgres"
	"github.com/bibbank/taxrisk/internal/infrastructure/telemetry"
	grpcpresentation "github.com/bibbank/taxrisk/internal/presentation/grpc"
	"github.com/bibbank/taxrisk/internal/presentation/rest"
	"github.com/bibbank/taxrisk/pkg/auth"
	pkgkafka "github.com/bibbank/taxrisk/pkg/kafka"
	"github.com/bibbank/taxrisk/pkg/observability"
	pgutil "github.com/bibbank/taxrisk/pkg/postgres"
	"github.com/bibbank/taxrisk/pkg/tlsutil"
)

const serviceName = "taxrisk"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg := config.Load()

	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	logger.Info("starting taxrisk",
		slog.String("http_port", cfg.HTTPPort),
		slog.String("grpc_port", cfg.GRPCPort),
		slog.String("environment", cfg.Environment),
	)

	scoringCfg, err := config.LoadScoring(cfg.ScoringConfigPath)
	if err != nil {
		logger.Error("invalid scoring config", slog.String("path", cfg.ScoringConfigPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Telemetry.
	tracerProvider, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: serviceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    !cfg.IsProduction(),
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialize tracer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: serviceName})
	if err != nil {
		logger.Error("failed to initialize metrics", slog.String("error", err.Error()))
		os.Exit(1)
	}
	observer, err := telemetry.NewObserver(meterProvider, otel.GetTracerProvider())
	if err != nil {
		logger.Error("failed to create scoring observer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Database connection.
	if cfg.AutoMigrate {
		if err := pgutil.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			logger.Error("failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := pgutil.NewPool(dbCtx, pgutil.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	dbCancel()
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Models and judges.
	registry := ml.LoadRegistry(scoringCfg.ML, logger)
	defer registry.Close()

	engine, err := ensemble.NewEngine(scoringCfg, registry, ensemble.NewHTTPClient(), logger, service.WithObserver(observer))
	if err != nil {
		logger.Error("failed to build scoring engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Events.
	kafkaCfg := pkgkafka.Config{
		Brokers:        cfg.KafkaBrokers,
		ConsumerGroup:  cfg.ConsumerGroup,
		TLS:            cfg.KafkaTLS,
		SASLEnabled:    cfg.KafkaSASLMech != "",
		SASLMechanism:  cfg.KafkaSASLMech,
		SASLUsername:   cfg.KafkaSASLUser,
		SASLPassword:   cfg.KafkaSASLPassword,
		HandlerRetries: cfg.KafkaRetries,
	}

	var publisher port.EventPublisher = messaging.NewLogPublisher(logger)
	if cfg.KafkaEnabled() {
		producer, err := pkgkafka.NewProducer(kafkaCfg)
		if err != nil {
			logger.Error("failed to create kafka producer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer producer.Close()
		publisher = kafka.NewPublisher(producer, cfg.EventsTopic, logger)
	} else {
		logger.Warn("no kafka brokers configured; domain events are logged only")
	}

	// Use cases.
	repo := postgres.NewVerdictRepository(pool)
	scoreFilingUC := usecase.NewScoreFiling(repo, publisher, engine)
	getVerdictUC := usecase.NewGetVerdict(repo)
	listVerdictsUC := usecase.NewListVerdicts(repo)

	// gRPC server.
	grpcOpts := grpcpresentation.ServerOptions{
		Address:    cfg.GRPCAddress(),
		Reflection: cfg.GRPCReflection,
	}
	if cfg.AuthEnabled() {
		jwtSvc, err := auth.NewJWTService(auth.JWTConfig{
			Secret:       cfg.JWTSecret,
			PublicKeyPEM: cfg.JWTPublicKey,
			Issuer:       cfg.JWTIssuer,
		})
		if err != nil {
			logger.Error("invalid jwt configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		grpcOpts.JWT = jwtSvc
	} else if cfg.IsProduction() {
		logger.Error("JWT_SECRET or JWT_PUBLIC_KEY is required in production")
		os.Exit(1)
	}
	var tlsCfg *tls.Config
	if cfg.TLSEnabled() {
		tlsCfg, err = tlsutil.LoadServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile, cfg.TLSCAFile)
		if err != nil {
			logger.Error("failed to load TLS credentials", slog.String("error", err.Error()))
			os.Exit(1)
		}
		grpcOpts.Creds = tlsutil.GRPCCredentials(tlsCfg)
	}

	grpcHandler := grpcpresentation.NewTaxRiskServiceHandler(scoreFilingUC, getVerdictUC, listVerdictsUC, logger)
	grpcServer := grpcpresentation.NewServer(grpcHandler, grpcOpts, logger)

	// HTTP server (probes, metrics, JSON API).
	healthHandler := rest.NewHealthHandler(logger,
		rest.WithCheck("database", func(ctx context.Context) error { return pgutil.HealthCheck(ctx, pool) }),
		rest.WithCheck("scorers", func(context.Context) error {
			if len(registry.Loaded()) == 0 && len(ensemble.ConfiguredJudges(scoringCfg)) == 0 {
				return errors.New("no model loaded and no judge configured")
			}
			return nil
		}),
		rest.WithInfo(func() map[string]any {
			return map[string]any{
				"models": registry.Loaded(),
				"judges": ensemble.ConfiguredJudges(scoringCfg),
			}
		}),
	)
	httpServer := rest.NewServer(rest.ServerOptions{
		Address:   cfg.HTTPAddress(),
		Health:    healthHandler,
		Metrics:   metricsHandler,
		API:       rest.NewVerdictHandler(scoreFilingUC, getVerdictUC, listVerdictsUC, logger),
		JWT:       grpcOpts.JWT,
		RateLimit: cfg.APIRateLimit,
		Burst:     cfg.APIRateBurst,
	}, logger)
	httpServer.TLSConfig = tlsCfg
	errCh := make(chan error, 3)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", slog.String("address", cfg.HTTPAddress()), slog.Bool("tls", tlsCfg != nil))
		serve := httpServer.ListenAndServe
		if tlsCfg != nil {
			serve = func() error { return httpServer.ListenAndServeTLS("", "") }
		}
		if err := serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if cfg.ConsumeFilings && cfg.KafkaEnabled() {
		consumer, err := pkgkafka.NewConsumer(kafkaCfg, cfg.FilingsTopic, kafka.NewFilingHandler(scoreFilingUC, logger), logger)
		if err != nil {
			logger.Error("failed to create filings consumer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("filings consumer error: %w", err)
			}
		}()
	}

	logger.Info("taxrisk started",
		slog.String("grpc_address", cfg.GRPCAddress()),
		slog.String("http_address", cfg.HTTPAddress()),
		slog.Any("models", registry.Loaded()),
		slog.Any("judges", ensemble.ConfiguredJudges(scoringCfg)),
	)

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", slog.String("error", err.Error()))
	}

	// Graceful shutdown.
	logger.Info("shutting down taxrisk")

	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}
	if err := observability.Shutdown(shutdownCtx, tracerProvider, meterProvider); err != nil {
		logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("taxrisk stopped")
}
