package grpc

import (
	"fmt"
	"log/slog"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/bibbank/taxrisk/pkg/auth"
)

// ServerOptions configures the gRPC server.
type ServerOptions struct {
	Address    string
	JWT        *auth.JWTService
	Creds      credentials.TransportCredentials
	Reflection bool
}

// Server wraps the gRPC server with the scoring service handlers.
type Server struct {
	address    string
	grpcServer *grpc.Server
	health     *health.Server
	logger     *slog.Logger
}

// NewServer creates the gRPC server. Health checks bypass authentication.
func NewServer(handler *TaxRiskServiceHandler, opts ServerOptions, logger *slog.Logger) *Server {
	interceptors := []grpc.UnaryServerInterceptor{recoveryInterceptor(logger)}
	if opts.JWT != nil {
		interceptors = append(interceptors, auth.UnaryAuthInterceptor(opts.JWT, nil,
			healthpb.Health_Check_FullMethodName,
			healthpb.Health_Watch_FullMethodName,
		))
	} else {
		logger.Warn("gRPC authentication disabled: no JWT configuration")
	}
	serverOpts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}
	if opts.Creds != nil {
		serverOpts = append(serverOpts, grpc.Creds(opts.Creds))
		logger.Info("gRPC TLS enabled")
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	grpcServer := grpc.NewServer(serverOpts...)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	RegisterTaxRiskServiceServer(grpcServer, handler)

	if opts.Reflection {
		reflection.Register(grpcServer)
	}

	return &Server{
		address:    opts.Address,
		grpcServer: grpcServer,
		health:     healthServer,
		logger:     logger,
	}
}

// Start begins listening and serving gRPC requests.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	s.logger.Info("gRPC server starting", slog.String("address", listener.Addr().String()))
	return s.grpcServer.Serve(listener)
}

// Stop marks the service not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
