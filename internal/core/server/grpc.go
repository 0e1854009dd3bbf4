// Package server runs the gRPC lookup API and the metrics endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/solatis/ukpostcode/internal/core/api"
	"github.com/solatis/ukpostcode/internal/core/auth"
	"github.com/solatis/ukpostcode/internal/core/config"
	"github.com/solatis/ukpostcode/internal/core/metrics"
)

// shutdownTimeout bounds GracefulStop before a forced stop.
const shutdownTimeout = 30 * time.Second

// GRPCServer manages the gRPC server lifecycle.
type GRPCServer struct {
	server  *grpc.Server
	health  *health.Server
	config  *config.LookupAPIConfig
	logger  *zap.Logger
	metrics *http.Server
}

// NewGRPCServer creates the server with logging, timeout and auth interceptors
// in that order, and registers the lookup and health services.
func NewGRPCServer(cfg *config.LookupAPIConfig, service api.PostcodeServiceServer, authenticator *auth.Authenticator, m *metrics.Metrics, logger *zap.Logger) (*GRPCServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	server := grpc.NewServer(
		grpc.MaxConcurrentStreams(uint32(cfg.MaxConnections)),
		grpc.ConnectionTimeout(cfg.RequestTimeout),
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(logger),
			TimeoutInterceptor(cfg.RequestTimeout),
			authenticator.UnaryInterceptor(),
		),
	)
	api.RegisterPostcodeServiceServer(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	s := &GRPCServer{
		server: server,
		health: healthServer,
		config: cfg,
		logger: logger,
	}
	if m != nil && cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		s.metrics = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s, nil
}

// Start binds the configured address and serves until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	addr := s.config.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve runs on an existing listener. The metrics endpoint, if configured,
// runs alongside and a failure of either stops both.
func (s *GRPCServer) Serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 2)

	if s.metrics != nil {
		go func() {
			s.logger.Info("metrics endpoint listening", zap.String("addr", s.metrics.Addr))
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	go func() {
		s.logger.Info("lookup API listening", zap.String("addr", listener.Addr().String()))
		errCh <- s.server.Serve(listener)
	}()

	err := <-errCh
	if err != nil {
		s.server.Stop()
		if s.metrics != nil {
			_ = s.metrics.Close()
		}
	}
	return err
}

// Shutdown marks the service NOT_SERVING, drains in-flight calls and stops
// the metrics endpoint. Forces a stop after shutdownTimeout or when ctx ends.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	if s.metrics != nil {
		mctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := s.metrics.Shutdown(mctx); err != nil {
			s.logger.Warn("metrics endpoint shutdown", zap.Error(err))
		}
	}

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}
