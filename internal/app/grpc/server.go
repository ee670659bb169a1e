package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/spounge-ai/ffproxy/internal/app/grpc/interceptors"
	"github.com/spounge-ai/ffproxy/pkg/patterns/lifecycle"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name probes query for the proxy's readiness.
const ServiceName = "ffproxy.v1.AccountProxy"

const defaultPollInterval = 15 * time.Second

// HealthSource reports readiness, typically the token refresher.
type HealthSource interface {
	Health(ctx context.Context) lifecycle.HealthStatus
}

// Server exposes the standard gRPC health service. Its serving status
// follows the health source: SERVING while at least one region holds a
// valid token.
type Server struct {
	grpcServer   *grpc.Server
	healthSrv    *health.Server
	source       HealthSource
	lis          net.Listener
	pollInterval time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New listens on port (0 picks a free port) and returns the server and the bound port.
func New(port int, source HealthSource, logger *slog.Logger) (*Server, int, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to listen: %w", err)
	}
	bound := lis.Addr().(*net.TCPAddr).Port

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		interceptors.UnaryRecoveryInterceptor(logger),
		interceptors.UnaryLoggingInterceptor(logger),
	))

	healthSrv := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer:   grpcServer,
		healthSrv:    healthSrv,
		source:       source,
		lis:          lis,
		pollInterval: defaultPollInterval,
		logger:       logger,
	}, bound, nil
}

// Start publishes the initial status and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.publish(ctx)
	go s.poll(pollCtx, s.done)

	go func() {
		s.logger.Info("gRPC health server listening", "address", s.lis.Addr().String())
		if err := s.grpcServer.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("gRPC health server failed", "error", err)
		}
	}()
	return nil
}

func (s *Server) poll(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.publish(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) publish(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if s.source.Health(ctx).Ready {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.healthSrv.SetServingStatus("", status)
	s.healthSrv.SetServingStatus(ServiceName, status)
}

// Stop marks the server NOT_SERVING and drains in-flight calls.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.logger.Info("stopping gRPC health server")
	s.healthSrv.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		_ = s.lis.Close()
		return nil
	case <-ctx.Done():
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

func (s *Server) Health(ctx context.Context) lifecycle.HealthStatus {
	return s.source.Health(ctx)
}

var _ lifecycle.ManagedResource = (*Server)(nil)
