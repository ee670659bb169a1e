package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	"github.com/spounge-ai/ffproxy/internal/infra/config"
	"github.com/spounge-ai/ffproxy/internal/infra/ratelimit"
	"github.com/spounge-ai/ffproxy/internal/service"
	"github.com/spounge-ai/ffproxy/pkg/patterns/lifecycle"
	"golang.org/x/time/rate"
)

// Server is the public HTTP listener.
type Server struct {
	httpServer *http.Server
	lis        net.Listener
	logger     *slog.Logger
	errCh      chan error
}

// NewRouter assembles the routes and middleware chain.
func NewRouter(cfg config.ServerConfig, svc service.AccountService, classifier *app_errors.ErrorClassifier, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	NewHandler(svc, classifier, logger).Register(mux)

	mws := []Middleware{
		Recover(logger),
		RequestID(),
		Logging(logger),
		CORS(cfg.CORSOrigin),
	}
	if cfg.RateLimiter.Enabled {
		limiter := ratelimit.NewInMemoryRateLimiter(rate.Limit(cfg.RateLimiter.Rate), cfg.RateLimiter.Burst)
		mws = append(mws, RateLimit(limiter, classifier))
	}
	return Chain(mux, mws...)
}

// New binds the listening socket; port 0 picks a free one.
func New(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) (*Server, int, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to listen on port %d: %w", cfg.Port, err)
	}
	port := lis.Addr().(*net.TCPAddr).Port

	return &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		lis:    lis,
		logger: logger,
		errCh:  make(chan error, 1),
	}, port, nil
}

func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.logger.Info("HTTP server listening", "address", s.lis.Addr().String())
		if err := s.httpServer.Serve(s.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "error", err)
			s.errCh <- err
		}
	}()
	return nil
}

// Errors reports a fatal serve error.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Health(ctx context.Context) lifecycle.HealthStatus {
	return lifecycle.HealthStatus{Ready: true}
}

var _ lifecycle.ManagedResource = (*Server)(nil)
