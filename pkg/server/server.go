package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mercator-hq/mailguard/pkg/config"
	"mercator-hq/mailguard/pkg/security/auth"
	"mercator-hq/mailguard/pkg/telemetry/health"
	"mercator-hq/mailguard/pkg/telemetry/metrics"
	"mercator-hq/mailguard/pkg/telemetry/tracing"
)

// Deps are the components the server routes to. Scanner, Models and Health
// are required.
type Deps struct {
	Scanner Scanner
	Models  ModelLister
	Health  *health.Checker
	Version health.VersionInfo

	// HealthPaths overrides the probe routes; empty paths use the defaults.
	HealthPaths config.HealthConfig

	// Metrics is optional; a nil collector serves no /metrics route.
	Metrics     *metrics.Collector
	MetricsPath string

	// Auth is optional; nil disables authentication.
	Auth *auth.APIKeyMiddleware

	Logger *slog.Logger
}

// Server is the mailguard HTTP server.
type Server struct {
	cfg     config.ServerConfig
	scanner Scanner
	models  ModelLister
	metrics *metrics.Collector
	logger  *slog.Logger
	handler http.Handler

	mu           sync.Mutex
	httpServer   *http.Server
	isRunning    bool
	shutdownOnce sync.Once
}

// New creates a server and builds its routes.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Scanner == nil || deps.Models == nil || deps.Health == nil {
		return nil, errors.New("server: scanner, models and health are required")
	}
	s := &Server{
		cfg:     cfg,
		scanner: deps.Scanner,
		models:  deps.Models,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.handler = s.routes(deps)
	return s, nil
}

func (s *Server) routes(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(requestID)
	r.Use(tracing.HTTPMiddleware)
	r.Use(s.observe)
	r.Use(cors(s.cfg.CORS))

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get(orDefault(deps.HealthPaths.LivenessPath, config.DefaultLivenessPath), deps.Health.LivenessHandler())
	r.Get(orDefault(deps.HealthPaths.ReadinessPath, config.DefaultReadinessPath), deps.Health.ReadinessHandler())
	r.Get(orDefault(deps.HealthPaths.VersionPath, config.DefaultVersionPath), health.VersionHandler(deps.Version))
	if deps.Metrics != nil {
		r.Handle(orDefault(deps.MetricsPath, config.DefaultMetricsPath), deps.Metrics.Handler())
	}

	r.Route("/v1", func(api chi.Router) {
		api.Use(timeout(s.cfg.RequestTimeout))
		api.Use(limitBody(s.cfg.MaxBodyBytes))
		if deps.Auth != nil {
			api.Use(deps.Auth.Handle)
		} else {
			api.Use(headerUser)
		}

		api.Post("/scan", s.handleScan)
		api.Get("/history", s.handleHistory)
		api.Get("/models", s.handleModels)
	})

	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server is already running")
	}
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.cfg.ReadTimeout,
		WriteTimeout:   s.cfg.WriteTimeout,
		IdleTimeout:    s.cfg.IdleTimeout,
		MaxHeaderBytes: s.cfg.MaxHeaderBytes,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully stops the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		running := s.isRunning
		s.mu.Unlock()
		if !running || srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		if err := srv.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
