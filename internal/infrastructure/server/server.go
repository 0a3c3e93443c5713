package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	bridge "github.com/GriffinCanCode/SophiChat/client/internal/api/http"
	"github.com/GriffinCanCode/SophiChat/client/internal/api/middleware"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/config"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/tracing"
)

// shutdownTimeout bounds graceful shutdown of open requests
const shutdownTimeout = 5 * time.Second

// Deps are the components the bridge exposes
type Deps struct {
	Chat    bridge.Chat
	Blobs   bridge.AudioStore
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	Version string
}

// Server wraps the bridge HTTP server
type Server struct {
	router *gin.Engine
	addr   string
	tracer *tracing.Tracer
	logger *logging.Logger
}

// NewServer builds the router and middleware stack
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	tracer := tracing.New("bridge", logger)

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(deps.Metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := bridge.NewHandlers(deps.Chat, deps.Blobs, logger, deps.Version)
	bridge.RegisterRoutes(router, handlers)
	router.GET("/metrics", gin.WrapH(metricsHandler(deps.Metrics)))

	return &Server{
		router: router,
		addr:   cfg.Bridge.Addr,
		tracer: tracer,
		logger: logger.Named("server"),
	}
}

// Handler returns the root handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.tracer.Close()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("Bridge API listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down bridge API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down bridge: %w", err)
	}
	return nil
}

func metricsHandler(metrics *monitoring.Metrics) http.Handler {
	if reg := metrics.Registry(); reg != nil {
		return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	return promhttp.Handler()
}
