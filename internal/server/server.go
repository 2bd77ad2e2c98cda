// Package server assembles the HTTP surface of the gateway: one
// webhook endpoint pair per registered provider, probe endpoints and
// Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/aviotgw/internal/adapter"
	"github.com/vyrodovalexey/aviotgw/internal/config"
	"github.com/vyrodovalexey/aviotgw/internal/health"
	"github.com/vyrodovalexey/aviotgw/internal/lora"
	"github.com/vyrodovalexey/aviotgw/internal/middleware"
	"github.com/vyrodovalexey/aviotgw/internal/observability"
)

// ginModeOnce ensures gin.SetMode is only called once.
var ginModeOnce sync.Once

// Options carries the collaborators the server routes requests to.
type Options struct {
	Config      *config.ServerConfig
	Adapter     *adapter.Adapter
	Providers   *lora.Registry
	AuthHandler gin.HandlerFunc
	Checker     *health.Checker
	RateLimiter *middleware.RateLimiter
	Logger      observability.Logger
	ServiceName string
}

// Server is the HTTP server of the gateway.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *config.ServerConfig
	logger     observability.Logger
	mu         sync.Mutex
	running    bool
}

// New assembles the server. The provider endpoints are registered
// once at startup from the immutable provider registry.
func New(opts Options) (*Server, error) {
	if opts.Adapter == nil || opts.Providers == nil || opts.AuthHandler == nil {
		return nil, fmt.Errorf("adapter, providers and auth handler are required")
	}

	cfg := opts.Config
	if cfg == nil {
		defaults := config.DefaultConfig().Server
		cfg = &defaults
	}

	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.RequestID())

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "aviotgw"
	}
	engine.Use(middleware.Tracing(serviceName))

	engine.Use(middleware.LoggingWithConfig(middleware.LoggingConfig{
		Logger:    logger,
		SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
	}))

	if opts.RateLimiter != nil {
		engine.Use(middleware.RateLimit(opts.RateLimiter))
	}

	if cfg.MaxRequestBodySize > 0 {
		limit := cfg.MaxRequestBodySize
		engine.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
			c.Next()
		})
	}

	for _, provider := range opts.Providers.Providers() {
		provider := provider
		segment := "/" + provider.PathSegment()

		engine.POST(segment, opts.AuthHandler, func(c *gin.Context) {
			opts.Adapter.HandleProviderRoute(c, provider)
		})
		engine.OPTIONS(segment, opts.Adapter.HandleOptionsRoute)
	}

	if opts.Checker != nil {
		engine.GET("/healthz", opts.Checker.HealthHandler())
		engine.GET("/readyz", opts.Checker.ReadinessHandler())
	}

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}, nil
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start runs the listener until it fails or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()

		return fmt.Errorf("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()

		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
