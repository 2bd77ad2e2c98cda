// Package main is the entry point for the IoT ingestion gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/aviotgw/internal/adapter"
	"github.com/vyrodovalexey/aviotgw/internal/auth"
	"github.com/vyrodovalexey/aviotgw/internal/config"
	"github.com/vyrodovalexey/aviotgw/internal/credentials"
	"github.com/vyrodovalexey/aviotgw/internal/downstream"
	"github.com/vyrodovalexey/aviotgw/internal/health"
	"github.com/vyrodovalexey/aviotgw/internal/lora"
	"github.com/vyrodovalexey/aviotgw/internal/middleware"
	"github.com/vyrodovalexey/aviotgw/internal/observability"
	"github.com/vyrodovalexey/aviotgw/internal/registry"
	"github.com/vyrodovalexey/aviotgw/internal/server"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	app := initApplication(cfg, logger)

	runGateway(app, flags.configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GATEWAY_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("aviotgw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.GatewayConfig {
	logger.Info("starting aviotgw",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.String("registry", cfg.Registry.File),
		observability.Int("providers", len(cfg.Providers)),
		observability.Bool("basic_auth", cfg.Auth.Basic.Enabled),
		observability.Bool("jwt_auth", cfg.Auth.JWT.Enabled),
		observability.Bool("tenant_cache", cfg.Redis.Enabled),
	)

	return cfg
}

// application holds all application components.
type application struct {
	server      *server.Server
	senders     *downstream.KafkaSenderFactory
	rateLimiter *middleware.RateLimiter
	redisClient *redis.Client
	tracer      *observability.Tracer

	mu     sync.RWMutex
	config *config.GatewayConfig
}

// applyConfig records a reloaded configuration. Listener, kafka and
// registry settings take effect on the next restart; the recorded
// config is what a restart will start from.
func (a *application) applyConfig(cfg *config.GatewayConfig) {
	a.mu.Lock()
	a.config = cfg
	a.mu.Unlock()
}

// currentConfig returns the most recently loaded configuration.
func (a *application) currentConfig() *config.GatewayConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.config
}

// initApplication initializes all application components.
func initApplication(cfg *config.GatewayConfig, logger observability.Logger) *application {
	tracer := initTracer(cfg, logger)

	encoder := credentials.NewBCryptEncoder(cfg.CredentialPolicy.MaxBcryptIterations)

	deviceRegistry, err := registry.NewFileRegistry(
		cfg.Registry.File,
		encoder,
		cfg.CredentialPolicy.HashAlgorithmsWhitelist,
		cfg.CredentialPolicy.MaxBcryptIterations,
		registry.WithFileRegistryLogger(logger),
		registry.WithAuthorityFiltering(cfg.Tenant.FilterExpiredAuthorities),
	)
	if err != nil {
		logger.Fatal("failed to load device registry", observability.Error(err))
	}

	breakerSettings := registry.DefaultBreakerSettings()
	var tenants registry.TenantClient = registry.NewBreakerTenantClient(deviceRegistry, breakerSettings, logger)
	registrations := registry.NewBreakerRegistrationClient(deviceRegistry, breakerSettings, logger)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		tenants = registry.NewCachedTenantClient(tenants, redisClient, cfg.Redis.TTL,
			registry.WithCacheLogger(logger))
	}

	senders, err := downstream.NewKafkaSenderFactory(&cfg.Kafka, downstream.WithKafkaLogger(logger))
	if err != nil {
		logger.Fatal("failed to create kafka sender factory", observability.Error(err))
	}

	messageAdapter := adapter.New(tenants, registrations, senders, adapter.WithLogger(logger))

	providers := initProviders(cfg, logger)
	authHandler := initAuthHandler(cfg, deviceRegistry, encoder, logger)

	checker := health.NewChecker(version)
	checker.RegisterCheck("kafka", health.KafkaCheck(cfg.Kafka.Brokers))
	if redisClient != nil {
		checker.RegisterCheck("redis", health.RedisCheck(redisClient))
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.PerClient,
			middleware.WithRateLimiterLogger(logger))
	}

	srv, err := server.New(server.Options{
		Config:      &cfg.Server,
		Adapter:     messageAdapter,
		Providers:   providers,
		AuthHandler: authHandler,
		Checker:     checker,
		RateLimiter: rateLimiter,
		Logger:      logger,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		logger.Fatal("failed to create server", observability.Error(err))
	}

	return &application{
		server:      srv,
		senders:     senders,
		rateLimiter: rateLimiter,
		redisClient: redisClient,
		tracer:      tracer,
		config:      cfg,
	}
}

// initTracer initializes the tracer.
func initTracer(cfg *config.GatewayConfig, logger observability.Logger) *observability.Tracer {
	tracer, err := observability.NewTracer(cfg.Tracing)
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}

	return tracer
}

// initProviders builds the provider registry from the configured
// provider names.
func initProviders(cfg *config.GatewayConfig, logger observability.Logger) *lora.Registry {
	available := map[string]func() lora.Provider{
		"ttn":        lora.NewTTNProvider,
		"chirpstack": lora.NewChirpStackProvider,
	}

	providers := make([]lora.Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		constructor, ok := available[name]
		if !ok {
			logger.Fatal("unknown provider", observability.String("provider", name))
		}
		providers = append(providers, constructor())
	}

	providerRegistry, err := lora.NewRegistry(providers...)
	if err != nil {
		logger.Fatal("failed to build provider registry", observability.Error(err))
	}

	return providerRegistry
}

// initAuthHandler builds the authentication middleware from the
// configured schemes.
func initAuthHandler(
	cfg *config.GatewayConfig,
	credentialsClient registry.CredentialsClient,
	encoder credentials.PasswordEncoder,
	logger observability.Logger,
) gin.HandlerFunc {
	middlewareConfig := auth.MiddlewareConfig{Logger: logger}

	if cfg.Auth.Basic.Enabled {
		middlewareConfig.Basic = auth.NewBasicValidator(credentialsClient, encoder,
			auth.WithBasicLogger(logger))
	}

	if cfg.Auth.JWT.Enabled {
		options := []auth.JWTValidatorOption{auth.WithJWTLogger(logger)}
		if cfg.Auth.JWT.Issuer != "" {
			options = append(options, auth.WithIssuer(cfg.Auth.JWT.Issuer))
		}
		if cfg.Auth.JWT.Audience != "" {
			options = append(options, auth.WithAudience(cfg.Auth.JWT.Audience))
		}

		validator, err := auth.NewJWTValidator([]byte(cfg.Auth.JWT.Secret), options...)
		if err != nil {
			logger.Fatal("failed to create jwt validator", observability.Error(err))
		}
		middlewareConfig.Token = validator
	}

	return auth.Middleware(middlewareConfig)
}

// startConfigWatcher starts watching the configuration file for
// changes. A failure to watch is not fatal; the gateway keeps running
// with the configuration it started with.
func startConfigWatcher(
	app *application,
	configPath string,
	logger observability.Logger,
	opts ...config.WatcherOption,
) *config.Watcher {
	opts = append(opts, config.WithWatcherLogger(logger))

	watcher, err := config.NewWatcher(configPath, func(newCfg *config.GatewayConfig) {
		app.applyConfig(newCfg)
		logger.Info("configuration change recorded, restart to apply",
			observability.Int("providers", len(newCfg.Providers)),
			observability.String("log_level", newCfg.Logging.Level),
		)
	}, opts...)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}

	return watcher
}

// runGateway runs the gateway until a shutdown signal arrives.
func runGateway(app *application, configPath string, logger observability.Logger) {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start(context.Background())
	}()

	watcher := startConfigWatcher(app, configPath, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", observability.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Error("failed to stop config watcher", observability.Error(err))
		}
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}

	if err := app.senders.Close(); err != nil {
		logger.Error("failed to close kafka senders", observability.Error(err))
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", observability.Error(err))
		}
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("gateway stopped")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
