package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/api/server"
	"github.com/feral-file/ff-marketplace/internal/config"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/emitter"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/providers/jetstream"
	"github.com/feral-file/ff-marketplace/internal/ratelimit"
	"github.com/feral-file/ff-marketplace/internal/store"
	"github.com/feral-file/ff-marketplace/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "marketplace-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Feral File Marketplace API")

	// Initialize store
	var dataStore store.Store
	switch cfg.Database.Driver {
	case config.DATABASE_DRIVER_MEMORY:
		dataStore = store.NewMemoryStore()
		logger.WarnCtx(ctx, "Using in-memory store, state is lost on shutdown")
	default:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
		}
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Connected to database",
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
			zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		)
		dataStore = store.NewPGStore(db)
	}

	// Initialize adapters
	jsonAdapter := adapter.NewJSON()
	ledgerOpts := []marketplace.Option{
		marketplace.WithClock(adapter.NewClock()),
		marketplace.WithJSON(jsonAdapter),
	}

	serviceMetrics := metrics.New()
	emitterConfig := emitter.Config{
		BatchSize:            cfg.Emitter.BatchSize,
		QueueSize:            cfg.Emitter.QueueSize,
		RetryInitialInterval: cfg.Emitter.RetryInitialInterval,
		RetryMaxElapsedTime:  cfg.Emitter.RetryMaxElapsedTime,
		Metrics:              serviceMetrics,
	}

	// Events stay in the journal when no sink is configured.
	// Each emitter keeps its own cursor so a slow sink does not hold back the others.
	var emitters []emitter.Emitter
	if cfg.NATS.URL != "" {
		publisher, err := jetstream.NewPublisher(ctx, jetstream.Config{
			URL:             cfg.NATS.URL,
			StreamName:      cfg.NATS.StreamName,
			MaxReconnects:   cfg.NATS.MaxReconnects,
			ReconnectWait:   cfg.NATS.ReconnectWait,
			ConnectionName:  cfg.NATS.ConnectionName,
			DuplicateWindow: cfg.NATS.DuplicateWindow,
		}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err))
		}

		natsConfig := emitterConfig
		natsConfig.Sink = "jetstream"
		emitters = append(emitters, emitter.NewEmitter(publisher, dataStore, jsonAdapter, natsConfig))
	} else {
		logger.WarnCtx(ctx, "NATS URL not configured, events will not be published")
	}

	if len(cfg.Webhook.Endpoints) > 0 {
		endpoints := make([]webhook.Endpoint, 0, len(cfg.Webhook.Endpoints))
		for _, ep := range cfg.Webhook.Endpoints {
			endpoints = append(endpoints, webhook.Endpoint{URL: ep.URL, Secret: ep.Secret, EventFilters: ep.Events})
		}
		publisher, err := webhook.NewPublisher(webhook.Config{Endpoints: endpoints},
			adapter.NewHTTPClient(cfg.Webhook.Timeout), adapter.NewClock(), jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create webhook publisher", zap.Error(err))
		}

		webhookConfig := emitterConfig
		webhookConfig.Sink = "webhook"
		emitters = append(emitters, emitter.NewEmitter(publisher, dataStore, jsonAdapter, webhookConfig))
	}

	defer func() {
		for _, e := range emitters {
			e.Close()
		}
	}()
	for _, e := range emitters {
		ledgerOpts = append(ledgerOpts, marketplace.WithEventSink(e))
	}

	ledger := marketplace.New(dataStore, ledgerOpts...)

	if cfg.Marketplace.AutoDeploy {
		if err := autoDeploy(ctx, ledger, cfg); err != nil {
			logger.FatalCtx(ctx, "Failed to deploy marketplace", zap.Error(err))
		}
	}

	for _, e := range emitters {
		if err := e.Start(ctx); err != nil {
			logger.FatalCtx(ctx, "Failed to start event emitter", zap.Error(err))
		}
	}

	// Create server config
	serverConfig := server.Config{
		Debug:              cfg.Debug,
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ReadTimeout:        time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:       time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:        time.Duration(cfg.Server.IdleTimeout) * time.Second,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
		},
		Metrics: serviceMetrics,
	}

	if cfg.RateLimit.Enabled {
		var redisClient adapter.Redis
		if cfg.RateLimit.RedisAddr != "" {
			redisClient = adapter.NewRedis(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB)
		}
		limiter, err := ratelimit.NewLimiter(cfg.RateLimit, redisClient, adapter.NewClock())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create rate limiter", zap.Error(err))
		}
		defer func() { _ = limiter.Close() }()
		serverConfig.RateLimiter = limiter
	}

	srv := server.New(serverConfig, ledger)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}

// autoDeploy deploys the marketplace unless the store already holds one
func autoDeploy(ctx context.Context, ledger *marketplace.Ledger, cfg *config.APIConfig) error {
	deployer, err := cfg.Marketplace.DeployerAccount()
	if err != nil {
		return err
	}
	allocations, err := cfg.Genesis.Balances()
	if err != nil {
		return err
	}

	info, err := ledger.Deploy(ctx, deployer, allocations)
	if errors.Is(err, domain.ErrAlreadyDeployed) {
		info, err = ledger.Info(ctx)
		if err != nil {
			return err
		}
		logger.InfoCtx(ctx, "Marketplace already deployed", logger.Account("contract", info.ContractAddress))
		return nil
	}
	if err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Marketplace deployed",
		logger.Account("contract", info.ContractAddress),
		logger.Account("administrator", info.Administrator),
	)
	return nil
}
