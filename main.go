package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/auth"
	"github.com/hotelier-tech/lingua-engine/pkg/config"
	"github.com/hotelier-tech/lingua-engine/pkg/database"
	"github.com/hotelier-tech/lingua-engine/pkg/handlers"
	"github.com/hotelier-tech/lingua-engine/pkg/mt"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
	"github.com/hotelier-tech/lingua-engine/pkg/retry"
	"github.com/hotelier-tech/lingua-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.Int("providers", len(cfg.Translation.Providers)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Database startup races container orchestration; retry transient failures.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return database.NewConnection(connectCtx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := migrateDatabase(cfg, logger); err != nil {
		return err
	}

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Repositories
	languageRepo := repositories.NewLanguageRepository(db)
	translationRepo := repositories.NewTranslationRepository(db)
	uiTranslationRepo := repositories.NewUITranslationRepository(db)
	roomTypeRepo := repositories.NewRoomTypeRepository(db)

	// Provider gateway
	gateway, err := buildGateway(cfg, logger)
	if err != nil {
		return err
	}
	pool := mt.NewWorkerPool(mt.WorkerPoolConfig{MaxConcurrent: cfg.Translation.QueueWorkers}, logger)

	// Services
	languageService := services.NewLanguageService(languageRepo, logger)
	translationService := services.NewTranslationService(
		translationRepo, languageRepo,
		cfg.Translation.ReviewRequiredByDefault,
		cfg.Translation.PendingQueryTimeout(),
		logger)
	autoTranslateService := services.NewAutoTranslateService(
		gateway, translationRepo, languageRepo, pool,
		services.AutoTranslateConfig{
			Threshold:         cfg.Translation.AutoTranslate.Threshold,
			MinimumConfidence: cfg.Translation.AutoTranslate.MinimumConfidence,
		},
		logger)
	localizationService := services.NewLocalizationService(
		roomTypeRepo, translationRepo, languageRepo, autoTranslateService, logger)
	uiTranslationService := services.NewUITranslationService(
		uiTranslationRepo, languageRepo, gateway, logger)
	statsService := services.NewStatsService(
		translationRepo, roomTypeRepo, languageRepo, localizationService,
		redisClient, cfg.Translation.CompletenessCacheTTL(), logger)

	if err := prepareRegistry(ctx, cfg, languageService, logger); err != nil {
		return err
	}

	// Auth
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		return fmt.Errorf("failed to create JWKS client: %w", err)
	}
	defer jwksClient.Close()
	authMiddleware := auth.NewMiddleware(jwksClient, logger)

	// Routes
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewLanguageHandler(languageService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewTranslationHandler(translationService, statsService, gateway, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewUITranslationHandler(uiTranslationService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewRoomTypeHandler(localizationService, statsService, logger).RegisterRoutes(mux, authMiddleware)

	// Background queue drain
	go drainQueue(ctx, autoTranslateService, logger)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           handlers.RequestLogger(logger.Named("http"), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting lingua-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// newLogger builds a production logger everywhere except local development.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// migrateDatabase runs pending schema migrations over a stdlib handle; the
// migration driver does not speak the pgx pool interface.
func migrateDatabase(cfg *config.Config, logger *zap.Logger) error {
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer func() { _ = migrationDB.Close() }()

	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// buildGateway registers the configured providers on a fresh gateway in
// priority order.
func buildGateway(cfg *config.Config, logger *zap.Logger) (*mt.Gateway, error) {
	gateway := mt.NewGateway(mt.GatewayConfig{
		MaxAttempts:    cfg.Translation.MaxProviderAttempts,
		AttemptTimeout: cfg.Translation.ProviderTimeout(),
		ChainDeadline:  cfg.Translation.ProviderDeadline(),
		Breaker:        mt.DefaultCircuitBreakerConfig(),
	}, logger)

	for _, pc := range cfg.Translation.Providers {
		if !pc.Active {
			logger.Info("skipping inactive provider", zap.String("provider", pc.Name))
			continue
		}

		settings := mt.ProviderSettings{
			Name:    pc.Name,
			APIKey:  pc.APIKey,
			BaseURL: pc.BaseURL,
			Model:   pc.Model,
			Timeout: time.Duration(pc.TimeoutMs) * time.Millisecond,
		}

		var (
			provider mt.Provider
			err      error
		)
		switch pc.Type {
		case "openai":
			provider, err = mt.NewOpenAIProvider(settings, logger)
		case "anthropic":
			provider, err = mt.NewAnthropicProvider(settings, logger)
		case "mock":
			provider = mt.NewMockProvider(pc.Name)
		default:
			err = fmt.Errorf("unknown provider type %q", pc.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %s: %w", pc.Name, err)
		}

		gateway.Register(provider)
		logger.Info("registered translation provider",
			zap.String("provider", pc.Name),
			zap.String("type", pc.Type),
			zap.Int("priority", pc.Priority))
	}

	return gateway, nil
}

// prepareRegistry repairs registry invariants and seeds languages at startup.
func prepareRegistry(ctx context.Context, cfg *config.Config, languageService *services.LanguageService, logger *zap.Logger) error {
	if _, err := languageService.EnsureSingleDefault(ctx); err != nil {
		return fmt.Errorf("failed to repair default language: %w", err)
	}

	if cfg.Translation.SeedFile != "" {
		created, err := languageService.Seed(ctx, cfg.Translation.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to seed languages: %w", err)
		}
		logger.Info("language seed applied", zap.Int("created", created))
	}
	return nil
}

// drainQueue periodically processes the auto-translation queue until shutdown.
func drainQueue(ctx context.Context, queue *services.AutoTranslateService, logger *zap.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if queue.QueueDepth() == 0 {
				continue
			}
			translated, failed := queue.ProcessQueued(ctx)
			if translated > 0 || failed > 0 {
				logger.Info("auto-translation queue drained",
					zap.Int("translated", translated),
					zap.Int("failed", failed))
			}
		}
	}
}
