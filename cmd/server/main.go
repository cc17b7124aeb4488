package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apihttp "github.com/poultryops/settlement-service/internal/api/http"
	"github.com/poultryops/settlement-service/internal/adapters/cache"
	"github.com/poultryops/settlement-service/internal/adapters/postgres"
	"github.com/poultryops/settlement-service/internal/adapters/secrets"
	"github.com/poultryops/settlement-service/internal/config"
	"github.com/poultryops/settlement-service/internal/domain/ports"
	cronHandler "github.com/poultryops/settlement-service/internal/handlers/cron"
	pointsHandler "github.com/poultryops/settlement-service/internal/handlers/points"
	processingHandler "github.com/poultryops/settlement-service/internal/handlers/processing"
	settlementHandler "github.com/poultryops/settlement-service/internal/handlers/settlement"
	transferHandler "github.com/poultryops/settlement-service/internal/handlers/transfer"
	pointsService "github.com/poultryops/settlement-service/internal/services/points"
	processingService "github.com/poultryops/settlement-service/internal/services/processing"
	settlementService "github.com/poultryops/settlement-service/internal/services/settlement"
	transferService "github.com/poultryops/settlement-service/internal/services/transfer"
	"github.com/poultryops/settlement-service/pkg/middleware"
	"github.com/poultryops/settlement-service/pkg/observability"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting settlement service",
		zap.String("version", "0.1.0"),
	)

	ctx := context.Background()

	// Resolve secrets before opening connections
	if err := resolveSecrets(ctx, cfg, logger); err != nil {
		logger.Fatal("Failed to resolve secrets", zap.Error(err))
	}

	// Database pool
	dbCfg := &postgres.Config{
		DatabaseURL: cfg.Database.ConnectionString(),
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
	}
	db, err := postgres.NewDBExecutor(ctx, dbCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	// Optional leaderboard cache
	var leaderboardCache ports.LeaderboardCache
	var redisCache *cache.RedisLeaderboardCache
	if cfg.Redis.Addr != "" {
		redisCache = cache.NewRedisLeaderboardCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			logger.Warn("Redis unreachable, leaderboard cache degraded", zap.Error(err))
		}
		cancel()
		defer redisCache.Close()
		leaderboardCache = redisCache
		logger.Info("Leaderboard cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Repositories and directory
	settlementRepo := postgres.NewSettlementRepository()
	varianceRepo := postgres.NewVarianceRepository()
	transferRepo := postgres.NewTransferRepository()
	ledgerRepo := postgres.NewLedgerRepository()
	pointsRepo := postgres.NewPointsRepository()
	salesRepo := postgres.NewSalesRepository()
	wastageRepo := postgres.NewWastageRepository()
	directory := postgres.NewShopDirectory(db)

	clock := ports.SystemClock{}

	// Services
	pointsEngine := pointsService.NewEngine(db, pointsRepo, varianceRepo, settlementRepo, directory, leaderboardCache, clock, logger)
	settlementSvc := settlementService.NewService(db, settlementRepo, varianceRepo, ledgerRepo, salesRepo, directory, pointsEngine, clock, logger)
	transferSvc := transferService.NewService(db, transferRepo, ledgerRepo, directory, pointsEngine, clock, logger)
	processingSvc := processingService.NewService(db, ledgerRepo, wastageRepo, directory, clock, logger)

	// HTTP layer
	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	defer rateLimiter.Shutdown()

	router := apihttp.NewRouter(apihttp.Handlers{
		Settlement: settlementHandler.NewHandler(settlementSvc, logger),
		Transfer:   transferHandler.NewHandler(transferSvc, logger),
		Points:     pointsHandler.NewHandler(pointsEngine, logger),
		Processing: processingHandler.NewHandler(processingSvc, logger),
		Cron:       cronHandler.NewHandler(pointsEngine, logger, cfg.Cron.Secret),
	}, rateLimiter)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics and health server
	var healthChecker *observability.HealthChecker
	if redisCache != nil {
		healthChecker = observability.NewHealthChecker(db.Pool(), redisCache.Client())
	} else {
		healthChecker = observability.NewHealthChecker(db.Pool(), nil)
	}
	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker, logger)

	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("Metrics server shutdown error", zap.Error(err))
	}

	logger.Info("Servers stopped")
}

// resolveSecrets pulls configured secret paths through the selected backend
// and fills the corresponding config values.
func resolveSecrets(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Secrets.DBPasswordPath == "" && cfg.Secrets.CronSecretPath == "" {
		return nil
	}

	var provider ports.SecretProvider
	var err error
	switch cfg.Secrets.Provider {
	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.Region)
		provider, err = secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)
		if err != nil {
			return fmt.Errorf("initialize aws secrets manager: %w", err)
		}
	default:
		provider = secrets.NewEnvSecretProvider(logger)
	}

	if cfg.Secrets.DBPasswordPath != "" {
		secret, err := provider.GetSecret(ctx, cfg.Secrets.DBPasswordPath)
		if err != nil {
			return fmt.Errorf("resolve database password: %w", err)
		}
		cfg.Database.Password = secret.Value
	}
	if cfg.Secrets.CronSecretPath != "" {
		secret, err := provider.GetSecret(ctx, cfg.Secrets.CronSecretPath)
		if err != nil {
			return fmt.Errorf("resolve cron secret: %w", err)
		}
		cfg.Cron.Secret = secret.Value
	}
	return nil
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	if cfg.Development {
		zapCfg := zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		logger, _ := zapCfg.Build()
		return logger
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, _ := zapCfg.Build()
	return logger
}
