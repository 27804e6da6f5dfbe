package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"token-metadata.backend/internal/config"
	"token-metadata.backend/internal/infrastructure/datasources/postgres"
	"token-metadata.backend/internal/infrastructure/fetcher"
	"token-metadata.backend/internal/infrastructure/jobs"
	"token-metadata.backend/internal/infrastructure/models"
	"token-metadata.backend/internal/infrastructure/repositories"
	"token-metadata.backend/internal/interfaces/http/handlers"
	"token-metadata.backend/internal/interfaces/http/middleware"
	"token-metadata.backend/internal/usecases"
	"token-metadata.backend/pkg/jwt"
	"token-metadata.backend/pkg/logger"
	"token-metadata.backend/pkg/redis"
)

var (
	loadDotenv      = godotenv.Load
	loadCfg         = config.Load
	initLog         = logger.Init
	initRedis       = redis.Init
	openDB          = postgres.NewConnection
	migrateDB       = models.Migrate
	runServer       = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	startBackground = true
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	ctx := context.Background()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(ctx, "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := migrateDB(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info(ctx, "Database ready")

	app, err := buildApp(ctx, cfg, db)
	if err != nil {
		return err
	}

	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if startBackground {
		go app.worker.Start(bgCtx)
		go app.sweep.Start(bgCtx)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info(ctx, "Shutting down background jobs")
		cancel()
	}()

	logger.Info(ctx, "Token metadata service starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("routes", len(app.router.Routes())),
	)
	if err := runServer(app.router, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

type application struct {
	router *gin.Engine
	worker *jobs.MetadataRefreshWorker
	sweep  *jobs.DynamicRefreshSweepJob
}

func buildApp(ctx context.Context, cfg *config.Config, db *gorm.DB) (*application, error) {
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	contractRepo := repositories.NewSmartContractRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)
	frozenRepo := repositories.NewFrozenTokenRepository(db)
	metadataRepo := repositories.NewMetadataRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	hostRepo := repositories.NewRateLimitedHostRepository(db)
	chainTipRepo := repositories.NewChainTipRepository(db)
	uow := repositories.NewUnitOfWork(db)

	gateways := fetcher.Gateways{IPFS: cfg.Fetch.IPFSGateway, Arweave: cfg.Fetch.ArweaveGateway}
	metadataFetcher := fetcher.New(fetcher.Config{
		Timeout:           cfg.Fetch.Timeout,
		MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
		Gateways:          gateways,
		UserAgent:         cfg.Fetch.UserAgent,
	})

	hosts := usecases.NewHostRateLimiter(hostRepo, cfg.Fetch.HostPenaltyDefault, nil)
	queue := usecases.NewJobQueue(jobRepo, hosts, metadataFetcher, uow, usecases.JobQueueConfig{
		MaxRetries:     cfg.Jobs.MaxRetries,
		RetryBaseDelay: cfg.Jobs.RetryBaseDelay,
		RetryMaxDelay:  cfg.Jobs.RetryMaxDelay,
		QueuedTimeout:  cfg.Jobs.QueuedTimeout,
	}, nil)
	chainTip := usecases.NewChainTipTracker(chainTipRepo, nil)
	if err := chainTip.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize chain tip: %w", err)
	}
	tracker := usecases.NewNotificationTracker(tokenRepo, frozenRepo, notificationRepo, chainTipRepo, queue, uow, usecases.RefreshConfig{
		DynamicDefaultTTL: cfg.Refresh.DynamicDefaultTTL,
		SweepInterval:     cfg.Refresh.SweepInterval,
	}, nil)
	validator := usecases.NewCacheValidator(metadataRepo, redis.NewEtagStore(), cfg.Cache.EtagTTL)
	normalizer := usecases.NewMetadataNormalizer(metadataFetcher, fetcher.NewGatewayImageCacher(gateways))
	refresh := usecases.NewMetadataRefreshUsecase(contractRepo, tokenRepo, frozenRepo, metadataRepo, jobRepo,
		queue, metadataFetcher, normalizer, hosts, validator, uow, cfg.Refresh.MaxContractTokenCount, nil)
	ingestion := usecases.NewChainIngestionUsecase(contractRepo, tokenRepo, frozenRepo, queue, tracker, chainTip, uow,
		cfg.Refresh.MaxContractTokenCount, nil)
	bundles := usecases.NewMetadataBundleUsecase(contractRepo, tokenRepo, metadataRepo)
	status := usecases.NewStatusUsecase(chainTipRepo, contractRepo, tokenRepo, jobRepo)
	admin := usecases.NewAdminUsecase(contractRepo, tokenRepo, jobRepo, tracker, queue, hosts, uow)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerRoutes(r, routeDeps{
		metadataHandler: handlers.NewMetadataHandler(bundles, status),
		webhookHandler:  handlers.NewWebhookHandler(ingestion),
		adminHandler:    handlers.NewAdminHandler(admin),
		etagMiddleware:  middleware.EtagMiddleware(validator),
		adminMiddleware: middleware.AdminAuthMiddleware(jwtService),
	})

	return &application{
		router: r,
		worker: jobs.NewMetadataRefreshWorker(queue, refresh, hosts, jobs.WorkerConfig{
			Concurrency:  cfg.Jobs.Concurrency,
			ClaimBatch:   cfg.Jobs.ClaimBatch,
			PollInterval: cfg.Jobs.PollInterval,
		}),
		sweep: jobs.NewDynamicRefreshSweepJob(tracker, hosts, cfg.Refresh.SweepInterval),
	}, nil
}
