package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/analytics"
	"github.com/dishcovery/backend/internal/api/handlers"
	"github.com/dishcovery/backend/internal/autofind"
	"github.com/dishcovery/backend/internal/config"
	"github.com/dishcovery/backend/internal/database"
	"github.com/dishcovery/backend/internal/health"
	"github.com/dishcovery/backend/internal/matcher"
	"github.com/dishcovery/backend/internal/middleware"
	"github.com/dishcovery/backend/internal/migration"
	"github.com/dishcovery/backend/internal/quota"
	"github.com/dishcovery/backend/internal/repository"
	"github.com/dishcovery/backend/internal/services"
	"github.com/dishcovery/backend/internal/synthesis"
	"github.com/dishcovery/backend/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	utils.InitLogger()
	logger := utils.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ValidateSynthesis(); err != nil {
		logger.WithError(err).Fatal("Synthesis configuration invalid")
	}

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer dbManager.Close()

	runner := migration.NewRunner(dbManager, logger)
	if err := runner.RunMigrations("migrations"); err != nil {
		logger.WithError(err).Fatal("Migrations failed")
	}

	repos := repository.NewRepositoryManager(dbManager.DB)
	// The memory driver swaps the recipe store only; jobs, analytics and
	// health stay on postgres.
	if cfg.Database.Driver == "memory" {
		repos.Recipe = repository.NewMemoryRecipeRepository()
		logger.Warn("Using in-memory recipe store, recipes will not persist")
	}

	cache := database.NewCache(dbManager.Redis, logger)
	counterStore := database.NewRedisCounterStore(dbManager.Redis)
	limiter := quota.NewLimiter(counterStore, cfg.Quota.AnonLimit, cfg.Quota.AuthLimit, logger)

	synthClient := synthesis.NewClient(cfg.Synthesis.BaseURL, cfg.Synthesis.APIKey, logger)

	queue := autofind.NewQueue(repos.AutoFindJob, repos.JobLog, logger)
	worker := autofind.NewWorker(queue, repos.AutoFindJob, repos.JobLog, repos.Recipe,
		synthClient, autofind.DefaultRetryConfig(), logger)

	recorder := analytics.NewRecorder(repos.SearchQuery, repos.PopularQuery, logger)
	defer recorder.Close()

	searchService := services.NewSearchService(
		matcher.New(repos.Recipe, logger),
		cache,
		limiter,
		queue,
		recorder,
		repos.AutoFindJob,
		repos.JobLog,
		repos.PopularQuery,
		logger,
	)

	checker := health.NewChecker(repos.SystemHealth, logger,
		health.Check{Name: "postgres", Probe: func(ctx context.Context) error {
			return dbManager.PingDatabase()
		}},
		health.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return dbManager.PingRedis()
		}},
		health.Check{Name: "synthesis", Probe: synthClient.Ping},
	)

	searchHandler := handlers.NewSearchHandler(searchService, logger)
	healthHandler := handlers.NewHealthHandler(checker, logger)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute).RateLimit())

	router.GET("/health", healthHandler.Health)
	v1 := router.Group("/api/v1")
	{
		v1.GET("/search", searchHandler.Search)
		v1.GET("/jobs/:id", searchHandler.JobStatus)
		v1.GET("/suggestions", searchHandler.Suggestions)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go worker.Run(ctx)
	go periodicHealthSweep(ctx, checker, repos, cache, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
	logger.Info("Server stopped")
}

// periodicHealthSweep keeps the dependency health table and the redis health
// snapshot current between /health calls.
func periodicHealthSweep(ctx context.Context, checker *health.Checker, repos *repository.RepositoryManager, cache *database.Cache, logger *logrus.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checker.Run(ctx)

			snapshot, err := repos.SystemHealth.GetAllServicesHealth()
			if err != nil {
				logger.WithError(err).Debug("Failed to load health snapshot")
				continue
			}
			if err := cache.CacheSystemHealth(ctx, snapshot, 2*time.Minute); err != nil {
				logger.WithError(err).Debug("Failed to cache health snapshot")
			}
		}
	}
}
