package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	extractionapp "github.com/shopopti/backend/internal/application/extraction"
	importerapp "github.com/shopopti/backend/internal/application/importer"
	"github.com/shopopti/backend/internal/application/stocksync"
	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/domain/validation"
	"github.com/shopopti/backend/internal/infrastructure/auth"
	"github.com/shopopti/backend/internal/infrastructure/cache"
	"github.com/shopopti/backend/internal/infrastructure/config"
	"github.com/shopopti/backend/internal/infrastructure/dom"
	"github.com/shopopti/backend/internal/infrastructure/logger"
	"github.com/shopopti/backend/internal/infrastructure/persistence"
	"github.com/shopopti/backend/internal/infrastructure/scheduler"
	"github.com/shopopti/backend/internal/interfaces/http/handler"
	"github.com/shopopti/backend/internal/interfaces/http/middleware"
	"github.com/shopopti/backend/internal/interfaces/http/router"

	_ "github.com/shopopti/backend/internal/infrastructure/platforms"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Shopopti Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	syncJobRepo := persistence.NewGormSyncJobRepository(db.DB)

	// Page source: headless Chrome when rendering is enabled, plain HTTP
	// otherwise
	var pageSource dom.PageSource
	if cfg.Extraction.RenderPages {
		renderer := dom.NewRenderer(dom.RendererConfig{
			DefaultTimeout: cfg.Extraction.FetchTimeout,
			RemoteURL:      cfg.Extraction.ChromeRemoteURL,
			NoSandbox:      true,
			UserAgent:      cfg.Extraction.UserAgent,
		}, log)
		defer func() {
			_ = renderer.Close()
		}()
		pageSource = renderer
		log.Info("Page rendering enabled", zap.String("remote", cfg.Extraction.ChromeRemoteURL))
	} else {
		pageSource = dom.NewFetcher(dom.FetcherConfig{
			Timeout:           cfg.Extraction.FetchTimeout,
			UserAgent:         cfg.Extraction.UserAgent,
			RequestsPerSecond: cfg.Extraction.RequestsPerSecond,
			Burst:             cfg.Extraction.RequestBurst,
		}, log)
	}

	// Extraction service, with a Redis result cache when configured
	registry := extraction.DefaultRegistry()
	extractorOpts := []extractionapp.ServiceOption{
		extractionapp.WithReviewLimit(cfg.Extraction.ReviewLimit),
	}
	if cfg.Extraction.CacheTTL > 0 {
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, extraction cache disabled", zap.Error(err))
		} else {
			defer func() {
				_ = redisClient.Close()
			}()
			extractorOpts = append(extractorOpts, extractionapp.WithResultCache(
				cache.NewRedisExtractionCache(redisClient,
					cache.WithExtractionTTL(cfg.Extraction.CacheTTL),
					cache.WithExtractionLogger(log)),
			))
			log.Info("Extraction cache enabled", zap.Duration("ttl", cfg.Extraction.CacheTTL))
		}
	}
	extractor := extractionapp.NewService(registry, pageSource, log, extractorOpts...)

	// Admission control and import commit
	engine := validation.NewEngine(validation.Thresholds{
		MinScore:             cfg.Validation.MinScore,
		MinDescriptionLength: cfg.Validation.MinDescriptionLength,
		PenaltyNoImages:      cfg.Validation.PenaltyNoImages,
		PenaltySingleImage:   cfg.Validation.PenaltySingleImage,
		PenaltyShortDesc:     cfg.Validation.PenaltyShortDesc,
		PenaltyNoBrand:       cfg.Validation.PenaltyNoBrand,
		PenaltyNoSKU:         cfg.Validation.PenaltyNoSKU,
		PenaltyNoSpecs:       cfg.Validation.PenaltyNoSpecs,
	})
	importer := importerapp.NewService(engine, productRepo, log)

	// Stock reconciliation
	syncService, err := stocksync.NewService(productRepo, syncJobRepo, pageSource, registry, stocksync.Config{
		Concurrency:       cfg.StockSync.Concurrency,
		PerProductTimeout: cfg.StockSync.PerProductTimeout,
		StaleAfter:        cfg.StockSync.StaleAfter,
		BatchSize:         cfg.StockSync.BatchSize,
	}, log)
	if err != nil {
		log.Fatal("Failed to create stock sync service", zap.Error(err))
	}

	syncInterval := cfg.StockSync.Interval
	if !cfg.StockSync.Enabled {
		// manual runs stay available, the ticker just never fires
		syncInterval = 24 * 365 * time.Hour
		log.Info("Periodic stock sync disabled, manual runs only")
	}
	syncScheduler, err := scheduler.NewStockSyncScheduler(scheduler.StockSyncSchedulerConfig{
		Interval:   syncInterval,
		RunTimeout: 30 * time.Minute,
	}, syncService, log)
	if err != nil {
		log.Fatal("Failed to create stock sync scheduler", zap.Error(err))
	}

	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	if err := syncScheduler.Start(schedulerCtx); err != nil {
		log.Fatal("Failed to start stock sync scheduler", zap.Error(err))
	}

	// JWT authentication
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP engine and middleware chain
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	ginEngine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	ginEngine.Use(middleware.RequestID())
	ginEngine.Use(logger.Recovery(log))
	ginEngine.Use(logger.GinMiddleware(log))
	ginEngine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	ginEngine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	ginEngine.GET("/health", healthHandler(db))

	// API routes behind JWT auth
	r := router.NewRouter(ginEngine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddleware(jwtService))
	r.Register(handler.NewExtractionHandler(extractor, engine))
	r.Register(handler.NewImportHandler(extractor, importer, productRepo))
	r.Register(handler.NewSyncHandler(syncScheduler, syncService, syncJobRepo))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := syncScheduler.Stop(ctx); err != nil {
		log.Warn("Stock sync scheduler did not stop cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
