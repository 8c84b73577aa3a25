package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/flightmgmt/flight-ops-api/api/swagger"
	"github.com/flightmgmt/flight-ops-api/internal/handler"
	"github.com/flightmgmt/flight-ops-api/internal/middleware"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	"github.com/flightmgmt/flight-ops-api/internal/repository"
	"github.com/flightmgmt/flight-ops-api/internal/service"
	"github.com/flightmgmt/flight-ops-api/pkg/cache"
	"github.com/flightmgmt/flight-ops-api/pkg/config"
	"github.com/flightmgmt/flight-ops-api/pkg/database"
	"github.com/flightmgmt/flight-ops-api/pkg/jobs"
	"github.com/flightmgmt/flight-ops-api/pkg/logger"
	corsmiddleware "github.com/flightmgmt/flight-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/flightmgmt/flight-ops-api/pkg/middleware/requestid"
	"github.com/flightmgmt/flight-ops-api/pkg/storage"
)

// @title Flight Ops API
// @version 0.1.0
// @description Flight schedule management with conflict detection and batch uploads
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, events and shared cache degraded", "error", err)
		redisClient = nil
	}

	files, err := storage.NewFileStore(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("storage dir unavailable", "error", err)
	}
	signer := storage.NewSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	// Repositories.
	flightRepo := repository.NewFlightRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	conflictRepo := repository.NewConflictRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	exportRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsService := service.NewMetricsService()
	eventService := service.NewEventService(redisClient, cfg.Events, metricsService, logr)
	referenceClient := service.NewReferenceClient(cfg.Reference, logr)
	referenceService := service.NewReferenceService(referenceClient, cacheRepo, cfg.Reference, metricsService, logr)
	conflictService := service.NewConflictService(flightRepo, conflictRepo, metricsService, logr)
	versionService := service.NewVersionService(versionRepo, logr)
	flightService := service.NewFlightService(flightRepo, conflictService, versionService, referenceService, eventService, batchRepo, logr)

	queue := jobs.NewQueue(jobs.QueueConfig{
		Workers:    cfg.Uploads.Workers,
		BufferSize: cfg.Uploads.QueueSize,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})

	uploadService := service.NewUploadService(
		batchRepo, flightRepo, conflictService, versionService,
		referenceService, eventService, files, queue,
		cfg.Uploads.ProgressInterval, metricsService, logr,
	)
	exportService := service.NewExportService(exportRepo, flightRepo, files, signer, queue, logr)

	queue.Register(service.JobUploadProcess, service.NewUploadWorker(uploadService, logr).Handle)
	if cfg.Exports.Enabled {
		queue.Register(service.JobExportRender, service.NewExportWorker(exportService, logr).Handle)
	}
	queue.Start()
	defer queue.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reference data change events drive cache invalidation.
	go eventService.SubscribeReferenceEvents(ctx, referenceService)

	// Handlers.
	flightHandler := handler.NewFlightHandler(flightService)
	uploadHandler := handler.NewUploadHandler(uploadService)
	conflictHandler := handler.NewConflictHandler(conflictService, uploadService)
	exportHandler := handler.NewExportHandler(exportService, signer, files)
	referenceHandler := handler.NewReferenceHandler(referenceService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.Middleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Signed download links carry their own authorization.
	if cfg.Exports.Enabled {
		api.GET("/exports/:token", exportHandler.Download)
	}

	api.Use(middleware.JWT(cfg.JWT.Secret))
	{
		flights := api.Group("/flights")
		{
			flights.POST("", flightHandler.Create)
			flights.GET("", flightHandler.List)
			flights.GET("/live", flightHandler.LiveBoard)
			flights.GET("/dashboard", flightHandler.Dashboard)
			if cfg.Exports.Enabled {
				flights.POST("/export", exportHandler.Create)
				flights.GET("/export/:id/status", exportHandler.Status)
			}
			flights.GET("/:id", flightHandler.Get)
			flights.PUT("/:id", flightHandler.Update)
			flights.DELETE("/:id", flightHandler.Delete)
			flights.PATCH("/:id/status", flightHandler.UpdateStatus)
			flights.GET("/:id/history", flightHandler.History)
		}

		uploads := api.Group("/uploads")
		{
			uploads.POST("", uploadHandler.Upload)
			uploads.GET("/batches", uploadHandler.ListBatches)
			uploads.GET("/batches/:id", uploadHandler.BatchStatus)
			uploads.GET("/batches/:id/conflicts", uploadHandler.BatchConflicts)
		}

		conflicts := api.Group("/conflicts")
		{
			conflicts.GET("", conflictHandler.List)
			conflicts.GET("/:id", conflictHandler.Get)
			conflicts.POST("/:id/resolve", conflictHandler.Resolve)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/cache/invalidate", referenceHandler.InvalidateCache)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
