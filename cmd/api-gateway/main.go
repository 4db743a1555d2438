package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/skylift-health/airlift-api/api/swagger"
	"github.com/skylift-health/airlift-api/internal/handler"
	"github.com/skylift-health/airlift-api/internal/middleware"
	"github.com/skylift-health/airlift-api/internal/repository"
	"github.com/skylift-health/airlift-api/internal/service"
	"github.com/skylift-health/airlift-api/pkg/cache"
	"github.com/skylift-health/airlift-api/pkg/config"
	"github.com/skylift-health/airlift-api/pkg/database"
	"github.com/skylift-health/airlift-api/pkg/jobs"
	"github.com/skylift-health/airlift-api/pkg/logger"
	corsmiddleware "github.com/skylift-health/airlift-api/pkg/middleware/cors"
	reqidmiddleware "github.com/skylift-health/airlift-api/pkg/middleware/requestid"
)

// @title Airlift Case Management API
// @version 1.0.0
// @description Air-ambulance enquiry lifecycle, escalation and reporting core
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
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
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enquiryRepo := repository.NewEnquiryRepository(db)
	escalationRepo := repository.NewEscalationRepository(db)
	queryRepo := repository.NewQueryRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	districtRepo := repository.NewDistrictRepository(db)
	hospitalRepo := repository.NewHospitalRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)

	notificationSvc := service.NewNotificationService(notificationRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, cfg.Notifications.Enabled, metricsSvc, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	lifecycleSvc := service.NewLifecycleService(enquiryRepo, notificationSvc, userRepo, metricsSvc, validate, logr, cfg.Lifecycle.CodePrefix)
	escalationSvc := service.NewEscalationService(escalationRepo, enquiryRepo, notificationSvc, metricsSvc, validate, logr)
	querySvc := service.NewQueryService(queryRepo, enquiryRepo, notificationSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(analyticsRepo, cacheSvc, cfg.Dashboard, logr)
	reportSvc := service.NewReportService(enquiryRepo, cfg.Reports, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	referenceSvc := service.NewReferenceService(districtRepo, hospitalRepo, validate, logr)

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Enquiries:     handler.NewEnquiryHandler(lifecycleSvc),
		Escalations:   handler.NewEscalationHandler(escalationSvc),
		Queries:       handler.NewQueryHandler(querySvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Reference:     handler.NewReferenceHandler(referenceSvc),
		Users:         handler.NewUserHandler(userSvc),
		Reports:       handler.NewReportHandler(reportSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, handler.RouteConfig{
		Prefix:           cfg.APIPrefix,
		DashboardEnabled: cfg.Dashboard.Enabled,
		ReportsEnabled:   cfg.Reports.Enabled,
	}, handlers, authSvc, userRepo)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
