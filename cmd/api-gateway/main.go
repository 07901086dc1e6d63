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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/zoro24a/bonafide-api/api/swagger"
	"github.com/zoro24a/bonafide-api/internal/academic"
	"github.com/zoro24a/bonafide-api/internal/handler"
	"github.com/zoro24a/bonafide-api/internal/middleware"
	"github.com/zoro24a/bonafide-api/internal/models"
	"github.com/zoro24a/bonafide-api/internal/render"
	"github.com/zoro24a/bonafide-api/internal/repository"
	"github.com/zoro24a/bonafide-api/internal/service"
	"github.com/zoro24a/bonafide-api/pkg/cache"
	"github.com/zoro24a/bonafide-api/pkg/config"
	"github.com/zoro24a/bonafide-api/pkg/database"
	"github.com/zoro24a/bonafide-api/pkg/export"
	"github.com/zoro24a/bonafide-api/pkg/jobs"
	"github.com/zoro24a/bonafide-api/pkg/logger"
	corsmiddleware "github.com/zoro24a/bonafide-api/pkg/middleware/cors"
	reqidmiddleware "github.com/zoro24a/bonafide-api/pkg/middleware/requestid"
	"github.com/zoro24a/bonafide-api/pkg/storage"
)

// @title Bonafide Certificate API
// @version 1.0.0
// @description Certificate request lifecycle and rendering service
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	certStorage, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare certificate storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)

	validate := validator.New()
	calendar := academic.NewCalculator(logr)
	renderer := render.NewRenderer(render.WithSignatureLine(cfg.Certificates.SignatureLine))

	profileRepo := repository.NewProfileRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(profileRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	certificateSvc := service.NewCertificateService(
		templateRepo,
		studentRepo,
		calendar,
		renderer,
		export.NewPDFExporter(),
		certStorage,
		signer,
		service.CertificateConfig{
			APIPrefix:       cfg.APIPrefix,
			InstitutionName: cfg.Certificates.InstitutionName,
			FileTTL:         cfg.Certificates.SignedURLTTL,
		},
		logr,
		service.WithRenderMetrics(metricsSvc),
	)
	dashboardSvc := service.NewDashboardService(requestRepo, studentRepo, redisClient, cfg.Dashboard.CacheTTL, logr,
		service.WithQueryObserver(metricsSvc))
	requestSvc := service.NewRequestService(
		requestRepo,
		studentRepo,
		certificateSvc,
		profileRepo,
		validate,
		logr,
		service.WithTransitionObserver(metricsSvc),
		service.WithSummaryInvalidation(dashboardSvc),
	)
	templateSvc := service.NewTemplateService(templateRepo, validate, logr)
	batchSvc := service.NewBatchService(batchRepo, calendar, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, calendar, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, validate, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleanupQueue := jobs.NewQueue("certificate-cleanup", func(ctx context.Context, _ jobs.Job) error {
		certificateSvc.Cleanup(ctx)
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Certificates.WorkerConcurrency,
		MaxRetries: cfg.Certificates.WorkerRetries,
		Logger:     logr,
	})
	cleanupQueue.Start(rootCtx)
	defer cleanupQueue.Stop()
	go scheduleCleanup(rootCtx, cleanupQueue, cfg.Certificates.CleanupInterval)

	authHandler := handler.NewAuthHandler(authSvc)
	requestHandler := handler.NewRequestHandler(requestSvc, certificateSvc, export.NewCSVExporter())
	certificateHandler := handler.NewCertificateHandler(certificateSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc)
	batchHandler := handler.NewBatchHandler(batchSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	departmentHandler := handler.NewDepartmentHandler(departmentSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Download links are self-authorizing through the signed token.
		api.GET("/certificates/download", certificateHandler.Download)

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			requests := protected.Group("/requests")
			{
				requests.POST("", middleware.RequireRoles(models.RoleStudent), requestHandler.Create)
				requests.GET("", requestHandler.List)
				requests.GET("/export", middleware.RequireRoles(models.RoleAdmin, models.RoleOffice), requestHandler.ExportRegister)
				requests.GET("/:id", requestHandler.Get)
				requests.POST("/:id/review",
					middleware.RequireRoles(models.RoleTutor, models.RoleHOD, models.RolePrincipal),
					requestHandler.Review)
				requests.GET("/:id/certificate", requestHandler.Certificate)
			}

			templates := protected.Group("/templates")
			{
				templates.GET("", templateHandler.List)
				templates.GET("/:id", templateHandler.Get)
				templates.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleOffice), templateHandler.Create)
				templates.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleOffice), templateHandler.Update)
				templates.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleOffice), templateHandler.Delete)
			}

			batches := protected.Group("/batches")
			{
				batches.GET("", batchHandler.List)
				batches.GET("/:id", batchHandler.Get)
				batches.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleOffice), batchHandler.Create)
				batches.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleOffice), batchHandler.Update)
			}

			students := protected.Group("/students")
			{
				students.GET("/me", middleware.RequireRoles(models.RoleStudent), studentHandler.Me)
				students.GET("", middleware.RequireRoles(models.RoleTutor, models.RoleHOD, models.RoleAdmin, models.RolePrincipal, models.RoleOffice), studentHandler.List)
				students.GET("/:id", middleware.RequireRoles(models.RoleTutor, models.RoleHOD, models.RoleAdmin, models.RolePrincipal, models.RoleOffice), studentHandler.Get)
				students.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleOffice), studentHandler.Create)
			}

			departments := protected.Group("/departments")
			{
				departments.GET("", departmentHandler.List)
				departments.GET("/:id", departmentHandler.Get)
				departments.POST("", middleware.RequireRoles(models.RoleAdmin), departmentHandler.Create)
			}

			protected.GET("/dashboard/summary", dashboardHandler.Summary)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

func scheduleCleanup(ctx context.Context, queue *jobs.Queue, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			_ = queue.Enqueue(jobs.Job{
				ID:   fmt.Sprintf("cleanup-%d", tick.Unix()),
				Type: "certificate.cleanup",
			})
		}
	}
}
