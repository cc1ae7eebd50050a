package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/openedu-labs/geoc-api/api/swagger"
	"github.com/openedu-labs/geoc-api/internal/handler"
	"github.com/openedu-labs/geoc-api/internal/middleware"
	"github.com/openedu-labs/geoc-api/internal/repository"
	"github.com/openedu-labs/geoc-api/internal/service"
	"github.com/openedu-labs/geoc-api/internal/validation"
	"github.com/openedu-labs/geoc-api/pkg/cache"
	"github.com/openedu-labs/geoc-api/pkg/config"
	"github.com/openedu-labs/geoc-api/pkg/database"
	"github.com/openedu-labs/geoc-api/pkg/logger"
	"github.com/openedu-labs/geoc-api/pkg/mailer"
	"github.com/openedu-labs/geoc-api/pkg/middleware/cors"
	"github.com/openedu-labs/geoc-api/pkg/middleware/requestid"
	"github.com/openedu-labs/geoc-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()

	store, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		log.Fatal("document storage init failed", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	outcomeRepo := repository.NewOutcomeRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	linkRepo := repository.NewOutcomeLinkRepository(db)
	contentRepo := repository.NewOutcomeContentRepository(db)
	annotationRepo := repository.NewAnnotationRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	// Metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewHTTPMetrics(registry)
	workflowMetrics := service.NewMetrics(registry)

	// Services.
	sender := mailer.NewSendGridSender(cfg.Mail, log)
	notifier := service.NewNotifier(sender, userRepo, cfg.Mail.ManagerBCC, workflowMetrics, log)
	crosslistService := service.NewCrosslistService(courseRepo, membershipRepo, linkRepo, contentRepo, annotationRepo, log)
	authService := service.NewAuthService(userRepo, auditRepo, cfg.JWT, log)
	outcomeService := service.NewOutcomeService(outcomeRepo, log)
	courseService := service.NewCourseService(
		db, courseRepo, outcomeRepo, membershipRepo, linkRepo, contentRepo,
		annotationRepo, crosslistService, notifier, auditRepo, cacheRepo, workflowMetrics, log)
	statusService := service.NewStatusService(
		db, courseRepo, linkRepo, annotationRepo, notifier, auditRepo, cacheRepo, workflowMetrics, log)
	annotationService := service.NewAnnotationService(db, annotationRepo, courseRepo, log)
	designationService := service.NewDesignationService(courseRepo, cacheRepo, cfg.Dashboard.CacheTTL, log)
	exportService := service.NewExportService(courseRepo, log)
	documentService := service.NewDocumentService(documentRepo, courseRepo, store, signer, cfg.Documents, log)
	auditService := service.NewAuditService(auditRepo, log)

	// Handlers.
	validate := validation.New()
	authHandler := handler.NewAuthHandler(authService, validate)
	outcomeHandler := handler.NewOutcomeHandler(outcomeService, validate)
	courseHandler := handler.NewCourseHandler(courseService, validate)
	statusHandler := handler.NewStatusHandler(statusService, validate)
	annotationHandler := handler.NewAnnotationHandler(annotationService, validate)
	documentHandler := handler.NewDocumentHandler(documentService)
	designationHandler := handler.NewDesignationHandler(designationService)
	exportHandler := handler.NewExportHandler(exportService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := buildRouter(cfg, log, httpMetrics, registry, routerHandlers{
		auth:        authHandler,
		outcomes:    outcomeHandler,
		courses:     courseHandler,
		status:      statusHandler,
		annotations: annotationHandler,
		documents:   documentHandler,
		designation: designationHandler,
		exports:     exportHandler,
		audit:       auditHandler,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routerHandlers struct {
	auth        *handler.AuthHandler
	outcomes    *handler.OutcomeHandler
	courses     *handler.CourseHandler
	status      *handler.StatusHandler
	annotations *handler.AnnotationHandler
	documents   *handler.DocumentHandler
	designation *handler.DesignationHandler
	exports     *handler.ExportHandler
	audit       *handler.AuditHandler
}

func buildRouter(cfg *config.Config, log *zap.Logger, httpMetrics *middleware.HTTPMetrics, registry *prometheus.Registry, h routerHandlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(logger.GinMiddleware(log))
	router.Use(cors.New(cfg.CORS.AllowedOrigins))
	router.Use(httpMetrics.Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.auth.Login)
		auth.POST("/refresh", h.auth.Refresh)
		auth.POST("/logout", middleware.JWTAuth(cfg.JWT.Secret), h.auth.Logout)
		auth.GET("/me", middleware.JWTAuth(cfg.JWT.Secret), h.auth.Me)
	}

	// Signed token downloads carry their own grant.
	api.GET("/documents/download", h.documents.Download)

	authed := api.Group("")
	authed.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		outcomes := authed.Group("/outcomes")
		{
			outcomes.GET("", h.outcomes.List)
			outcomes.GET("/:id", h.outcomes.Get)
			outcomes.POST("", middleware.RequireAdmin(), h.outcomes.Create)
			outcomes.PUT("/:id", middleware.RequireAdmin(), h.outcomes.Update)
			outcomes.POST("/:id/elements", middleware.RequireAdmin(), h.outcomes.AddElement)
			outcomes.PUT("/:id/elements/:elementId", middleware.RequireAdmin(), h.outcomes.UpdateElement)
		}

		courses := authed.Group("/courses")
		{
			courses.GET("", h.courses.List)
			courses.POST("", h.courses.Create)
			courses.GET("/:id", h.courses.Get)
			courses.PUT("/:id", h.courses.Update)
			courses.DELETE("/:id", h.courses.Delete)
			courses.GET("/:id/worksheet", h.courses.Worksheet)
			courses.PUT("/:id/worksheet", h.courses.SaveWorksheet)

			courses.POST("/:id/transition", middleware.RequireManager(), h.status.Transition)
			courses.PUT("/:id/designation", middleware.RequireManager(), h.status.SetDesignation)

			courses.GET("/:id/comments", h.annotations.ListComments)
			courses.POST("/:id/comments", h.annotations.AddComment)
			courses.GET("/:id/adenda", h.annotations.GetAdenda)
			courses.PUT("/:id/adenda", middleware.RequireManager(), h.annotations.UpsertAdenda)

			courses.GET("/:id/documents", h.documents.List)
			courses.POST("/:id/documents", h.documents.Upload)
		}

		authed.PUT("/links/:id/state", middleware.RequireManager(), h.status.SetLinkState)
		authed.DELETE("/comments/:id", h.annotations.RemoveComment)
		authed.GET("/documents/:id/link", h.documents.Link)
		authed.DELETE("/documents/:id", h.documents.Delete)

		if cfg.Dashboard.Enabled {
			authed.GET("/dashboard/designations", middleware.RequireManager(), h.designation.Overview)
		}
		if cfg.Exports.Enabled {
			authed.GET("/exports/courses", middleware.RequireManager(), h.exports.Courses)
			authed.GET("/exports/designations", middleware.RequireManager(), h.exports.Designations)
		}

		authed.GET("/audit", middleware.RequireAdmin(), h.audit.List)
	}

	return router
}
