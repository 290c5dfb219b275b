package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/memoire-api/api/swagger"
	"github.com/noah-isme/memoire-api/internal/handler"
	"github.com/noah-isme/memoire-api/internal/middleware"
	"github.com/noah-isme/memoire-api/internal/models"
	"github.com/noah-isme/memoire-api/internal/repository"
	"github.com/noah-isme/memoire-api/internal/service"
	"github.com/noah-isme/memoire-api/pkg/cache"
	"github.com/noah-isme/memoire-api/pkg/config"
	"github.com/noah-isme/memoire-api/pkg/database"
	"github.com/noah-isme/memoire-api/pkg/export"
	"github.com/noah-isme/memoire-api/pkg/logger"
	"github.com/noah-isme/memoire-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/memoire-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/memoire-api/pkg/middleware/requestid"
	"github.com/noah-isme/memoire-api/pkg/storage"
)

// @title Memoire API
// @version 1.0.0
// @description Thesis allocation, supervision, defense and archive workflow
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
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	documents, err := storage.NewDocumentStore(cfg.Storage.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	reports := export.NewReportRenderer()

	var sender mailer.Sender
	if cfg.Mailer.Backend == "sendgrid" && cfg.Mailer.SendgridKey != "" {
		sender = mailer.NewSendgridSender(cfg.Mailer.SendgridKey, cfg.Mailer.FromName, cfg.Mailer.FromAddress)
	} else {
		sender = mailer.NewConsoleSender(logr)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	supervisorRepo := repository.NewSupervisorRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	juryMemberRepo := repository.NewJuryMemberRepository(db)
	juryRepo := repository.NewJuryRepository(db)
	supervisionRepo := repository.NewSupervisionRepository(db)
	dossierRepo := repository.NewDossierRepository(db)
	defenseRepo := repository.NewDefenseRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	notifications := service.NewNotificationService(sender, cfg.Mailer.Workers, logr).WithMetrics(metrics)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
		Issuer:        "memoire-api",
	})
	topicService := service.NewTopicService(topicRepo, supervisorRepo, validate, logr)
	preferenceService := service.NewPreferenceService(assignmentRepo, studentRepo, topicRepo, validate, logr)
	allocationService := service.NewAllocationService(allocationRepo, assignmentRepo, topicRepo, studentRepo, notifications, validate, logr).
		WithMetrics(metrics)
	juryService := service.NewJuryService(juryRepo, juryMemberRepo, supervisorRepo, validate, logr)
	supervisionService := service.NewSupervisionService(supervisionRepo, assignmentRepo, supervisorRepo, studentRepo, validate, logr)
	dossierService := service.NewDossierService(dossierRepo, studentRepo, assignmentRepo, supervisorRepo, documents, notifications,
		cfg.Storage.MaxFileSizeBytes, validate, logr)
	defenseService := service.NewDefenseService(defenseRepo, studentRepo, dossierRepo, juryRepo, juryMemberRepo, supervisorRepo,
		notifications, reports, cfg.Defense.MinDuration, cfg.Defense.MaxDuration, validate, logr).
		WithMetrics(metrics)
	archiveService := service.NewArchiveService(archiveRepo, cacheRepo, signer, documents, cfg.Catalog.CacheTTL, logr).
		WithMetrics(metrics)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifications.Start(rootCtx)
	defer notifications.Stop()

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	topicHandler := handler.NewTopicHandler(topicService)
	preferenceHandler := handler.NewPreferenceHandler(preferenceService, topicService)
	allocationHandler := handler.NewAllocationHandler(allocationService)
	juryHandler := handler.NewJuryHandler(juryService)
	supervisionHandler := handler.NewSupervisionHandler(supervisionService)
	dossierHandler := handler.NewDossierHandler(dossierService)
	defenseHandler := handler.NewDefenseHandler(defenseService)
	catalogHandler := handler.NewCatalogHandler(archiveService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	// Public catalog, no authentication
	catalog := api.Group("/catalog")
	catalog.GET("", catalogHandler.Browse)
	catalog.GET("/years", catalogHandler.Years)
	catalog.GET("/download", catalogHandler.Download)
	catalog.GET("/:id", catalogHandler.Get)
	catalog.POST("/:id/download-link", catalogHandler.DownloadLink)

	secured := api.Group("")
	secured.Use(middleware.JWT(authService))

	topics := secured.Group("/topics")
	topics.GET("", topicHandler.List)
	topics.GET("/:id", topicHandler.Get)
	topics.POST("", middleware.RequireRoles(models.RoleSupervisor), topicHandler.Propose)
	topics.POST("/:id/review", middleware.RequireRoles(models.RoleAdmin), topicHandler.Review)

	prefs := secured.Group("/preferences")
	prefs.Use(middleware.RequireRoles(models.RoleStudent))
	prefs.GET("", preferenceHandler.ListMine)
	prefs.PUT("", preferenceHandler.Choose)
	prefs.GET("/topics", preferenceHandler.OpenTopics)

	assignments := secured.Group("/assignments")
	assignments.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor), allocationHandler.List)
	assignments.GET("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor), allocationHandler.Get)
	assignments.POST("", middleware.RequireRoles(models.RoleAdmin), allocationHandler.Assign)
	assignments.POST("/auto", middleware.RequireRoles(models.RoleAdmin), allocationHandler.AutoAssign)
	assignments.POST("/:id/reassign", middleware.RequireRoles(models.RoleAdmin), allocationHandler.Reassign)
	assignments.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), allocationHandler.Remove)
	assignments.GET("/:id/sessions", middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor), supervisionHandler.ListByAssignment)
	assignments.POST("/:id/sessions", middleware.RequireRoles(models.RoleSupervisor), supervisionHandler.LogSession)

	sessions := secured.Group("/sessions")
	sessions.Use(middleware.RequireRoles(models.RoleSupervisor))
	sessions.PUT("/:id", supervisionHandler.UpdateSession)
	sessions.DELETE("/:id", supervisionHandler.DeleteSession)

	dossiers := secured.Group("/dossiers")
	dossiers.POST("/documents/:kind", middleware.RequireRoles(models.RoleStudent), dossierHandler.Upload)
	dossiers.GET("/mine", middleware.RequireRoles(models.RoleStudent), dossierHandler.Mine)
	dossiers.GET("/pending", middleware.RequireRoles(models.RoleAdmin), dossierHandler.PendingReview)
	dossiers.POST("/:id/authorize", middleware.RequireRoles(models.RoleSupervisor), dossierHandler.Authorize)
	dossiers.POST("/:id/verify", middleware.RequireRoles(models.RoleAdmin), dossierHandler.Verify)

	juries := secured.Group("/juries")
	juries.GET("", middleware.RequireRoles(models.RoleAdmin), juryHandler.List)
	juries.GET("/members/available", middleware.RequireRoles(models.RoleAdmin), juryHandler.AvailableMembers)
	juries.GET("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleJuryMember), juryHandler.Get)
	juries.POST("", middleware.RequireRoles(models.RoleAdmin), juryHandler.Form)
	juries.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), juryHandler.Update)
	juries.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), juryHandler.Dissolve)

	defenses := secured.Group("/defenses")
	defenses.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleJuryMember, models.RoleSupervisor), defenseHandler.List)
	defenses.GET("/:id", defenseHandler.Get)
	defenses.GET("/:id/report", middleware.RequireRoles(models.RoleAdmin, models.RoleJuryMember), defenseHandler.Report)
	defenses.POST("", middleware.RequireRoles(models.RoleAdmin), defenseHandler.Schedule)
	defenses.POST("/:id/start", middleware.RequireRoles(models.RoleAdmin, models.RoleJuryMember), defenseHandler.Start)
	defenses.POST("/:id/scores", middleware.RequireRoles(models.RoleJuryMember, models.RoleSupervisor), defenseHandler.SubmitScore)
	defenses.POST("/:id/finalize", middleware.RequireRoles(models.RoleAdmin, models.RoleJuryMember), defenseHandler.Finalize)
	defenses.POST("/:id/postpone", middleware.RequireRoles(models.RoleAdmin), defenseHandler.Postpone)
	defenses.POST("/:id/reschedule", middleware.RequireRoles(models.RoleAdmin), defenseHandler.Reschedule)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
