package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/oeams/oeams-api/internal/config"
	"github.com/oeams/oeams-api/internal/database"
	"github.com/oeams/oeams-api/internal/handler"
	"github.com/oeams/oeams-api/internal/middleware"
	"github.com/oeams/oeams-api/internal/observability"
	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/router"
	"github.com/oeams/oeams-api/internal/service"
	cloud "github.com/oeams/oeams-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	postingRepo := repository.NewPostingRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	transitionLogRepo := repository.NewTransitionLogRepository(db)

	auditService := service.NewTransitionLogService(transitionLogRepo, logger)
	eventService := service.NewEventService(natsConn, "oeams.workflow", logger)

	progressService := service.NewProgressService(applicationRepo, requirementRepo, attendanceRepo, redisClient, cfg.ProgressCacheTTL, cfg.RequiredHours, validate, auditService, logger)
	postingService := service.NewPostingService(postingRepo, validate, auditService, eventService, logger)
	applicationService := service.NewApplicationService(applicationRepo, postingRepo, validate, auditService, eventService, progressService, logger)
	requirementService := service.NewRequirementService(requirementRepo, validate, uploader, auditService, eventService, progressService, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, progressService, progressService, validate, auditService, eventService, logger)

	seedService := service.NewSeedService(requirementRepo, logger)
	if _, err := seedService.SeedRequirementDefinitions(context.Background()); err != nil {
		log.Fatalf("failed to seed requirement definitions: %v", err)
	}

	postingHandler := handler.NewPostingHandler(postingService, validate, logger)
	applicationHandler := handler.NewApplicationHandler(applicationService, validate, logger)
	requirementHandler := handler.NewRequirementHandler(requirementService, validate, logger)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, validate, logger)
	progressHandler := handler.NewProgressHandler(progressService, validate, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/metrics", observability.MetricsHandler())
	router.Register(app, cfg, router.Dependencies{
		PostingHandler:     postingHandler,
		ApplicationHandler: applicationHandler,
		RequirementHandler: requirementHandler,
		AttendanceHandler:  attendanceHandler,
		ProgressHandler:    progressHandler,
		AuditHandler:       auditHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
