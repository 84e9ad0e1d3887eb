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

	"github.com/noah-isme/gema-intern-api/internal/config"
	"github.com/noah-isme/gema-intern-api/internal/database"
	"github.com/noah-isme/gema-intern-api/internal/handler"
	"github.com/noah-isme/gema-intern-api/internal/middleware"
	"github.com/noah-isme/gema-intern-api/internal/repository"
	"github.com/noah-isme/gema-intern-api/internal/router"
	"github.com/noah-isme/gema-intern-api/internal/service"
	cloud "github.com/noah-isme/gema-intern-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

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

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	var storage service.FileStorage
	cloudStorage, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("attachment storage disabled")
	} else {
		storage = cloudStorage
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	logRepo := repository.NewLogRepository(db)
	gamificationRepo := repository.NewGamificationRepository(db)
	pollRepo := repository.NewPollRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.RealtimeChannel, natsConn, validate, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	gamificationService := service.NewGamificationService(gamificationRepo, notificationService, redisClient, cfg.LeaderboardCacheTTL, cfg.Gamification, logger)
	uploader := service.NewAttachmentUploader(storage, cfg.UploadMaxSizeMB, logger)
	logService := service.NewLogService(logRepo, gamificationService, notificationService, activityService, uploader, validate, logger)
	pollService := service.NewPollService(pollRepo, gamificationService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		LogHandler:          handler.NewLogHandler(logService, logger),
		GamificationHandler: handler.NewGamificationHandler(gamificationService, logger),
		PollHandler:         handler.NewPollHandler(pollService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notificationService.Start(ctx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
