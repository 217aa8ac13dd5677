package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/cache"
	"github.com/noah-isme/gema-classroom-api/internal/config"
	"github.com/noah-isme/gema-classroom-api/internal/database"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/events"
	"github.com/noah-isme/gema-classroom-api/internal/handler"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
	"github.com/noah-isme/gema-classroom-api/internal/router"
	"github.com/noah-isme/gema-classroom-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	checks := map[string]handler.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, 5*time.Second)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn().Msg("redis url not configured; statistics are computed without caching")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := dto.NewValidator()

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	transactor := repository.NewTransactor(db)

	authorizer := service.NewRoleAuthorizer()
	publisher := events.NewPublisher(redisClient, natsConn, cfg.EventsChannel, logger)
	statsCache := cache.NewStatsCache(redisClient, cfg.EventsChannel, cfg.StatsCacheTTL)

	activityService := service.NewActivityService(activityRepo, logger)
	statsService := service.NewStatsService(assignmentRepo, submissionRepo, enrollmentRepo, statsCache, authorizer, logger)
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Assignments: assignmentRepo,
		Transactor:  transactor,
		Stats:       statsService,
		Authorizer:  authorizer,
		Activity:    activityService,
		Events:      publisher,
		Validator:   validate,
	}, logger)

	submissionDeps := service.SubmissionDependencies{
		Assignments: assignmentRepo,
		Submissions: submissionRepo,
		Transactor:  transactor,
		Stats:       statsService,
		Authorizer:  authorizer,
		Activity:    activityService,
		Events:      publisher,
		Validator:   validate,
	}
	submissionService := service.NewSubmissionService(submissionDeps, logger)
	gradingService := service.NewGradingService(submissionDeps, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:    &logger,
		AccessLog: cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, statsService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		GradingHandler:    handler.NewGradingHandler(gradingService, logger),
		HealthChecks:      checks,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		ExposeMetrics:     true,
	})

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
