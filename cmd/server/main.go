package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if err := repository.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	enqueuer := queue.NewEnqueuer(redisConn, cfg.Queue)

	media, err := platform.NewMediaFetcher(context.Background(), cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure media storage: %v", err)
	}
	registry, err := platform.NewRegistryFromConfig(cfg, media, &http.Client{Timeout: cfg.PlatformTimeout})
	if err != nil {
		log.Fatalf("Failed to register platform adapters: %v", err)
	}

	postRepo := repository.NewScheduledPostRepository(db)
	logRepo := repository.NewPublishLogRepository(db)

	scheduleService := service.NewScheduleService(postRepo, logRepo, enqueuer)

	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())
	handlers.NewPostHandler(scheduleService).Register(api)

	// queue
	worker := queue.NewQueue(postRepo, logRepo, registry, cfg.PlatformTimeout)
	server := queue.NewServer(redisConn, cfg.Queue)
	if err := server.Start(worker.Mux()); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}
	slog.Info("Asynq server started", "queue", cfg.Queue.Name, "concurrency", cfg.Queue.Concurrency)

	// cron jobs
	pruneJob := job.NewQueuePruneJob(enqueuer.Inspector(), cfg.Queue.Name, cfg.Queue.KeepCompleted, cfg.Queue.KeepFailed)
	c := cron.New()
	if err := c.AddFunc(cfg.Queue.PruneSpec, pruneJob.PruneTasks); err != nil {
		log.Fatalf("Invalid prune schedule %q: %v", cfg.Queue.PruneSpec, err)
	}
	requeueJob := job.NewRequeueJob(scheduleService, cfg.Queue.RequeueAfter)
	if err := c.AddFunc(cfg.Queue.RequeueSpec, requeueJob.RequeuePosts); err != nil {
		log.Fatalf("Invalid requeue schedule %q: %v", cfg.Queue.RequeueSpec, err)
	}
	c.Start()

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("Server is running", "addr", cfg.HTTPAddr)

	gracefulShutdown(app, server, c, enqueuer, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, c *cron.Cron, enqueuer *queue.Enqueuer, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}

	c.Stop()
	server.Shutdown()

	if err := enqueuer.Close(); err != nil {
		slog.Error("Failed to close queue client", "error", err)
	}

	closeDB(db)
	slog.Info("Server shutdown complete.")
}
