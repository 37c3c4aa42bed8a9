package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/obdsuperstar/api/internal/config"
	"github.com/obdsuperstar/api/internal/handler"
	"github.com/obdsuperstar/api/internal/middleware"
	"github.com/obdsuperstar/api/internal/service"
	ws "github.com/obdsuperstar/api/internal/websocket"
	"github.com/obdsuperstar/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	validate := validator.New()

	// Services
	orchestrator := service.NewSimulatedOrchestrator(2 * time.Second)
	pipelineService := service.NewPipelineService(orchestrator)
	audioService := service.NewAudioService(redisClient, asynqClient, time.Duration(cfg.Audio.RetentionHours)*time.Hour)
	campaignService := service.NewCampaignService(redisClient)
	collabService := service.NewCollabService()

	// WebSocket hubs
	progressHub := ws.NewProgressHub(pipelineService)
	collabHub := ws.NewCollabHub(collabService, campaignService)

	// Handlers
	generateHandler := handler.NewGenerateHandler(pipelineService, validate)
	audioHandler := handler.NewAudioHandler(audioService, validate)
	campaignHandler := handler.NewCampaignHandler(campaignService, pipelineService, collabService, collabHub, validate)
	collabHandler := handler.NewCollabHandler(collabService)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "OBD SuperStar Agent"})
	})

	api := app.Group("/api")

	// Pipeline routes
	generate := api.Group("/generate")
	generate.Post("/start", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), generateHandler.Start)
	generate.Get("/:jobId/status", generateHandler.Status)

	// Audio job routes
	audio := api.Group("/audio")
	audio.Post("/start", rateLimiter.AudioLimit(cfg.RateLimit.AudioPerHour), audioHandler.Start)
	audio.Get("/status/:jobId", audioHandler.Status)
	audio.Get("/result/:jobId", audioHandler.Result)

	// Campaign + comment routes
	campaigns := api.Group("/campaigns")
	campaigns.Post("/", campaignHandler.Create)
	campaigns.Get("/", campaignHandler.List)
	campaigns.Get("/:id", campaignHandler.Get)
	campaigns.Delete("/:id", campaignHandler.Delete)
	campaigns.Get("/:id/comments", campaignHandler.ListComments)
	campaigns.Post("/:id/comments", rateLimiter.CommentLimit(cfg.RateLimit.CommentsPerMin), campaignHandler.AddComment)
	campaigns.Delete("/:id/comments/:commentId", campaignHandler.DeleteComment)

	// Collaboration routes
	api.Get("/presence", collabHandler.Presence)
	api.Get("/presence/:campaignId", collabHandler.CampaignPresence)
	api.Get("/activity", collabHandler.Activity)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/progress/:jobId", websocket.New(func(c *websocket.Conn) {
		progressHub.HandleConnection(c, c.Params("jobId"))
	}))

	app.Get("/ws/collaborate/:campaignId", websocket.New(func(c *websocket.Conn) {
		collabHub.HandleConnection(c, c.Params("campaignId"), c.Query("username"))
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, audioService)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, audioService *service.AudioService) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Audio.Concurrency,
			Queues: map[string]int{
				"audio": 10,
			},
		},
	)

	audioWorker := worker.NewAudioWorker(audioService, cfg.Server.PublicURL)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeAudio, audioWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
