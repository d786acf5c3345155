package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"

	"github.com/belajaryuk/roadmap-api/internal/config"
	"github.com/belajaryuk/roadmap-api/internal/database"
	"github.com/belajaryuk/roadmap-api/internal/handlers"
	"github.com/belajaryuk/roadmap-api/internal/jobs"
	"github.com/belajaryuk/roadmap-api/internal/middleware"
	"github.com/belajaryuk/roadmap-api/internal/services"
	"github.com/belajaryuk/roadmap-api/internal/types"

	_ "github.com/belajaryuk/roadmap-api/docs/api" // Swagger docs
)

// @title BelajarYuk Roadmap API
// @version 1.0.0
// @description Learning roadmap service: generation, progress and quiz gating, publication, and public browsing

// @contact.name API Support
// @contact.url https://github.com/belajaryuk/roadmap-api

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations and seed the topic vocabulary
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.SeedTopics(db); err != nil {
		log.Fatalf("Failed to seed topics: %v", err)
	}

	// Shared services
	gen := services.NewGenerator(cfg)
	cache := services.NewCache(cfg)

	// Background materials preparation
	worker := jobs.NewMaterialsWorker(db, gen, cfg.MaterialsQueueSize, cfg.MaterialsMaxRetries)
	worker.Start()
	defer worker.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("belajaryuk")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	roadmapHandler := &handlers.RoadmapHandler{DB: db, Cache: cache, Worker: worker}
	lifecycleHandler := &handlers.LifecycleHandler{DB: db, Cache: cache, Gen: gen}
	progressHandler := &handlers.ProgressHandler{DB: db}
	quizHandler := &handlers.QuizHandler{DB: db, Gen: gen}
	generateHandler := &handlers.GenerateHandler{DB: db, Gen: gen}
	askHandler := &handlers.AskHandler{DB: db, Gen: gen}
	publicHandler := &handlers.PublicHandler{DB: db, Cache: cache}
	topicHandler := &handlers.TopicHandler{DB: db}
	healthHandler := &handlers.HealthHandler{Cfg: cfg, DB: db, Cache: cache}

	// Public routes, no session required
	api.Get("/health", healthHandler.Health)
	api.Get("/topics", topicHandler.ListTopics)
	api.Get("/public/roadmaps", publicHandler.ListPublic)
	api.Get("/public/roadmaps/:slug", publicHandler.GetPublic)

	// Generation routes
	api.Post("/generate-roadmap", middleware.AuthUser(cfg), generateHandler.GenerateRoadmap)

	// Owned roadmap routes
	roadmaps := api.Group("/roadmaps", middleware.AuthUser(cfg))
	roadmaps.Post("/", roadmapHandler.CreateRoadmap)
	roadmaps.Get("/", roadmapHandler.ListRoadmaps)
	roadmaps.Get("/:id", roadmapHandler.GetRoadmap)
	roadmaps.Delete("/:id", roadmapHandler.DeleteRoadmap)

	roadmaps.Post("/:id/prepare-materials", generateHandler.PrepareMaterials)

	roadmaps.Get("/:id/progress", progressHandler.GetProgress)
	roadmaps.Post("/:id/progress", progressHandler.UpdateProgress)
	roadmaps.Get("/:id/read", progressHandler.Read)
	roadmaps.Post("/:id/ask", askHandler.Ask)
	roadmaps.Get("/:id/quiz", quizHandler.GetQuiz)
	roadmaps.Post("/:id/quiz", quizHandler.SubmitQuiz)

	roadmaps.Post("/:id/publish", lifecycleHandler.Publish)
	roadmaps.Post("/:id/fork", lifecycleHandler.Fork)
	roadmaps.Post("/:id/save", lifecycleHandler.Save)
	roadmaps.Post("/:id/rate", lifecycleHandler.Rate)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Authorizer is initialized lazily on the first authenticated request
	log.Printf("Authorizer will be initialized on first authenticated request")

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Check for a typed application error
	if e, ok := err.(*types.CustomError); ok {
		code = e.Code
		message = e.Message
		errorType = e.Type
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
