// @title Quiz Ingest API
// @version 1.0
// @description Admin and learner API for the quiz ingestion pipeline.
// @host localhost:8090
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize. The token must carry role=admin.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"quiz-ingest/internal/adapter"
	"quiz-ingest/internal/adapter/completion"
	"quiz-ingest/internal/adapter/filestore"
	"quiz-ingest/internal/cache"
	"quiz-ingest/internal/config"
	"quiz-ingest/internal/database"
	"quiz-ingest/internal/handler"
	"quiz-ingest/internal/logger"
	"quiz-ingest/internal/middleware"
	"quiz-ingest/internal/queue"
	"quiz-ingest/internal/repository"
	"quiz-ingest/internal/service"

	_ "quiz-ingest/cmd/api/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for form boundaries on top of the file size limit.
const multipartOverhead = 64 * 1024

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	db, err := database.NewSQLXDB(cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Successfully connected to Redis")
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)

	files, err := filestore.NewLocalStore(cfg.Upload.Dir)
	if err != nil {
		appLogger.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	completer, err := completion.New(cfg.LLM, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create completion provider", zap.Error(err))
	}
	if completer == nil {
		appLogger.Info("No completion provider configured, AI assistance is disabled")
	}

	quizRepository := repository.NewQuizRepository(db)
	jobRepository := repository.NewJobRepository(db)
	jobQueue := queue.NewRedisQueue(redisClient, cfg.Queue.Topic, cfg.Queue.VisibilityTimeout, appLogger)

	ingestionService := service.NewIngestionService(quizRepository, jobRepository, files, jobQueue, cacheAdapter, cfg.Upload, cfg.Queue)
	questionService := service.NewQuestionService(quizRepository, cacheAdapter, cfg.CacheTTLs.QuestionList)
	assistService := service.NewAssistService(completer)

	adminHandler := handler.NewAdminHandler(ingestionService, questionService, assistService)
	publicHandler := handler.NewPublicHandler(questionService)
	healthHandler := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"database": db.PingContext,
		"redis":    cacheAdapter.Ping,
	})

	bodyLimit := int(cfg.Upload.MaxFileSize) + multipartOverhead
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  20 * time.Second,
		BodyLimit:    bodyLimit,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,PUT,DELETE,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept,Authorization", MaxAge: 300}))

	app.Get("/swagger/*", swagger.HandlerDefault)
	handler.RegisterRoutes(app, adminHandler, publicHandler, healthHandler, cfg.Auth.JWTSecretKey)

	if cfg.Auth.JWTSecretKey == "" {
		appLogger.Warn("JWT secret is empty, every admin request will be rejected")
	}

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
