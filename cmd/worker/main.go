package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"quiz-ingest/internal/adapter"
	"quiz-ingest/internal/adapter/completion"
	"quiz-ingest/internal/adapter/filestore"
	"quiz-ingest/internal/adapter/parselog"
	"quiz-ingest/internal/cache"
	"quiz-ingest/internal/config"
	"quiz-ingest/internal/database"
	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/extractor/ai"
	"quiz-ingest/internal/extractor/rule"
	"quiz-ingest/internal/logger"
	"quiz-ingest/internal/queue"
	"quiz-ingest/internal/repository"
	"quiz-ingest/internal/service"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewSQLXDB(cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	files, err := filestore.NewLocalStore(cfg.Upload.Dir)
	if err != nil {
		appLogger.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	completer, err := completion.New(cfg.LLM, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create completion provider", zap.Error(err))
	}
	if completer == nil {
		appLogger.Info("No completion provider configured, using rule-based parsing only")
	}

	parseLogs, closeParseLogs, err := newParseLogWriter(ctx, cfg.ParseLog, db)
	if err != nil {
		appLogger.Fatal("Failed to set up parse log sink", zap.Error(err))
	}
	defer closeParseLogs()

	strategies := []domain.ExtractionStrategy{
		{Mode: domain.ParseModeAI, Progress: domain.ProgressAIExtraction, Extractor: ai.NewExtractor(completer, appLogger.Named("ai"))},
		{Mode: domain.ParseModeRule, Progress: domain.ProgressRuleFallback, Extractor: rule.NewExtractor()},
	}

	orchestrator := service.NewOrchestrator(
		repository.NewQuizRepository(db),
		repository.NewJobRepository(db),
		files,
		repository.NewTransactionManagerAdapter(db),
		strategies,
		parseLogs,
		adapter.NewRedisCacheAdapter(redisClient),
		appLogger.Named("orchestrator"),
	)

	broker := queue.NewRedisQueue(redisClient, cfg.Queue.Topic, cfg.Queue.VisibilityTimeout, appLogger.Named("queue"))
	worker := queue.NewWorker(broker, orchestrator, queue.WorkerOptions{
		Concurrency:  cfg.Queue.Concurrency,
		PollTimeout:  cfg.Queue.PollTimeout,
		ReapInterval: cfg.Queue.ReapInterval,
		JobTimeout:   cfg.Queue.HandlerTimeout(),
	}, appLogger.Named("worker"))

	appLogger.Info("Starting ingestion worker",
		zap.String("topic", cfg.Queue.Topic),
		zap.Int("concurrency", cfg.Queue.Concurrency),
		zap.Bool("ai_enabled", completer != nil),
		zap.String("parse_log_sink", cfg.ParseLog.Sink),
	)
	if err := worker.Run(ctx); err != nil {
		appLogger.Error("Worker stopped with error", zap.Error(err))
	}
	appLogger.Info("Worker exited gracefully")
}

// newParseLogWriter selects the parse log sink. The returned func releases it.
func newParseLogWriter(ctx context.Context, cfg config.ParseLogConfig, db *sqlx.DB) (domain.ParseLogWriter, func(), error) {
	switch cfg.Sink {
	case "mongo":
		client, err := parselog.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Get().Warn("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}
		return parselog.NewMongoWriter(client.Database(cfg.MongoDatabase)), closeFn, nil
	default:
		return repository.NewParseLogRepository(db), func() {}, nil
	}
}
