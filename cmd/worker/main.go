package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/config"
	"github.com/dkrasner/taskmind/internal/database"
	"github.com/dkrasner/taskmind/internal/logger"
	"github.com/dkrasner/taskmind/internal/queue"
	"github.com/dkrasner/taskmind/internal/services/ai"
	"github.com/dkrasner/taskmind/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync() // Ignore sync errors in production
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
	)

	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_required_for_worker")
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	contextRepo := database.NewContextEntryRepository(db)

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.WorkerPrefetch),
	)

	// The worker exists to replace heuristic insights with model-derived
	// ones, so a provider is mandatory here
	if cfg.OpenAIKey == "" {
		zapLogger.Fatal("openai_api_key_required_for_worker")
	}

	provider := ai.NewOpenAIProviderWithLogger(
		cfg.OpenAIKey,
		cfg.AIBaseURL,
		cfg.AIModel,
		zapLogger,
		debugMode,
	)

	zapLogger.Info("initialized_completion_provider",
		zap.String("provider", cfg.AIProvider),
		zap.String("model", cfg.AIModel),
	)

	analyzer := ai.NewContextAnalyzer(provider, zapLogger)
	reanalyzer := workers.NewReanalyzer(analyzer, contextRepo, jobQueue, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- reanalyzer.Run(ctx, cfg.WorkerPrefetch)
	}()

	select {
	case <-sigChan:
		zapLogger.Info("shutdown_signal_received")
		cancel()
		<-done
	case err := <-done:
		if err != nil && err != context.Canceled {
			zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		}
	}

	zapLogger.Info("worker_stopped")
}
