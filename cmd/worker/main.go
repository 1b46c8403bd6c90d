package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/territory-service/internal/app"
	"github.com/territory-service/internal/config"
	"github.com/territory-service/internal/pkg/logger"
	"github.com/territory-service/internal/repository/cache"
	redisRepo "github.com/territory-service/internal/repository/redis"
	"github.com/territory-service/internal/worker"
	"github.com/territory-service/internal/worker/blocks"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, "territory-worker")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Block Detection Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("max_retries", cfg.Worker.MaxRetries),
		zap.Int("block_concurrency", cfg.Worker.BlockConcurrency),
		zap.String("reverse_geocoder", cfg.Grid.ReverseGeocoder))

	// 3. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 4. Initialize repositories and use cases
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)
	providers := app.NewProviders(cfg, log)

	gridUC, err := app.NewGridUseCase(cfg, providers, log)
	if err != nil {
		log.Fatal("Failed to initialize grid use case", zap.Error(err))
	}

	// 5. Initialize workers
	detectionWorker := blocks.NewBlockDetectionWorker(
		streamRepo,
		gridUC,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.MaxRetries,
		cfg.Worker.BlockConcurrency,
		log,
	)

	workerManager := worker.NewWorkerManager(log, 0)
	workerManager.Register(detectionWorker)

	// 6. Start workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	cancel()

	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
