package main

// @title Territory Service API
// @version 1.0.0
// @description Проверка нарисованных территорий на пересечения, разбиение на блоки, оценка зданий и улиц в блоках и каскадный поиск мест Канады.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/territory-service/docs"
	"github.com/territory-service/internal/app"
	"github.com/territory-service/internal/config"
	httpDelivery "github.com/territory-service/internal/delivery/http"
	"github.com/territory-service/internal/delivery/http/handler"
	"github.com/territory-service/internal/domain/repository"
	"github.com/territory-service/internal/pkg/logger"
	"github.com/territory-service/internal/repository/cache"
	"github.com/territory-service/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, "territory-api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Territory Service")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("territory_source", cfg.Territory.Source),
		zap.String("reverse_geocoder", cfg.Grid.ReverseGeocoder),
	)

	checks := make(map[string]httpDelivery.HealthChecker)

	// 3. Connect to Redis (only for the shared cache)
	var redisClient *cache.Redis
	if cfg.Cache.Backend == "redis" {
		redisClient, err = cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		}()
		checks["redis"] = redisClient
		log.Info("Redis connected")
	}

	// 4. External providers and territory source
	providers := app.NewProviders(cfg, log)

	territories, err := app.NewTerritorySource(cfg, providers, log)
	if err != nil {
		log.Fatal("Failed to initialize territory source", zap.Error(err))
	}
	defer func() {
		if err := territories.Close(); err != nil {
			log.Error("Failed to close territory source", zap.Error(err))
		}
	}()
	if territories.DB != nil {
		checks["postgres"] = territories.DB
	}

	cacheRepo := app.NewCacheRepository(cfg, redisClient, log)

	log.Info("Repositories initialized")

	// 5. Initialize Use Cases
	var checker repository.OverlapChecker
	if cfg.Backend.BaseURL != "" {
		checker = providers.Backend
	} else {
		log.Warn("BACKEND_URL is not set, overlap is checked locally only")
	}
	boundaryValidator := usecase.NewBoundaryValidator(checker, territories.Repository, log)

	gridUC, err := app.NewGridUseCase(cfg, providers, log)
	if err != nil {
		log.Fatal("Failed to initialize grid use case", zap.Error(err))
	}

	locationUC := usecase.NewLocationUseCase(
		providers.LocationProviders(),
		cacheRepo,
		log,
		cfg.Cache.LocationTTL,
	)

	log.Info("Use cases initialized")

	// 6. Initialize HTTP Handlers
	territoryHandler := handler.NewTerritoryHandler(boundaryValidator, gridUC, log)
	blockHandler := handler.NewBlockHandler(gridUC, cfg.Grid.DetailsTimeout, log)
	locationHandler := handler.NewLocationHandler(locationUC, log)

	// 7. Initialize HTTP Server
	server := httpDelivery.NewServer(
		cfg,
		log,
		territoryHandler,
		blockHandler,
		locationHandler,
		checks,
	)

	// 8. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
