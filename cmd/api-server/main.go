package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/podforge/podforge/pkg/adapters"
	"github.com/podforge/podforge/pkg/apiserver"
	"github.com/podforge/podforge/pkg/config"
	"github.com/podforge/podforge/pkg/eventbus"
	"github.com/podforge/podforge/pkg/integrations"
	"github.com/podforge/podforge/pkg/pusher"
	"github.com/podforge/podforge/pkg/queue"
	"github.com/podforge/podforge/pkg/secrets"
	"github.com/podforge/podforge/pkg/storage"
	"github.com/podforge/podforge/pkg/store/postgres"
	redisclient "github.com/podforge/podforge/pkg/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(&cfg.Logging)
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	assetStore, err := storage.NewLocalStore(cfg.Storage.AssetDir)
	if err != nil {
		logger.Fatal("Failed to prepare asset storage", zap.Error(err))
	}

	secretStore, err := secrets.NewStore(postgres.NewIntegrationRepository(db.DB()), cfg.Integrations.SigningKey)
	if err != nil {
		logger.Fatal("Failed to initialize secret store", zap.Error(err))
	}

	flow := integrations.NewShopifyFlow(&cfg.Shopify, integrations.NewRedisStateCache(redis.Client()))
	service := integrations.NewService(
		postgres.NewIntegrationRepository(db.DB()),
		secretStore,
		flow,
		nil, nil,
		logger,
	)
	shopify := adapters.NewShopify(cfg, service)
	gelato := adapters.NewGelato(cfg, service)
	service.SetAdapters(shopify, gelato)

	bus := eventbus.NewBus(redis.Client())
	pipeline := pusher.NewPipeline(db, shopify, bus, logger)

	// Mock mode runs pushes inline, so no worker process is needed in
	// development. Real mode hands tasks to the redis queue.
	var pushQueue queue.Enqueuer
	if cfg.Integrations.UseMockAPIs {
		pushQueue = queue.NewEagerQueue(pipeline.Handle, cfg.Queue.RetryLimit)
	} else {
		pushQueue = queue.NewRedisQueue(redis.Client(), cfg.Queue.Name, cfg.Queue.RetryLimit, cfg.Queue.BackoffBase, logger)
	}

	server := apiserver.NewServer(db, cfg, logger, pushQueue, service, gelato, assetStore)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	go func() {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func newLogger(cfg *config.LoggingConfig) *zap.Logger {
	if cfg.Format == "console" {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
