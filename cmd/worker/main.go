package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/podforge/podforge/pkg/adapters"
	"github.com/podforge/podforge/pkg/config"
	"github.com/podforge/podforge/pkg/eventbus"
	"github.com/podforge/podforge/pkg/integrations"
	"github.com/podforge/podforge/pkg/metrics"
	"github.com/podforge/podforge/pkg/pusher"
	"github.com/podforge/podforge/pkg/queue"
	"github.com/podforge/podforge/pkg/secrets"
	"github.com/podforge/podforge/pkg/store/postgres"
	redisclient "github.com/podforge/podforge/pkg/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	secretStore, err := secrets.NewStore(postgres.NewIntegrationRepository(db.DB()), cfg.Integrations.SigningKey)
	if err != nil {
		logger.Fatal("failed to initialize secret store", zap.Error(err))
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
	service.SetAdapters(shopify, adapters.NewGelato(cfg, service))

	bus := eventbus.NewBus(redis.Client())
	pipeline := pusher.NewPipeline(db, shopify, bus, logger)
	pushQueue := queue.NewRedisQueue(redis.Client(), cfg.Queue.Name, cfg.Queue.RetryLimit, cfg.Queue.BackoffBase, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reportQueueDepth(ctx, pushQueue)

	go func() {
		if err := pushQueue.Consume(ctx, pipeline.Handle); err != nil && ctx.Err() == nil {
			logger.Fatal("push queue consumer stopped", zap.Error(err))
		}
	}()

	logger.Info("worker initialized", zap.String("queue", cfg.Queue.Name))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
}

func reportQueueDepth(ctx context.Context, pushQueue *queue.RedisQueue) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if depth, err := pushQueue.Length(ctx); err == nil {
				metrics.QueueDepth.Set(float64(depth))
			}
		}
	}
}
