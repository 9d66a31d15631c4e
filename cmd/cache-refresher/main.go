package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/product_catalog/internal/config"
	"github.com/Pesokrava/product_catalog/internal/delivery/events"
	"github.com/Pesokrava/product_catalog/internal/pkg/cache"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
	"github.com/Pesokrava/product_catalog/internal/repository"
	cacheRepo "github.com/Pesokrava/product_catalog/internal/repository/cache"
	"github.com/Pesokrava/product_catalog/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env, cfg.LogLevel)
	appLogger.Info("Starting cache refresher...")

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Migrations belong to the API and catalogctl
	cfg.Database.AutoMigrate = false
	store, closeStore, err := repository.OpenProductStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open product store", err)
	}
	defer closeStore()

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(ctx, cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()

	redisCache := cacheRepo.NewRedisCache(redisClient, cfg.Cache.ProductTTL, cfg.Cache.ProductListTTL)
	refresher := worker.NewCacheRefresher(worker.NewStoreRefresher(store, redisCache, appLogger), appLogger)

	appLogger.Info("Connecting to NATS JetStream...")
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Fatal("Failed to create JetStream context", err)
	}

	appLogger.WithFields(map[string]any{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	streamConfig := events.NewStreamConfig(js, appLogger)
	if err := streamConfig.EnsureStream(); err != nil {
		appLogger.Fatal("Failed to ensure stream", err)
	}
	if err := streamConfig.EnsureConsumer(); err != nil {
		appLogger.Fatal("Failed to ensure consumer", err)
	}

	sub, err := js.PullSubscribe(events.StreamSubjects, events.ConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	appLogger.WithFields(map[string]any{
		"stream":   events.StreamName,
		"consumer": events.ConsumerName,
	}).Info("Subscribed to JetStream consumer")

	done := make(chan struct{})
	go func() {
		defer close(done)
		events.FetchLoop(ctx, sub, refresher.HandleEvent, appLogger)
	}()

	<-ctx.Done()
	appLogger.Info("Received shutdown signal")
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := refresher.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", err)
	}

	appLogger.Info("Cache refresher stopped")
}
