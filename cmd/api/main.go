package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pesokrava/product_catalog/internal/config"
	"github.com/Pesokrava/product_catalog/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/product_catalog/internal/delivery/http"
	"github.com/Pesokrava/product_catalog/internal/delivery/http/handler"
	"github.com/Pesokrava/product_catalog/internal/pkg/cache"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
	"github.com/Pesokrava/product_catalog/internal/repository"
	cacheRepo "github.com/Pesokrava/product_catalog/internal/repository/cache"
	"github.com/Pesokrava/product_catalog/internal/usecase/product"

	_ "github.com/Pesokrava/product_catalog/docs"
)

// @title Product Catalog API
// @version 1.0
// @description CRUD API for a product catalog with filtering, sorting, caching and change events.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @tag.name Products
// @tag.description Product catalog endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env, cfg.LogLevel)
	logger.SetGlobalLogger(appLogger)
	appLogger.Info("Starting Product Catalog API...")

	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()

	store, closeStore, err := repository.OpenProductStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open product store", err)
	}
	defer closeStore()

	var productCache product.Cache
	if cfg.Redis.Enabled {
		appLogger.Info("Connecting to Redis...")
		redisClient, err := cache.WaitForRedis(ctx, cfg, 10, 2*time.Second)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", err)
		}
		defer redisClient.Close()
		appLogger.Info("Connected to Redis successfully")

		productCache = cacheRepo.NewRedisCache(redisClient, cfg.Cache.ProductTTL, cfg.Cache.ProductListTTL)
	}

	var publisher product.EventPublisher
	if cfg.NATS.Enabled {
		appLogger.Info("Connecting to NATS...")
		natsPublisher, err := events.NewPublisher(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create NATS publisher", err)
		}
		defer natsPublisher.Close()

		if err := natsPublisher.EnsureStream(); err != nil {
			appLogger.Fatal("Failed to ensure product events stream", err)
		}
		publisher = natsPublisher
	}

	productService := product.NewService(store, productCache, publisher, appLogger)
	productHandler := handler.NewProductHandler(productService, appLogger)

	router := httpDelivery.NewRouter(productHandler, store, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}

	// Let queued product events reach NATS before the connection closes
	productService.Wait()

	appLogger.Info("Server stopped gracefully")
}
