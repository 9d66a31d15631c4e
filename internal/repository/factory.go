package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/product_catalog/internal/config"
	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/database"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
	"github.com/Pesokrava/product_catalog/internal/repository/memory"
	"github.com/Pesokrava/product_catalog/internal/repository/postgres"
)

const (
	dbConnectRetries    = 10
	dbConnectRetryDelay = 2 * time.Second
)

// NewProductStore returns the product store selected by driver.
// db is only used, and required, by the postgres driver.
func NewProductStore(driver string, db *sqlx.DB) (domain.ProductStore, error) {
	switch driver {
	case config.StoreDriverMemory:
		return memory.NewProductStore(), nil
	case config.StoreDriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("store driver %q requires a database connection", driver)
		}
		return postgres.NewProductStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}

// OpenProductStore connects the configured store, applying migrations when enabled.
// The returned func releases the underlying connection.
func OpenProductStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (domain.ProductStore, func(), error) {
	if cfg.Store.Driver != config.StoreDriverPostgres {
		store, err := NewProductStore(cfg.Store.Driver, nil)
		if err != nil {
			return nil, nil, err
		}
		log.Warn("Using in-memory product store, data will not survive a restart")
		return store, func() {}, nil
	}

	log.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, dbConnectRetries, dbConnectRetryDelay)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Connected to PostgreSQL successfully")

	if cfg.Database.AutoMigrate {
		log.Info("Applying database migrations...")
		if err := database.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	store, err := NewProductStore(cfg.Store.Driver, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return store, func() { db.Close() }, nil
}
