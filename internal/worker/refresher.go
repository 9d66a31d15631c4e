package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

// ProductCache is the subset of the product cache the refresher writes to
type ProductCache interface {
	ProductVersion(ctx context.Context, id uuid.UUID) (int64, error)
	SetProduct(ctx context.Context, product *domain.Product, version int64) error
	InvalidateProduct(ctx context.Context, id uuid.UUID) error
	InvalidateProductLists(ctx context.Context) error
}

// Refresher brings the cached state of one product in line with the store
type Refresher interface {
	Refresh(ctx context.Context, productID uuid.UUID) error
}

// StoreRefresher reloads products from the store into the cache
type StoreRefresher struct {
	store  domain.ProductStore
	cache  ProductCache
	logger *logger.Logger
}

// NewStoreRefresher creates a new store-backed refresher
func NewStoreRefresher(store domain.ProductStore, cache ProductCache, logger *logger.Logger) *StoreRefresher {
	return &StoreRefresher{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Refresh reloads a product and rewrites its cache entry, or evicts it when the
// product no longer exists. Listings are always dropped since any of them may include it.
func (r *StoreRefresher) Refresh(ctx context.Context, productID uuid.UUID) error {
	version, err := r.cache.ProductVersion(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to read cache version: %w", err)
	}

	product, err := r.store.Session().GetByID(ctx, productID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if err := r.cache.InvalidateProduct(ctx, productID); err != nil {
			return fmt.Errorf("failed to evict product: %w", err)
		}
		r.logger.WithFields(map[string]any{
			"product_id": productID.String(),
		}).Info("Product gone, evicted from cache")
	case err != nil:
		return fmt.Errorf("failed to load product: %w", err)
	default:
		if err := r.cache.SetProduct(ctx, product, version); err != nil {
			return fmt.Errorf("failed to cache product: %w", err)
		}
		r.logger.WithFields(map[string]any{
			"product_id": productID.String(),
		}).Info("Successfully refreshed cached product")
	}

	if err := r.cache.InvalidateProductLists(ctx); err != nil {
		return fmt.Errorf("failed to invalidate product lists: %w", err)
	}
	return nil
}
