package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

const (
	productListKeysSet = "products:list_keys"
	productListVersion = "products:list_version"

	// versionTTL outlives any read that could still be holding an older version
	versionTTL = 24 * time.Hour
)

// RedisCache implements read-through caching for products and product listings
type RedisCache struct {
	client         *redis.Client
	productTTL     time.Duration
	productListTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, productTTL, productListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		productTTL:     productTTL,
		productListTTL: productListTTL,
	}
}

// Single product cache keys and methods

func (c *RedisCache) productKey(id uuid.UUID) string {
	return fmt.Sprintf("product:%s", id.String())
}

// GetProduct retrieves a cached product. A miss returns domain.ErrNotFound.
func (c *RedisCache) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	val, err := c.client.Get(ctx, c.productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var product domain.Product
	if err := json.Unmarshal(val, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *RedisCache) productVersionKey(id uuid.UUID) string {
	return fmt.Sprintf("product:%s:version", id.String())
}

// ProductVersion returns the invalidation counter of a product. Read it before
// loading the product from the store and hand it to SetProduct.
func (c *RedisCache) ProductVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	return c.version(ctx, c.productVersionKey(id))
}

// SetProduct stores a product in cache unless it was invalidated after version was read
func (c *RedisCache) SetProduct(ctx context.Context, product *domain.Product, version int64) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.setIfVersion(ctx, c.productVersionKey(product.ID), version, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, c.productKey(product.ID), data, c.productTTL)
	})
}

// InvalidateProduct removes a product from cache and bumps its version so
// in-flight loads of the old row are not written back
func (c *RedisCache) InvalidateProduct(ctx context.Context, id uuid.UUID) error {
	versionKey := c.productVersionKey(id)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, versionTTL)
		pipe.Del(ctx, c.productKey(id))
		return nil
	})
	return err
}

func (c *RedisCache) version(ctx context.Context, key string) (int64, error) {
	v, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// setIfVersion runs write in a transaction guarded by WATCH on versionKey. A version
// that moved, before or during the transaction, turns the write into a no-op.
func (c *RedisCache) setIfVersion(ctx context.Context, versionKey string, version int64, write func(pipe redis.Pipeliner)) error {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			write(pipe)
			return nil
		})
		return err
	}, versionKey)

	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Product listing cache keys and methods

// productListKey derives a stable key from the filter. Search is case-insensitive,
// so differently-cased searches share an entry.
func (c *RedisCache) productListKey(filter domain.ProductFilter) string {
	term, _ := filter.SearchTerm()
	var minPrice, maxPrice string
	if filter.MinPrice != nil {
		minPrice = filter.MinPrice.String()
	}
	if filter.MaxPrice != nil {
		maxPrice = filter.MaxPrice.String()
	}

	canonical := strings.Join([]string{
		strings.ToLower(term),
		minPrice,
		maxPrice,
		string(domain.ParseSortKey(string(filter.Sort))),
	}, "\x00")

	sum := sha256.Sum256([]byte(canonical))
	return "products:list:" + hex.EncodeToString(sum[:])
}

// GetProductList retrieves a cached listing. A miss returns domain.ErrNotFound.
func (c *RedisCache) GetProductList(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	val, err := c.client.Get(ctx, c.productListKey(filter)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	products := []*domain.Product{}
	if err := json.Unmarshal(val, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListVersion returns the invalidation counter shared by all listings
func (c *RedisCache) ListVersion(ctx context.Context) (int64, error) {
	return c.version(ctx, productListVersion)
}

// SetProductList stores a listing in cache and tracks its key in a SET, unless
// listings were invalidated after version was read
func (c *RedisCache) SetProductList(ctx context.Context, filter domain.ProductFilter, products []*domain.Product, version int64) error {
	key := c.productListKey(filter)

	data, err := json.Marshal(products)
	if err != nil {
		return err
	}

	return c.setIfVersion(ctx, productListVersion, version, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, key, data, c.productListTTL)
		pipe.SAdd(ctx, productListKeysSet, key)
		pipe.Expire(ctx, productListKeysSet, c.productListTTL)
	})
}

// InvalidateProductLists bumps the listing version and removes every cached
// listing using SET-based tracking
func (c *RedisCache) InvalidateProductLists(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, productListVersion)
		pipe.Expire(ctx, productListVersion, versionTTL)
		return nil
	})
	if err != nil {
		return err
	}

	keys, err := c.client.SMembers(ctx, productListKeysSet).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	if len(keys) > 0 {
		keys = append(keys, productListKeysSet)
		return c.client.Unlink(ctx, keys...).Err()
	}

	return nil
}

// InvalidateAll drops a product and every listing that may contain it
func (c *RedisCache) InvalidateAll(ctx context.Context, id uuid.UUID) error {
	if err := c.InvalidateProduct(ctx, id); err != nil {
		return err
	}
	return c.InvalidateProductLists(ctx)
}
