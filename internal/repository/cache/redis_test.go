package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

func setupCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, 5*time.Minute, time.Minute), mr
}

func sampleProduct() *domain.Product {
	image := "https://img.test/p.png"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Product{
		ID:               uuid.New(),
		Name:             "Widget",
		Price:            decimal.RequireFromString("19.90"),
		StockQuantity:    7,
		CategoryImageURL: &image,
		CreatedAtUTC:     now,
		UpdatedAtUTC:     now,
	}
}

func TestRedisCache_Product_Miss(t *testing.T) {
	c, _ := setupCache(t)

	product, err := c.GetProduct(context.Background(), uuid.New())

	assert.Nil(t, product)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisCache_Product_SetGetInvalidate(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	product := sampleProduct()

	require.NoError(t, c.SetProduct(ctx, product, 0))
	assert.True(t, mr.Exists("product:"+product.ID.String()))
	assert.Equal(t, 5*time.Minute, mr.TTL("product:"+product.ID.String()))

	cached, err := c.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, cached.ID)
	assert.Equal(t, "Widget", cached.Name)
	assert.True(t, product.Price.Equal(cached.Price))
	assert.Equal(t, int32(7), cached.StockQuantity)
	assert.Equal(t, *product.CategoryImageURL, *cached.CategoryImageURL)
	assert.True(t, product.CreatedAtUTC.Equal(cached.CreatedAtUTC))

	require.NoError(t, c.InvalidateProduct(ctx, product.ID))
	_, err = c.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisCache_ProductList_KeyIgnoresSearchCase(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetProductList(ctx, domain.ProductFilter{Search: " Lamp "}, []*domain.Product{sampleProduct()}, 0))

	cached, err := c.GetProductList(ctx, domain.ProductFilter{Search: "lamp", Sort: domain.SortNameAsc})
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	_, err = c.GetProductList(ctx, domain.ProductFilter{Search: "lamp", Sort: domain.SortPriceAsc})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisCache_ProductList_EmptyListIsCached(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	minPrice := decimal.NewFromInt(1000)
	filter := domain.ProductFilter{MinPrice: &minPrice}

	require.NoError(t, c.SetProductList(ctx, filter, []*domain.Product{}, 0))

	cached, err := c.GetProductList(ctx, filter)
	require.NoError(t, err)
	assert.NotNil(t, cached)
	assert.Empty(t, cached)
}

func TestRedisCache_InvalidateProductLists(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetProductList(ctx, domain.ProductFilter{}, []*domain.Product{sampleProduct()}, 0))
	require.NoError(t, c.SetProductList(ctx, domain.ProductFilter{Sort: domain.SortPriceDesc}, []*domain.Product{}, 0))

	members, err := mr.SMembers(productListKeysSet)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, c.InvalidateProductLists(ctx))

	assert.False(t, mr.Exists(productListKeysSet))
	_, err = c.GetProductList(ctx, domain.ProductFilter{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisCache_InvalidateProductLists_NothingTracked(t *testing.T) {
	c, _ := setupCache(t)

	assert.NoError(t, c.InvalidateProductLists(context.Background()))
}

func TestRedisCache_InvalidateAll(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	product := sampleProduct()

	require.NoError(t, c.SetProduct(ctx, product, 0))
	require.NoError(t, c.SetProductList(ctx, domain.ProductFilter{}, []*domain.Product{product}, 0))

	require.NoError(t, c.InvalidateAll(ctx, product.ID))

	_, err := c.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.GetProductList(ctx, domain.ProductFilter{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisCache_SetProduct_SkippedAfterInvalidation(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	product := sampleProduct()

	version, err := c.ProductVersion(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	// An update commits between the store read and the cache write
	require.NoError(t, c.InvalidateProduct(ctx, product.ID))
	require.NoError(t, c.SetProduct(ctx, product, version))

	_, err = c.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, versionTTL, mr.TTL("product:"+product.ID.String()+":version"))

	current, err := c.ProductVersion(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	require.NoError(t, c.SetProduct(ctx, product, current))
	_, err = c.GetProduct(ctx, product.ID)
	assert.NoError(t, err)
}

func TestRedisCache_SetProductList_SkippedAfterInvalidation(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	version, err := c.ListVersion(ctx)
	require.NoError(t, err)

	require.NoError(t, c.InvalidateProductLists(ctx))
	require.NoError(t, c.SetProductList(ctx, domain.ProductFilter{}, []*domain.Product{sampleProduct()}, version))

	_, err = c.GetProductList(ctx, domain.ProductFilter{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, mr.Exists(productListKeysSet))

	current, err := c.ListVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, version+1, current)

	require.NoError(t, c.SetProductList(ctx, domain.ProductFilter{}, []*domain.Product{}, current))
	_, err = c.GetProductList(ctx, domain.ProductFilter{})
	assert.NoError(t, err)
}
