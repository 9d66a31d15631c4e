package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

var columns = []string{"id", "name", "price", "stock_quantity", "category_image_url", "created_at_utc", "updated_at_utc"}

func setupStore(t *testing.T) (*ProductStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewProductStore(sqlx.NewDb(db, "sqlmock")), mock
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestProductRepository_List_NoFilters(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()

	id := uuid.New()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	mock.ExpectQuery(`SELECT .* FROM products ORDER BY LOWER\(name\) COLLATE "C" ASC, id ASC`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(id.String(), "Widget", "9.99", 3, nil, ts, ts))

	products, err := repo.List(context.Background(), domain.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 1)

	assert.Equal(t, id, products[0].ID)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, "9.99", products[0].Price.StringFixed(2))
	assert.Equal(t, int32(3), products[0].StockQuantity)
	assert.Nil(t, products[0].CategoryImageURL)
	assert.Equal(t, time.UTC, products[0].CreatedAtUTC.Location())
	assert.True(t, ts.Equal(products[0].UpdatedAtUTC))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_AllFilters(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()

	mock.ExpectQuery(`SELECT .* FROM products WHERE name ILIKE \$1 AND price >= \$2 AND price <= \$3 ORDER BY price DESC, id ASC`).
		WithArgs(`%50\%\_off%`, "10", "20").
		WillReturnRows(sqlmock.NewRows(columns))

	products, err := repo.List(context.Background(), domain.ProductFilter{
		Search:   "  50%_off ",
		MinPrice: decimalPtr("10"),
		MaxPrice: decimalPtr("20"),
		Sort:     domain.SortPriceDesc,
	})

	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NotNil(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_UnknownSortFallsBackToName(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()

	mock.ExpectQuery(`SELECT .* FROM products WHERE price >= \$1 ORDER BY LOWER\(name\) COLLATE "C" ASC, id ASC`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.List(context.Background(), domain.ProductFilter{
		MinPrice: decimalPtr("5"),
		Sort:     domain.SortKey("rating_desc"),
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()

	id := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM products WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(columns))

	product, err := repo.GetByID(context.Background(), id)

	assert.Nil(t, product)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_Found(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM products WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(id.String(), "Lamp", "12.50", 0, "https://img.test/lamp.png", now, now))

	product, err := repo.GetByID(context.Background(), id)

	require.NoError(t, err)
	require.NotNil(t, product.CategoryImageURL)
	assert.Equal(t, "https://img.test/lamp.png", *product.CategoryImageURL)
	assert.True(t, decimal.RequireFromString("12.5").Equal(product.Price))
}

func TestProductRepository_ExistsByName(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM products WHERE LOWER\(name\) = LOWER\(\$1\)\)`).
		WithArgs("Widget").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByName(context.Background(), " Widget ", nil)

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ExistsByName_ExcludesID(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()

	id := uuid.New()
	mock.ExpectQuery(`AND id <> \$2`).
		WithArgs("Widget", id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsByName(context.Background(), "Widget", &id)

	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SaveChanges_CommitsStagedWrites(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()
	ctx := context.Background()

	now := time.Now().UTC()
	image := "https://img.test/a.png"
	added := &domain.Product{
		ID:               uuid.New(),
		Name:             "Widget",
		Price:            decimal.RequireFromString("10.00"),
		StockQuantity:    4,
		CategoryImageURL: &image,
		CreatedAtUTC:     now,
		UpdatedAtUTC:     now,
	}
	removed := &domain.Product{ID: uuid.New()}

	require.NoError(t, repo.Add(ctx, added))
	require.NoError(t, repo.Delete(ctx, removed))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO products`).
		WithArgs(added.ID.String(), "Widget", "10", int32(4), image, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM products WHERE id = \$1`).
		WithArgs(removed.ID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveChanges(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())

	// Nothing left to flush
	require.NoError(t, repo.SaveChanges(ctx))
}

func TestProductRepository_SaveChanges_NoPendingWrites(t *testing.T) {
	store, mock := setupStore(t)

	require.NoError(t, store.Session().SaveChanges(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SaveChanges_UpdateMissingRow(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()
	ctx := context.Background()

	product := &domain.Product{ID: uuid.New(), Name: "Gone", Price: decimal.NewFromInt(1)}
	require.NoError(t, repo.Update(ctx, product))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SaveChanges(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SaveChanges_UniqueViolation(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, &domain.Product{ID: uuid.New(), Name: "Widget"}))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO products`).WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectRollback()

	err := repo.SaveChanges(ctx)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SaveChanges_ExecError(t *testing.T) {
	store, mock := setupStore(t)
	repo := store.Session()
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, &domain.Product{ID: uuid.New()}))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM products`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.SaveChanges(ctx)
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductStore_SessionsAreIndependent(t *testing.T) {
	store, mock := setupStore(t)
	ctx := context.Background()

	first := store.Session()
	require.NoError(t, first.Delete(ctx, &domain.Product{ID: uuid.New()}))

	// A fresh session has nothing staged, so no transaction is opened
	require.NoError(t, store.Session().SaveChanges(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_NameDesc(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(`SELECT .* FROM products ORDER BY LOWER\(name\) COLLATE "C" DESC, id ASC`).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := store.Session().List(context.Background(), domain.ProductFilter{Sort: domain.SortNameDesc})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
