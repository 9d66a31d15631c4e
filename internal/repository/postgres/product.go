package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

const uniqueViolation = "23505"

const productColumns = `id, name, price, stock_quantity, category_image_url, created_at_utc, updated_at_utc`

// Names sort case-insensitively by code point so the result does not depend on the database collation
var orderClauses = map[domain.SortKey]string{
	domain.SortPriceAsc:  "price ASC, id ASC",
	domain.SortPriceDesc: "price DESC, id ASC",
	domain.SortNameAsc:   `LOWER(name) COLLATE "C" ASC, id ASC`,
	domain.SortNameDesc:  `LOWER(name) COLLATE "C" DESC, id ASC`,
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ProductStore implements domain.ProductStore for PostgreSQL
type ProductStore struct {
	db *sqlx.DB
}

// NewProductStore creates a new PostgreSQL product store
func NewProductStore(db *sqlx.DB) *ProductStore {
	return &ProductStore{db: db}
}

// Session opens a repository for one unit of work
func (s *ProductStore) Session() domain.ProductRepository {
	return &ProductRepository{db: s.db}
}

// Ping verifies the database is reachable
func (s *ProductStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type pendingWrite struct {
	op        string
	productID uuid.UUID
	query     string
	args      []interface{}
}

// ProductRepository implements domain.ProductRepository for PostgreSQL.
// Reads go straight to the pool; writes are staged until SaveChanges.
type ProductRepository struct {
	db      *sqlx.DB
	pending []pendingWrite
}

// List retrieves the products matching the filter
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if term, ok := filter.SearchTerm(); ok {
		args = append(args, "%"+likeEscaper.Replace(term)+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		conditions = append(conditions, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + orderClauses[domain.ParseSortKey(string(filter.Sort))]

	products := []*domain.Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	for _, p := range products {
		normalizeTimes(p)
	}
	return products, nil
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = $1"

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}

	normalizeTimes(&product)
	return &product, nil
}

// ExistsByName reports whether a product with the same name exists, ignoring case
func (r *ProductRepository) ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM products WHERE LOWER(name) = LOWER($1))`
	args := []interface{}{strings.TrimSpace(name)}

	if excludeID != nil {
		query = `SELECT EXISTS (SELECT 1 FROM products WHERE LOWER(name) = LOWER($1) AND id <> $2)`
		args = append(args, *excludeID)
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check product name: %w", err)
	}
	return exists, nil
}

// Add stages an insert
func (r *ProductRepository) Add(_ context.Context, product *domain.Product) error {
	r.pending = append(r.pending, pendingWrite{
		op:        "insert",
		productID: product.ID,
		query: `
			INSERT INTO products (id, name, price, stock_quantity, category_image_url, created_at_utc, updated_at_utc)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
		args: []interface{}{
			product.ID,
			product.Name,
			product.Price,
			product.StockQuantity,
			product.CategoryImageURL,
			product.CreatedAtUTC,
			product.UpdatedAtUTC,
		},
	})
	return nil
}

// Update stages an update of every mutable column
func (r *ProductRepository) Update(_ context.Context, product *domain.Product) error {
	r.pending = append(r.pending, pendingWrite{
		op:        "update",
		productID: product.ID,
		query: `
			UPDATE products
			SET name = $1, price = $2, stock_quantity = $3, category_image_url = $4, updated_at_utc = $5
			WHERE id = $6
		`,
		args: []interface{}{
			product.Name,
			product.Price,
			product.StockQuantity,
			product.CategoryImageURL,
			product.UpdatedAtUTC,
			product.ID,
		},
	})
	return nil
}

// Delete stages removal of a product
func (r *ProductRepository) Delete(_ context.Context, product *domain.Product) error {
	r.pending = append(r.pending, pendingWrite{
		op:        "delete",
		productID: product.ID,
		query:     `DELETE FROM products WHERE id = $1`,
		args:      []interface{}{product.ID},
	})
	return nil
}

// SaveChanges applies the staged writes in a single transaction
func (r *ProductRepository) SaveChanges(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}

	writes := r.pending
	r.pending = nil

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		res, err := tx.ExecContext(ctx, w.query, w.args...)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return fmt.Errorf("%s product %s: %w", w.op, w.productID, domain.ErrAlreadyExists)
			}
			return fmt.Errorf("%s product %s: %w", w.op, w.productID, err)
		}

		if w.op == "insert" {
			continue
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s product %s: %w", w.op, w.productID, err)
		}
		if rows == 0 {
			return fmt.Errorf("%s product %s: %w", w.op, w.productID, domain.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func normalizeTimes(p *domain.Product) {
	p.CreatedAtUTC = p.CreatedAtUTC.UTC()
	p.UpdatedAtUTC = p.UpdatedAtUTC.UTC()
}
