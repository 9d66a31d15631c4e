// Package memory provides a process-local product store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

// ProductStore is a thread-safe in-memory domain.ProductStore
type ProductStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]domain.Product
}

// compile-time assertion that ProductStore implements domain.ProductStore
var _ domain.ProductStore = (*ProductStore)(nil)

// NewProductStore constructs an empty store
func NewProductStore() *ProductStore {
	return &ProductStore{
		products: make(map[uuid.UUID]domain.Product),
	}
}

// Session opens a repository for one unit of work
func (s *ProductStore) Session() domain.ProductRepository {
	return &session{store: s}
}

// Ping always succeeds
func (s *ProductStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

type writeKind int

const (
	writeAdd writeKind = iota
	writeUpdate
	writeDelete
)

type stagedWrite struct {
	kind    writeKind
	product domain.Product
}

type session struct {
	store   *ProductStore
	pending []stagedWrite
}

func (r *session) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	products := make([]*domain.Product, 0, len(r.store.products))
	for _, p := range r.store.products {
		if filter.Matches(&p) {
			products = append(products, &p)
		}
	}
	r.store.mu.RUnlock()

	sort.SliceStable(products, less(products, domain.ParseSortKey(string(filter.Sort))))
	return products, nil
}

func less(products []*domain.Product, key domain.SortKey) func(i, j int) bool {
	byID := func(i, j int) bool {
		return products[i].ID.String() < products[j].ID.String()
	}

	return func(i, j int) bool {
		a, b := products[i], products[j]
		switch key {
		case domain.SortPriceAsc:
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case domain.SortPriceDesc:
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		case domain.SortNameDesc:
			if c := compareNames(a.Name, b.Name); c != 0 {
				return c > 0
			}
		default:
			if c := compareNames(a.Name, b.Name); c != 0 {
				return c < 0
			}
		}
		return byID(i, j)
	}
}

// compareNames orders names case-insensitively, like LOWER(name) COLLATE "C" in Postgres
func compareNames(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func (r *session) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *session) ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.nameTaken(strings.TrimSpace(name), excludeID), nil
}

func (r *session) Add(_ context.Context, product *domain.Product) error {
	r.pending = append(r.pending, stagedWrite{kind: writeAdd, product: *product})
	return nil
}

func (r *session) Update(_ context.Context, product *domain.Product) error {
	r.pending = append(r.pending, stagedWrite{kind: writeUpdate, product: *product})
	return nil
}

func (r *session) Delete(_ context.Context, product *domain.Product) error {
	r.pending = append(r.pending, stagedWrite{kind: writeDelete, product: *product})
	return nil
}

// SaveChanges applies every staged write or none of them
func (r *session) SaveChanges(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(r.pending) == 0 {
		return nil
	}

	writes := r.pending
	r.pending = nil

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	next := make(map[uuid.UUID]domain.Product, len(r.store.products)+len(writes))
	for id, p := range r.store.products {
		next[id] = p
	}

	for _, w := range writes {
		id := w.product.ID
		_, exists := next[id]

		switch w.kind {
		case writeAdd:
			if exists {
				return fmt.Errorf("insert product %s: %w", id, domain.ErrAlreadyExists)
			}
		case writeUpdate, writeDelete:
			if !exists {
				return fmt.Errorf("write product %s: %w", id, domain.ErrNotFound)
			}
		}

		if w.kind == writeDelete {
			delete(next, id)
			continue
		}
		if nameTaken(next, w.product.Name, &id) {
			return fmt.Errorf("write product %s: %w", id, domain.ErrAlreadyExists)
		}
		next[id] = w.product
	}

	r.store.products = next
	return nil
}

func (s *ProductStore) nameTaken(name string, excludeID *uuid.UUID) bool {
	return nameTaken(s.products, name, excludeID)
}

// nameTaken mirrors the unique index on LOWER(name)
func nameTaken(products map[uuid.UUID]domain.Product, name string, excludeID *uuid.UUID) bool {
	for id, p := range products {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}
