package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// NameMaxLength is the maximum number of characters in a product name
	NameMaxLength = 200

	// CategoryImageURLMaxLength is the maximum number of characters in an image URL
	CategoryImageURLMaxLength = 2048

	// PriceScale is the number of fractional digits a stored price carries
	PriceScale = 2
)

var (
	// MinPrice is the smallest storable positive price
	MinPrice = decimal.New(1, -PriceScale)

	// MaxPrice is the largest value a numeric(18,2) column can hold
	MaxPrice = decimal.RequireFromString("9999999999999999.99")
)

// Product represents a catalog product
type Product struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Price            decimal.Decimal `json:"price" db:"price"`
	StockQuantity    int32           `json:"stockQuantity" db:"stock_quantity"`
	CategoryImageURL *string         `json:"categoryImageUrl,omitempty" db:"category_image_url"`
	CreatedAtUTC     time.Time       `json:"createdAtUtc" db:"created_at_utc"`
	UpdatedAtUTC     time.Time       `json:"updatedAtUtc" db:"updated_at_utc"`
}

// SortKey selects the ordering of a product listing
type SortKey string

const (
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortNameAsc   SortKey = "name_asc"
	SortNameDesc  SortKey = "name_desc"
)

// ParseSortKey resolves a raw sort value. Unknown and empty values fall back to name ascending.
func ParseSortKey(raw string) SortKey {
	switch key := SortKey(raw); key {
	case SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc:
		return key
	default:
		return SortNameAsc
	}
}

// ProductFilter holds the criteria of a product listing. All set criteria apply together.
type ProductFilter struct {
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     SortKey
}

// SearchTerm returns the trimmed search text and whether it should be applied
func (f ProductFilter) SearchTerm() (string, bool) {
	term := strings.TrimSpace(f.Search)
	return term, term != ""
}

// Matches reports whether a product satisfies the filter criteria
func (f ProductFilter) Matches(p *Product) bool {
	if term, ok := f.SearchTerm(); ok {
		if !strings.Contains(strings.ToLower(p.Name), strings.ToLower(term)) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// ProductStore opens request-scoped repository sessions
type ProductStore interface {
	// Session returns a repository whose staged writes are private to the caller
	Session() ProductRepository

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}

// ProductRepository defines product data access for a single unit of work.
// Add, Update and Delete only stage changes; SaveChanges applies them atomically.
type ProductRepository interface {
	// List retrieves the products matching the filter in the requested order
	List(ctx context.Context, filter ProductFilter) ([]*Product, error)

	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// ExistsByName reports whether another product has the same name, ignoring case.
	// When excludeID is set that product is not considered.
	ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)

	// Add stages a new product
	Add(ctx context.Context, product *Product) error

	// Update stages changes to an existing product
	Update(ctx context.Context, product *Product) error

	// Delete stages removal of a product
	Delete(ctx context.Context, product *Product) error

	// SaveChanges commits all staged writes
	SaveChanges(ctx context.Context) error
}
