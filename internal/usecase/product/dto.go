package product

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

// ProductRequest is the client-supplied data for creating or replacing a product
type ProductRequest struct {
	Name             string          `json:"name" example:"Desk Lamp"`
	Price            decimal.Decimal `json:"price" swaggertype:"number" example:"24.99"`
	StockQuantity    int32           `json:"stockQuantity" example:"12"`
	CategoryImageURL *string         `json:"categoryImageUrl,omitempty" example:"https://cdn.example.com/lamps.png"`
}

// ProductQuery holds the optional listing criteria
type ProductQuery struct {
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

// Filter resolves the query into store criteria
func (q ProductQuery) Filter() domain.ProductFilter {
	return domain.ProductFilter{
		Search:   q.Search,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Sort:     domain.ParseSortKey(q.Sort),
	}
}

// ProductResponse is the externally visible shape of a product.
// Price is rendered as a JSON number with exactly two fractional digits.
type ProductResponse struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	Price            json.Number `json:"price" swaggertype:"number" example:"24.99"`
	StockQuantity    int32       `json:"stockQuantity"`
	CategoryImageURL *string     `json:"categoryImageUrl"`
	CreatedAtUTC     time.Time   `json:"createdAtUtc"`
	UpdatedAtUTC     time.Time   `json:"updatedAtUtc"`
}

// ToResponse maps a stored product to its response shape
func ToResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		Price:            json.Number(p.Price.StringFixed(domain.PriceScale)),
		StockQuantity:    p.StockQuantity,
		CategoryImageURL: p.CategoryImageURL,
		CreatedAtUTC:     p.CreatedAtUTC,
		UpdatedAtUTC:     p.UpdatedAtUTC,
	}
}
