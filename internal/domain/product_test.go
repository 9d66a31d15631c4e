package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		raw  string
		want SortKey
	}{
		{"price_asc", SortPriceAsc},
		{"price_desc", SortPriceDesc},
		{"name_asc", SortNameAsc},
		{"name_desc", SortNameDesc},
		{"", SortNameAsc},
		{"PRICE_DESC", SortNameAsc},
		{"rating", SortNameAsc},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSortKey(tt.raw))
		})
	}
}

func TestProductFilter_SearchTerm(t *testing.T) {
	term, ok := ProductFilter{Search: "  lamp "}.SearchTerm()
	assert.True(t, ok)
	assert.Equal(t, "lamp", term)

	_, ok = ProductFilter{Search: "   "}.SearchTerm()
	assert.False(t, ok)
}

func TestProductFilter_Matches(t *testing.T) {
	p := &Product{Name: "Desk Lamp", Price: decimal.RequireFromString("25.00")}
	ten := decimal.NewFromInt(10)
	exact := decimal.RequireFromString("25")
	thirty := decimal.NewFromInt(30)

	tests := []struct {
		name   string
		filter ProductFilter
		want   bool
	}{
		{"empty filter", ProductFilter{}, true},
		{"search ignores case", ProductFilter{Search: " LAMP "}, true},
		{"search miss", ProductFilter{Search: "chair"}, false},
		{"inclusive bounds", ProductFilter{MinPrice: &exact, MaxPrice: &exact}, true},
		{"below min", ProductFilter{MinPrice: &thirty}, false},
		{"above max", ProductFilter{MaxPrice: &ten}, false},
		{"inverted range", ProductFilter{MinPrice: &thirty, MaxPrice: &ten}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(p))
		})
	}
}
