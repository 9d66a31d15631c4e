package handler

import (
	"errors"
	"net/http"

	"github.com/Pesokrava/product_catalog/internal/delivery/http/request"
	"github.com/Pesokrava/product_catalog/internal/delivery/http/response"
	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
	"github.com/Pesokrava/product_catalog/internal/usecase/product"
)

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *product.Service
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *product.Service, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  log,
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error" example:"Product not found."`
}

// List handles GET /api/products
// @Summary List products
// @Description Filter by a case-insensitive name substring and an inclusive price range, then sort
// @Tags Products
// @Produce json
// @Param search query string false "Name contains (case-insensitive)"
// @Param minPrice query number false "Lowest price, inclusive"
// @Param maxPrice query number false "Highest price, inclusive"
// @Param sort query string false "Sort order" Enums(price_asc, price_desc, name_asc, name_desc) default(name_asc)
// @Success 200 {array} product.ProductResponse
// @Failure 400 {object} ErrorResponse "Invalid price bound"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	minPrice, err := request.GetDecimalQuery(r, "minPrice")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid minPrice")
		return
	}
	maxPrice, err := request.GetDecimalQuery(r, "maxPrice")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid maxPrice")
		return
	}

	query := r.URL.Query()
	products, err := h.service.List(r.Context(), product.ProductQuery{
		Search:   query.Get("search"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     query.Get("sort"),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.OK(w, products)
}

// GetByID handles GET /api/products/{id}
// @Summary Get a product by ID
// @Tags Products
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Success 200 {object} product.ProductResponse
// @Failure 404 {object} ErrorResponse "Product not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /products/{id} [get]
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusNotFound, product.MsgProductNotFound)
		return
	}

	res, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if res.IsFailure() {
		h.handleFailure(w, res.Kind(), res.Message())
		return
	}

	response.OK(w, res.Value())
}

// Create handles POST /api/products
// @Summary Create a new product
// @Tags Products
// @Accept json
// @Produce json
// @Param product body product.ProductRequest true "Product details"
// @Success 201 {object} product.ProductResponse
// @Header 201 {string} Location "/api/products/{id}"
// @Failure 400 {object} ErrorResponse "Validation failure or invalid request body"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req product.ProductRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if res.IsFailure() {
		h.handleFailure(w, res.Kind(), res.Message())
		return
	}

	created := res.Value()
	response.Created(w, "/api/products/"+created.ID.String(), created)
}

// Update handles PUT /api/products/{id}
// @Summary Replace a product's editable fields
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param product body product.ProductRequest true "Updated product details"
// @Success 204 "Product updated successfully"
// @Failure 400 {object} ErrorResponse "Validation failure or invalid request body"
// @Failure 404 {object} ErrorResponse "Product not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusNotFound, product.MsgProductNotFound)
		return
	}

	var req product.ProductRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if res.IsFailure() {
		h.handleFailure(w, res.Kind(), res.Message())
		return
	}

	response.NoContent(w)
}

// Delete handles DELETE /api/products/{id}
// @Summary Delete a product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Success 204 "Product deleted successfully"
// @Failure 404 {object} ErrorResponse "Product not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /products/{id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusNotFound, product.MsgProductNotFound)
		return
	}

	res, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if res.IsFailure() {
		h.handleFailure(w, res.Kind(), res.Message())
		return
	}

	response.NoContent(w)
}

// handleFailure maps an expected service failure to its HTTP status
func (h *ProductHandler) handleFailure(w http.ResponseWriter, kind error, message string) {
	if errors.Is(kind, domain.ErrNotFound) {
		response.Error(w, http.StatusNotFound, message)
		return
	}
	response.Error(w, http.StatusBadRequest, message)
}

// handleError handles infrastructure errors returned by the service
func (h *ProductHandler) handleError(w http.ResponseWriter, err error) {
	h.logger.Error("Internal error in product handler", err)
	response.Error(w, http.StatusInternalServerError, "Internal server error")
}
