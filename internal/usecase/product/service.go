package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
	"github.com/Pesokrava/product_catalog/internal/pkg/result"
	sharedvalidator "github.com/Pesokrava/product_catalog/internal/pkg/validator"
)

// EventsSubject is the NATS subject product events are published to
const EventsSubject = "products.events"

// Failure messages returned to callers
const (
	MsgNameRequired     = "Name is required."
	MsgPriceNotPositive = "Price must be a positive number."
	MsgStockNegative    = "Stock quantity must be a non-negative integer."
	MsgNameTooLong      = "Name must not exceed 200 characters."
	MsgPriceTooSmall    = "Price must be at least 0.01."
	MsgPriceTooLarge    = "Price must not exceed 9999999999999999.99."
	MsgImageURLTooLong  = "Category image URL must not exceed 2048 characters."
	MsgDuplicateName    = "A product with the same name already exists."
	MsgProductNotFound  = "Product not found."
)

// Cache is the read-through cache consulted by the service. Writes carry the
// version read before the store was queried and are dropped when an
// invalidation happened in between.
type Cache interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ProductVersion(ctx context.Context, id uuid.UUID) (int64, error)
	SetProduct(ctx context.Context, product *domain.Product, version int64) error
	GetProductList(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	ListVersion(ctx context.Context) (int64, error)
	SetProductList(ctx context.Context, filter domain.ProductFilter, products []*domain.Product, version int64) error
	InvalidateAll(ctx context.Context, id uuid.UUID) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Service handles product business logic. Cache and publisher are optional.
type Service struct {
	store     domain.ProductStore
	cache     Cache
	publisher EventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
	now       func() time.Time
	inflight  sync.WaitGroup
}

// NewService creates a new product service
func NewService(store domain.ProductStore, cache Cache, publisher EventPublisher, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		publisher: publisher,
		validate:  sharedvalidator.Get(),
		logger:    log,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// productFields holds validated and normalized request data
type productFields struct {
	name          string
	price         decimal.Decimal
	stockQuantity int32
	imageURL      *string
}

// List retrieves all products matching the query
func (s *Service) List(ctx context.Context, query ProductQuery) ([]ProductResponse, error) {
	filter := query.Filter()

	products, ok := s.cachedList(ctx, filter)
	if !ok {
		version, cacheable := s.cacheVersion(func(cache Cache) (int64, error) {
			return cache.ListVersion(ctx)
		})

		var err error
		products, err = s.store.Session().List(ctx, filter)
		if err != nil {
			s.logger.Error("Failed to list products", err)
			return nil, err
		}

		if cacheable {
			if err := s.cache.SetProductList(ctx, filter, products, version); err != nil {
				s.logger.Warnf("Failed to cache product list: %v", err)
			}
		}
	}

	responses := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		responses = append(responses, ToResponse(p))
	}
	return responses, nil
}

// GetByID retrieves a product by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (result.Result[ProductResponse], error) {
	if s.cache != nil {
		cached, err := s.cache.GetProduct(ctx, id)
		if err == nil {
			s.logger.Debugf("Cache hit for product %s", id)
			return result.Success(ToResponse(cached)), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warnf("Failed to read product %s from cache: %v", id, err)
		}
	}

	version, cacheable := s.cacheVersion(func(cache Cache) (int64, error) {
		return cache.ProductVersion(ctx, id)
	})

	product, err := s.store.Session().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", id)
			return result.Failure[ProductResponse](domain.ErrNotFound, MsgProductNotFound), nil
		}
		s.logger.Error("Failed to get product", err)
		return result.Result[ProductResponse]{}, err
	}

	if cacheable {
		if err := s.cache.SetProduct(ctx, product, version); err != nil {
			s.logger.Warnf("Failed to cache product %s: %v", id, err)
		}
	}

	return result.Success(ToResponse(product)), nil
}

// Create validates and stores a new product
func (s *Service) Create(ctx context.Context, req ProductRequest) (result.Result[ProductResponse], error) {
	repo := s.store.Session()

	checked, err := s.check(ctx, repo, req, nil)
	if err != nil {
		return result.Result[ProductResponse]{}, err
	}
	if checked.IsFailure() {
		return result.Cast[ProductResponse](checked), nil
	}
	fields := checked.Value()

	now := s.now()
	product := &domain.Product{
		ID:               uuid.New(),
		Name:             fields.name,
		Price:            fields.price,
		StockQuantity:    fields.stockQuantity,
		CategoryImageURL: fields.imageURL,
		CreatedAtUTC:     now,
		UpdatedAtUTC:     now,
	}

	if err := repo.Add(ctx, product); err != nil {
		s.logger.Error("Failed to stage product", err)
		return result.Result[ProductResponse]{}, err
	}
	if err := repo.SaveChanges(ctx); err != nil {
		s.logger.Error("Failed to create product", err)
		return result.Result[ProductResponse]{}, err
	}

	s.afterCommit(ctx, domain.EventProductCreated, product.ID, product)

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product created successfully")

	return result.Success(ToResponse(product)), nil
}

// Update replaces the editable fields of an existing product
func (s *Service) Update(ctx context.Context, id uuid.UUID, req ProductRequest) (result.Result[result.Nothing], error) {
	repo := s.store.Session()

	product, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return result.Failure[result.Nothing](domain.ErrNotFound, MsgProductNotFound), nil
		}
		s.logger.Error("Failed to get product for update", err)
		return result.Result[result.Nothing]{}, err
	}

	checked, err := s.check(ctx, repo, req, &id)
	if err != nil {
		return result.Result[result.Nothing]{}, err
	}
	if checked.IsFailure() {
		return result.Cast[result.Nothing](checked), nil
	}
	fields := checked.Value()

	product.Name = fields.name
	product.Price = fields.price
	product.StockQuantity = fields.stockQuantity
	product.CategoryImageURL = fields.imageURL
	product.UpdatedAtUTC = s.now()

	if err := repo.Update(ctx, product); err != nil {
		s.logger.Error("Failed to stage product update", err)
		return result.Result[result.Nothing]{}, err
	}
	if err := repo.SaveChanges(ctx); err != nil {
		s.logger.Error("Failed to update product", err)
		return result.Result[result.Nothing]{}, err
	}

	s.afterCommit(ctx, domain.EventProductUpdated, product.ID, product)

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product updated successfully")

	return result.Ok(), nil
}

// Delete removes a product
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (result.Result[result.Nothing], error) {
	repo := s.store.Session()

	product, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return result.Failure[result.Nothing](domain.ErrNotFound, MsgProductNotFound), nil
		}
		s.logger.Error("Failed to get product for deletion", err)
		return result.Result[result.Nothing]{}, err
	}

	if err := repo.Delete(ctx, product); err != nil {
		s.logger.Error("Failed to stage product deletion", err)
		return result.Result[result.Nothing]{}, err
	}
	if err := repo.SaveChanges(ctx); err != nil {
		s.logger.Error("Failed to delete product", err)
		return result.Result[result.Nothing]{}, err
	}

	s.afterCommit(ctx, domain.EventProductDeleted, id, nil)

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
	}).Info("Product deleted successfully")

	return result.Ok(), nil
}

// Wait blocks until background event publishing has finished
func (s *Service) Wait() {
	s.inflight.Wait()
}

// check runs the validation rules in order and normalizes the request. The first failing rule wins.
func (s *Service) check(ctx context.Context, repo domain.ProductRepository, req ProductRequest, excludeID *uuid.UUID) (result.Result[productFields], error) {
	invalid := func(message string) (result.Result[productFields], error) {
		s.logger.WithFields(map[string]interface{}{
			"name":   req.Name,
			"reason": message,
		}).Debug("Product validation failed")
		return result.Failure[productFields](domain.ErrInvalidInput, message), nil
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return invalid(MsgNameRequired)
	}
	if !req.Price.IsPositive() {
		return invalid(MsgPriceNotPositive)
	}
	if req.StockQuantity < 0 {
		return invalid(MsgStockNegative)
	}

	price := req.Price.Round(domain.PriceScale)
	var imageURL *string
	if req.CategoryImageURL != nil {
		if trimmed := strings.TrimSpace(*req.CategoryImageURL); trimmed != "" {
			imageURL = &trimmed
		}
	}

	if err := s.validate.Var(name, fmt.Sprintf("max=%d", domain.NameMaxLength)); err != nil {
		return invalid(MsgNameTooLong)
	}
	if price.LessThan(domain.MinPrice) {
		return invalid(MsgPriceTooSmall)
	}
	if price.GreaterThan(domain.MaxPrice) {
		return invalid(MsgPriceTooLarge)
	}
	if imageURL != nil {
		if err := s.validate.Var(*imageURL, fmt.Sprintf("max=%d", domain.CategoryImageURLMaxLength)); err != nil {
			return invalid(MsgImageURLTooLong)
		}
	}

	exists, err := repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		s.logger.Error("Failed to check product name uniqueness", err)
		return result.Result[productFields]{}, err
	}
	if exists {
		s.logger.WithFields(map[string]interface{}{
			"name": name,
		}).Debug("Duplicate product name rejected")
		return result.Failure[productFields](domain.ErrAlreadyExists, MsgDuplicateName), nil
	}

	return result.Success(productFields{
		name:          name,
		price:         price,
		stockQuantity: req.StockQuantity,
		imageURL:      imageURL,
	}), nil
}

func (s *Service) cachedList(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, bool) {
	if s.cache == nil {
		return nil, false
	}

	products, err := s.cache.GetProductList(ctx, filter)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warnf("Failed to read product list from cache: %v", err)
		}
		return nil, false
	}

	s.logger.Debug("Cache hit for product list")
	return products, true
}

// cacheVersion reads the cache version guarding a populate. Without it nothing is written back.
func (s *Service) cacheVersion(read func(cache Cache) (int64, error)) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}

	version, err := read(s.cache)
	if err != nil {
		s.logger.Warnf("Failed to read cache version: %v", err)
		return 0, false
	}
	return version, true
}

// afterCommit drops stale cache entries and announces the change
func (s *Service) afterCommit(ctx context.Context, eventType string, id uuid.UUID, product *domain.Product) {
	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx, id); err != nil {
			s.logger.Warnf("Failed to invalidate cache for product %s: %v", id, err)
		}
	}

	s.publishEvent(eventType, id, product)
}

// publishEvent publishes a product event (non-blocking)
func (s *Service) publishEvent(eventType string, id uuid.UUID, product *domain.Product) {
	if s.publisher == nil {
		return
	}

	event := domain.ProductEvent{
		EventType: eventType,
		Timestamp: s.now(),
		ProductID: id,
		Product:   product,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for product %s", id)
		return
	}

	// Publish in background to avoid blocking the request
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.publisher.Publish(context.Background(), EventsSubject, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for product %s", id)
		}
	}()
}
