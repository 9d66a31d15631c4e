package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Pesokrava/product_catalog/internal/config"
	"github.com/Pesokrava/product_catalog/internal/delivery/http/handler"
	"github.com/Pesokrava/product_catalog/internal/delivery/http/middleware"
	"github.com/Pesokrava/product_catalog/internal/delivery/http/response"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds HTTP handlers and router configuration
type Router struct {
	productHandler *handler.ProductHandler
	store          Pinger
	logger         *logger.Logger
	cfg            *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	productHandler *handler.ProductHandler,
	store Pinger,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		productHandler: productHandler,
		store:          store,
		logger:         log,
		cfg:            cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	if rt.cfg.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(rt.cfg.Server.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", rt.healthCheck)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", rt.productHandler.List)
		r.Post("/", rt.productHandler.Create)
		r.Get("/{id}", rt.productHandler.GetByID)
		r.Put("/{id}", rt.productHandler.Update)
		r.Delete("/{id}", rt.productHandler.Delete)
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := rt.store.Ping(ctx); err != nil {
		rt.logger.Error("Health check failed", err)
		response.JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
		})
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
