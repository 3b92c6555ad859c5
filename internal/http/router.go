package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pamankwah2405/ecommerce-api/internal/health"
	"github.com/pamankwah2405/ecommerce-api/internal/service"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodySize    int64
}

// NewRouter assembles the full HTTP surface: storefront routes, admin
// product routes, health probes and Prometheus metrics.
func NewRouter(
	cfg RouterConfig,
	cart *service.CartService,
	checkout *service.CheckoutService,
	users *service.UserService,
	catalog *service.CatalogService,
	healthHandler *health.Handler,
) http.Handler {
	cartHandler := NewCartHandler(cart, cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(checkout, cfg.RequestTimeout)
	authHandler := NewAuthHandler(users, cfg.RequestTimeout)
	productHandler := NewProductHandler(catalog, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(middleware.RequestSize(cfg.MaxBodySize))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to our E-commerce API"})
	})

	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", productHandler.List)
		r.Post("/", productHandler.Create)
		r.Get("/{product_id}", productHandler.Get)
		r.Put("/{product_id}", productHandler.Update)
		r.Delete("/{product_id}", productHandler.Delete)
	})

	r.Post("/cart", cartHandler.AddItem)
	r.Get("/cart", cartHandler.GetCart)
	r.Post("/checkout", checkoutHandler.Checkout)

	r.Method(http.MethodGet, "/healthz", healthHandler)
	r.Get("/livez", health.LivenessHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
