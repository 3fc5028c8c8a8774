package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the storefront API. ordersHandler may be nil when no
// checkout journal is configured.
func NewRouter(
	cartHandler *CartHandler,
	checkoutHandler *CheckoutHandler,
	productHandler *ProductHandler,
	ordersHandler *OrdersHandler,
	requestTimeout time.Duration,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/{product_id}", productHandler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(CartKeyMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.ChangeQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})

			r.Post("/checkout", checkoutHandler.Checkout)

			if ordersHandler != nil {
				r.Route("/orders", func(r chi.Router) {
					r.Get("/", ordersHandler.ListOrders)
					r.Get("/{order_id}", ordersHandler.GetOrder)
					r.Put("/{order_id}/status", ordersHandler.UpdateStatus)
				})
			}
		})
	})

	return r
}
