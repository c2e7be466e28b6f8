package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ordering-platform/internal/auth"
)

// Router wires the command surface. Customer-facing routes are public; the
// auth middleware still runs on them so a present token resolves, but an
// absent one means the anonymous customer.
func Router(h *OrderHandler, wsHandler http.HandlerFunc, guard *auth.Guard) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	// The ws handler resolves its own token (query parameter fallback), so
	// it sits outside the middleware chain.
	r.Get("/api/v1/ws", wsHandler)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(guard))

		r.Post("/api/v1/orders", h.Create)
		r.Get("/api/v1/orders/{orderID}", h.Get)
		r.Post("/api/v1/orders/{orderID}/payment/simulate", h.SimulatePayment)

		r.Get("/api/v1/stores/{storeID}/orders", h.ListStore)
		r.Post("/api/v1/stores/{storeID}/orders/{orderID}/accept", h.Accept)
		r.Post("/api/v1/stores/{storeID}/orders/{orderID}/reject", h.Reject)
		r.Post("/api/v1/stores/{storeID}/orders/{orderID}/complete", h.Complete)
		r.Patch("/api/v1/stores/{storeID}/orders/{orderID}/payment", h.UpdatePayment)

		r.Get("/api/v1/platform/orders", h.ListAll)
	})

	return r
}
