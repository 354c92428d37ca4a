// Package handler exposes the coupon service over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
	"github.com/xenking/coupon-selector/pkg/httpmiddleware"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Service is the coupon behavior the HTTP layer depends on.
type Service interface {
	Admit(ctx context.Context, payload []byte) (*coupon.Coupon, error)
	Get(ctx context.Context, code string) (*coupon.Coupon, error)
	Best(ctx context.Context, req coupon.Request) (*coupon.Selection, error)
	RecordUsage(ctx context.Context, userID, code string) (int, error)
}

var _ Service = (*coupon.Service)(nil)

// Handler serves the coupon API.
type Handler struct {
	svc Service
}

// New returns a Handler backed by svc.
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Router mounts the API under /api. Middlewares run inside the router so
// they can see the matched route pattern.
func (h *Handler) Router(middlewares ...httpmiddleware.Middleware) *chi.Mux {
	r := chi.NewRouter()
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Route("/api/coupons", func(r chi.Router) {
		r.Post("/", h.CreateCoupon)
		r.Post("/best", h.BestCoupon)
		r.Get("/{code}", h.GetCoupon)
		r.Post("/{code}/usage", h.RecordUsage)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
