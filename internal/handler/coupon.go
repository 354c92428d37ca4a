package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

// CreateCoupon admits a coupon definition and returns its normalized form.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	c, err := h.svc.Admit(r.Context(), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("Coupon admitted",
		zap.String("code", c.Code),
		zap.String("discount_type", string(c.DiscountType)),
	)
	writeJSON(w, http.StatusCreated, c.Encode)
}

// GetCoupon returns a stored coupon by code.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Encode)
}

// BestCoupon selects the best coupon for the posted user and cart. A request
// no coupon applies to is answered with {"coupon":null}.
func (h *Handler) BestCoupon(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := decodeBestRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sel, err := h.svc.Best(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("coupon", func(e *jx.Encoder) { encodeSelection(e, sel) })
		})
	})
}

// RecordUsage marks one use of a coupon by a user after a purchase.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	userID, err := decodeUsageRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	code := chi.URLParam(r, "code")
	n, err := h.svc.RecordUsage(r.Context(), userID, code)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Str(code) })
			e.Field("userId", func(e *jx.Encoder) { e.Str(userID) })
			e.Field("count", func(e *jx.Encoder) { e.Int(n) })
		})
	})
}

// fail maps service errors to responses. Unknown errors are logged and
// hidden behind a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *coupon.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeValidationError(w, vErr)
	case errors.Is(err, coupon.ErrCodeExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, coupon.ErrCouponNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}
