package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

func writeValidationError(w http.ResponseWriter, vErr *coupon.ValidationError) {
	writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusBadRequest) })
			e.Field("message", func(e *jx.Encoder) { e.Str("invalid coupon") })
			e.Field("errors", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, msg := range vErr.Errors {
						e.Str(msg)
					}
				})
			})
		})
	})
}

// encodeSelection writes the selection or null. The discount is always
// rendered with two decimals.
func encodeSelection(e *jx.Encoder, sel *coupon.Selection) {
	if sel == nil {
		e.Null()
		return
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(sel.Code) })
		e.Field("description", func(e *jx.Encoder) { e.Str(sel.Description) })
		e.Field("discountAmount", func(e *jx.Encoder) {
			e.Num(jx.Num(sel.DiscountAmount.StringFixed(2)))
		})
		e.Field("coupon", sel.Coupon.Encode)
	})
}
