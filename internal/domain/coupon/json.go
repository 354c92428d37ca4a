package coupon

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes the coupon in its canonical JSON form, the same shape that
// Decode accepts.
func (c *Coupon) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("description", func(e *jx.Encoder) { e.Str(c.Description) })
		e.Field("discountType", func(e *jx.Encoder) { e.Str(string(c.DiscountType)) })
		e.Field("discountValue", func(e *jx.Encoder) { encodeDecimal(e, c.DiscountValue) })
		if c.MaxDiscountAmount != nil {
			e.Field("maxDiscountAmount", func(e *jx.Encoder) { encodeDecimal(e, *c.MaxDiscountAmount) })
		}
		e.Field("startDate", func(e *jx.Encoder) { e.Str(FormatTime(c.StartDate)) })
		e.Field("endDate", func(e *jx.Encoder) { e.Str(FormatTime(c.EndDate)) })
		if c.UsageLimitPerUser != nil {
			e.Field("usageLimitPerUser", func(e *jx.Encoder) { e.Int(*c.UsageLimitPerUser) })
		}
		if c.Eligibility != nil {
			e.Field("eligibility", c.Eligibility.Encode)
		}
	})
}

// Encode writes only the configured predicates.
func (el *Eligibility) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		encodeStrings(e, "allowedUserTiers", el.AllowedUserTiers)
		encodeOptDecimal(e, "minLifetimeSpend", el.MinLifetimeSpend)
		encodeOptDecimal(e, "minOrdersPlaced", el.MinOrdersPlaced)
		if el.FirstOrderOnly {
			e.Field("firstOrderOnly", func(e *jx.Encoder) { e.Bool(true) })
		}
		encodeStrings(e, "allowedCountries", el.AllowedCountries)
		encodeOptDecimal(e, "minCartValue", el.MinCartValue)
		encodeStrings(e, "applicableCategories", el.ApplicableCategories)
		encodeStrings(e, "excludedCategories", el.ExcludedCategories)
		encodeOptDecimal(e, "minItemsCount", el.MinItemsCount)
	})
}

// MarshalJSON implements json.Marshaler.
func (el *Eligibility) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	el.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler with the same leniency as Decode.
func (el *Eligibility) UnmarshalJSON(data []byte) error {
	if d := decodeEligibility(data); d != nil {
		*el = *d
	}
	return nil
}

// FormatTime renders a coupon date in its canonical form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func encodeOptDecimal(e *jx.Encoder, name string, d *decimal.Decimal) {
	if d == nil {
		return
	}
	e.Field(name, func(e *jx.Encoder) { encodeDecimal(e, *d) })
}

func encodeStrings(e *jx.Encoder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	e.Field(name, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, v := range values {
				e.Str(v)
			}
		})
	})
}
