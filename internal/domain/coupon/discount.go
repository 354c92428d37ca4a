package coupon

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// ComputeDiscount returns the discount the coupon yields for a cart worth
// cartTotal. The result is never negative and is not rounded.
func ComputeDiscount(c *Coupon, cartTotal decimal.Decimal) decimal.Decimal {
	switch c.DiscountType {
	case DiscountFlat:
		return applyFlat(c, cartTotal)
	case DiscountPercent:
		return applyPercent(c, cartTotal)
	default:
		return zero
	}
}

func applyFlat(c *Coupon, total decimal.Decimal) decimal.Decimal {
	return floorAtZero(decimal.Min(c.DiscountValue, total))
}

func applyPercent(c *Coupon, total decimal.Decimal) decimal.Decimal {
	amount := total.Mul(c.DiscountValue).Div(hundred)
	if c.MaxDiscountAmount != nil {
		amount = decimal.Min(amount, *c.MaxDiscountAmount)
	}
	return floorAtZero(amount)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
