package coupon

import "github.com/shopspring/decimal"

// CartItem is a single cart line. Quantity and UnitPrice are already coerced
// to zero by the caller when missing from the request.
type CartItem struct {
	ProductID string
	Category  string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Cart is an ordered list of line items.
type Cart struct {
	Items []CartItem
}

// Total returns the sum of quantity * unit price across items. Negative lines
// contribute nothing. A nil cart is worth zero.
func (c *Cart) Total() decimal.Decimal {
	sum := zero
	if c == nil {
		return sum
	}
	for _, item := range c.Items {
		sum = sum.Add(floorAtZero(item.Quantity.Mul(item.UnitPrice)))
	}
	return sum
}

// ItemCount returns the sum of quantities across items.
func (c *Cart) ItemCount() decimal.Decimal {
	sum := zero
	if c == nil {
		return sum
	}
	for _, item := range c.Items {
		sum = sum.Add(item.Quantity)
	}
	return sum
}

// categories returns the set of categories present in the cart.
func (c *Cart) categories() map[string]struct{} {
	set := make(map[string]struct{})
	if c == nil {
		return set
	}
	for _, item := range c.Items {
		set[item.Category] = struct{}{}
	}
	return set
}
