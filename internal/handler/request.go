package handler

import (
	"math"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

var errNotObject = errors.New("request body must be a JSON object")

// decodeBestRequest reads {"user":{..},"cart":{"items":[..]},"userId":".."}.
//
// This is where loose client input becomes strict domain values: a missing
// or malformed quantity or unitPrice becomes 0, negative values become 0,
// and a malformed cart is an empty cart. Unknown user fields are ignored.
func decodeBestRequest(body []byte) (coupon.Request, error) {
	var req coupon.Request
	req.Cart = &coupon.Cart{}

	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return req, errNotObject
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "user":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			u, err := decodeUser(d)
			if err != nil {
				return errors.Wrap(err, "user")
			}
			req.User = u
		case "cart":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			c, err := decodeCart(d)
			if err != nil {
				return errors.Wrap(err, "cart")
			}
			req.Cart = c
		case "userId":
			s, ok, err := optString(d)
			if err != nil {
				return errors.Wrap(err, "userId")
			}
			if ok {
				req.UserID = s
			}
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return req, errors.Wrap(err, "invalid request body")
	}
	return req, nil
}

func decodeUser(d *jx.Decoder) (*coupon.UserContext, error) {
	u := &coupon.UserContext{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "userId":
			u.UserID, _, err = optString(d)
		case "userTier":
			u.UserTier, _, err = optString(d)
		case "country":
			u.Country, _, err = optString(d)
		case "lifetimeSpend":
			var v decimal.Decimal
			var ok bool
			if v, ok, err = optNumber(d); ok {
				u.LifetimeSpend = &v
			}
		case "ordersPlaced":
			var v decimal.Decimal
			var ok bool
			if v, ok, err = optNumber(d); ok {
				n := clampInt(v)
				u.OrdersPlaced = &n
			}
		default:
			err = d.Skip()
		}
		return err
	})
	return u, err
}

func decodeCart(d *jx.Decoder) (*coupon.Cart, error) {
	c := &coupon.Cart{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" || d.Next() != jx.Array {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			if d.Next() != jx.Object {
				return d.Skip()
			}
			item, err := decodeItem(d)
			if err != nil {
				return err
			}
			c.Items = append(c.Items, item)
			return nil
		})
	})
	return c, err
}

func decodeItem(d *jx.Decoder) (coupon.CartItem, error) {
	var item coupon.CartItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			item.ProductID, _, err = optString(d)
		case "category":
			item.Category, _, err = optString(d)
		case "quantity":
			item.Quantity, err = coerceAmount(d)
		case "unitPrice":
			item.UnitPrice, err = coerceAmount(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return item, err
}

// decodeUsageRequest reads {"userId":".."}. The user id is required.
func decodeUsageRequest(body []byte) (string, error) {
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return "", errNotObject
	}
	var userID string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "userId" {
			return d.Skip()
		}
		s, _, err := optString(d)
		userID = s
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "invalid request body")
	}
	if userID == "" {
		return "", errors.New("userId is required")
	}
	return userID, nil
}

// optString reads a string value. Other JSON types are skipped and reported
// as absent.
func optString(d *jx.Decoder) (string, bool, error) {
	if d.Next() != jx.String {
		return "", false, d.Skip()
	}
	s, err := d.Str()
	return s, err == nil, err
}

// optNumber reads a JSON number or a numeric string.
func optNumber(d *jx.Decoder) (decimal.Decimal, bool, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, false, err
		}
		v, err := decimal.NewFromString(n.String())
		return v, err == nil, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, false, err
		}
		v, err := decimal.NewFromString(s)
		return v, err == nil, nil
	default:
		return decimal.Zero, false, d.Skip()
	}
}

// coerceAmount reads a quantity or price, mapping anything unusable to 0.
func coerceAmount(d *jx.Decoder) (decimal.Decimal, error) {
	v, ok, err := optNumber(d)
	if err != nil || !ok || v.IsNegative() {
		return decimal.Zero, err
	}
	return v, nil
}

var (
	maxInt = decimal.NewFromInt(math.MaxInt)
	minInt = decimal.NewFromInt(math.MinInt)
)

// clampInt truncates v toward zero, saturating at the int range.
func clampInt(v decimal.Decimal) int {
	switch {
	case v.GreaterThan(maxInt):
		return math.MaxInt
	case v.LessThan(minInt):
		return math.MinInt
	default:
		return int(v.IntPart())
	}
}
