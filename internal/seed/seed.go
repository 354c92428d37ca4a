// Package seed holds the sample coupon catalog and loads payload sets into
// the coupon service.
package seed

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

// Admitter admits a raw coupon payload.
type Admitter interface {
	Admit(ctx context.Context, payload []byte) (*coupon.Coupon, error)
}

var _ Admitter = (*coupon.Service)(nil)

// Samples is the catalog admitted on startup when seeding is enabled.
var Samples = []string{
	`{
		"code": "WELCOME100",
		"description": "Flat 100 off on orders above 500",
		"discountType": "FLAT",
		"discountValue": 100,
		"startDate": "2025-01-01T00:00:00Z",
		"endDate": "2030-12-31T23:59:59Z",
		"usageLimitPerUser": 1,
		"eligibility": {"minCartValue": 500}
	}`,
	`{
		"code": "FIRSTORDER",
		"description": "15% off your first order, up to 200",
		"discountType": "PERCENT",
		"discountValue": 15,
		"maxDiscountAmount": 200,
		"startDate": "2025-01-01T00:00:00Z",
		"endDate": "2030-12-31T23:59:59Z",
		"usageLimitPerUser": 1,
		"eligibility": {"firstOrderOnly": true}
	}`,
	`{
		"code": "GOLD20",
		"description": "20% off for gold and platinum members",
		"discountType": "PERCENT",
		"discountValue": 20,
		"maxDiscountAmount": 500,
		"startDate": "2025-01-01T00:00:00Z",
		"endDate": "2030-12-31T23:59:59Z",
		"eligibility": {"allowedUserTiers": ["GOLD", "PLATINUM"], "minLifetimeSpend": 1000}
	}`,
	`{
		"code": "ELECTRO300",
		"description": "300 off electronics carts of 3000 or more",
		"discountType": "FLAT",
		"discountValue": 300,
		"startDate": "2025-01-01T00:00:00Z",
		"endDate": "2030-12-31T23:59:59Z",
		"eligibility": {"applicableCategories": ["electronics"], "minCartValue": 3000}
	}`,
	`{
		"code": "BULK10",
		"description": "10% off carts with at least 10 items",
		"discountType": "PERCENT",
		"discountValue": 10,
		"startDate": "2025-01-01T00:00:00Z",
		"endDate": "2030-12-31T23:59:59Z",
		"eligibility": {"minItemsCount": 10, "excludedCategories": ["gift-cards"]}
	}`,
	`{
		"code": "INDIA50",
		"description": "Flat 50 off for returning customers in India",
		"discountType": "FLAT",
		"discountValue": 50,
		"startDate": "2025-01-01T00:00:00Z",
		"endDate": "2030-12-31T23:59:59Z",
		"usageLimitPerUser": 3,
		"eligibility": {"allowedCountries": ["IN"], "minOrdersPlaced": 2}
	}`,
}

// Stats counts the outcome of a Load.
type Stats struct {
	Admitted   int
	Duplicates int
	Invalid    int
}

// Load admits every payload in order. Codes that are already stored are
// skipped so seeding is repeatable. Invalid payloads are logged and counted;
// any other error aborts the load.
func Load(ctx context.Context, a Admitter, payloads []string) (Stats, error) {
	lg := zctx.From(ctx)

	var stats Stats
	for i, p := range payloads {
		c, err := a.Admit(ctx, []byte(p))
		var vErr *coupon.ValidationError
		switch {
		case err == nil:
			stats.Admitted++
			lg.Debug("Seeded coupon", zap.String("code", c.Code))
		case errors.Is(err, coupon.ErrCodeExists):
			stats.Duplicates++
		case errors.As(err, &vErr):
			stats.Invalid++
			lg.Warn("Skipping invalid seed coupon",
				zap.Int("index", i),
				zap.Strings("errors", vErr.Errors),
			)
		default:
			return stats, errors.Wrapf(err, "admit seed coupon %d", i)
		}
	}
	return stats, nil
}

// ReadFile reads a JSON array of coupon payloads.
func ReadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	return Parse(data)
}

// Parse splits a JSON array into its raw coupon payloads.
func Parse(data []byte) ([]string, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Array {
		return nil, errors.New("seed data must be a JSON array of coupons")
	}
	var payloads []string
	if err := d.Arr(func(d *jx.Decoder) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		payloads = append(payloads, raw.String())
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "parse seed data")
	}
	return payloads, nil
}
