package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountFlat takes a fixed monetary amount off, capped at the cart total.
	DiscountFlat DiscountType = "FLAT"
	// DiscountPercent takes a percentage of the cart total, optionally capped
	// by MaxDiscountAmount.
	DiscountPercent DiscountType = "PERCENT"
)

// AnonymousUser is the usage ledger identity used when a request carries no
// user id at all.
const AnonymousUser = "anonymous"

var (
	// ErrCouponNotFound is returned when a coupon code does not exist in the catalog.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCodeExists is returned when admitting a coupon whose code is already stored.
	ErrCodeExists = errors.New("coupon code already exists")
)

// ValidationError reports every problem found in a coupon payload at once.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "invalid coupon: " + e.Errors[0]
	}
	return "invalid coupon: " + e.Errors[0] + " (and more)"
}

// Coupon is a stored discount rule. It is immutable once admitted.
type Coupon struct {
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	UsageLimitPerUser *int
	Eligibility       *Eligibility
}

// Eligibility is a set of independent optional predicates. All configured
// predicates must hold for a coupon to apply.
type Eligibility struct {
	AllowedUserTiers     []string
	MinLifetimeSpend     *decimal.Decimal
	MinOrdersPlaced      *decimal.Decimal
	FirstOrderOnly       bool
	AllowedCountries     []string
	MinCartValue         *decimal.Decimal
	ApplicableCategories []string
	ExcludedCategories   []string
	MinItemsCount        *decimal.Decimal
}

// UserContext is the requester snapshot used for rule evaluation.
// Empty strings and nil pointers mean the attribute is unknown.
type UserContext struct {
	UserID        string
	UserTier      string
	Country       string
	LifetimeSpend *decimal.Decimal
	OrdersPlaced  *int
}

// Catalog is the ordered, append-only coupon store.
type Catalog interface {
	// List returns all coupons in insertion order.
	List(ctx context.Context) ([]Coupon, error)
	// Get returns ErrCouponNotFound for unknown codes.
	Get(ctx context.Context, code string) (*Coupon, error)
	// Insert returns ErrCodeExists if the code is already stored.
	Insert(ctx context.Context, c *Coupon) error
}

// UsageLedger counts coupon consumption per user and code.
type UsageLedger interface {
	// Count returns 0 for pairs that were never recorded.
	Count(ctx context.Context, userID, code string) (int, error)
	// Increment adds one use and returns the new count.
	Increment(ctx context.Context, userID, code string) (int, error)
}
