package coupon

import (
	"slices"

	"github.com/shopspring/decimal"
)

// EligibilityResult reports whether a coupon applies and, if not, the first
// predicate that failed.
type EligibilityResult struct {
	Eligible bool
	Reason   string
}

var eligible = EligibilityResult{Eligible: true}

func notEligible(reason string) EligibilityResult {
	return EligibilityResult{Reason: reason}
}

// Evaluate checks every configured eligibility predicate of c against the
// user and cart. Predicates run in a fixed order and evaluation stops at the
// first failure. User predicates fail when the user attribute is unknown.
func Evaluate(c *Coupon, user *UserContext, cart *Cart) EligibilityResult {
	e := c.Eligibility
	if e == nil {
		return eligible
	}
	if user == nil {
		user = &UserContext{}
	}

	if len(e.AllowedUserTiers) > 0 {
		if user.UserTier == "" || !slices.Contains(e.AllowedUserTiers, user.UserTier) {
			return notEligible("user tier is not eligible for this coupon")
		}
	}
	if e.MinLifetimeSpend != nil {
		if user.LifetimeSpend == nil || user.LifetimeSpend.LessThan(*e.MinLifetimeSpend) {
			return notEligible("lifetime spend is below the required minimum")
		}
	}
	if e.MinOrdersPlaced != nil {
		if user.OrdersPlaced == nil || decimal.NewFromInt(int64(*user.OrdersPlaced)).LessThan(*e.MinOrdersPlaced) {
			return notEligible("not enough orders placed")
		}
	}
	if e.FirstOrderOnly {
		if user.OrdersPlaced == nil || *user.OrdersPlaced != 0 {
			return notEligible("coupon is valid on the first order only")
		}
	}
	if len(e.AllowedCountries) > 0 {
		if user.Country == "" || !slices.Contains(e.AllowedCountries, user.Country) {
			return notEligible("country is not eligible for this coupon")
		}
	}
	if e.MinCartValue != nil && cart.Total().LessThan(*e.MinCartValue) {
		return notEligible("cart value is below the required minimum")
	}

	if len(e.ApplicableCategories) > 0 || len(e.ExcludedCategories) > 0 {
		inCart := cart.categories()
		if len(e.ApplicableCategories) > 0 && !containsAny(inCart, e.ApplicableCategories) {
			return notEligible("cart has no items from an applicable category")
		}
		if len(e.ExcludedCategories) > 0 && containsAny(inCart, e.ExcludedCategories) {
			return notEligible("cart contains items from an excluded category")
		}
	}

	if e.MinItemsCount != nil && cart.ItemCount().LessThan(*e.MinItemsCount) {
		return notEligible("cart has fewer items than required")
	}

	return eligible
}

func containsAny(set map[string]struct{}, values []string) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
