package coupon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	books := &Cart{Items: []CartItem{item("books", "2", "100")}}
	mixed := &Cart{Items: []CartItem{item("books", "1", "100"), item("alcohol", "1", "50")}}

	tests := []struct {
		name        string
		eligibility *Eligibility
		user        *UserContext
		cart        *Cart
		wantOK      bool
		wantReason  string
	}{
		{
			name:   "no eligibility block",
			cart:   books,
			wantOK: true,
		},
		{
			name:        "empty eligibility block",
			eligibility: &Eligibility{},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "tier allowed",
			eligibility: &Eligibility{AllowedUserTiers: []string{"GOLD", "VIP"}},
			user:        &UserContext{UserTier: "VIP"},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "tier not allowed",
			eligibility: &Eligibility{AllowedUserTiers: []string{"VIP"}},
			user:        &UserContext{UserTier: "BASIC"},
			cart:        books,
			wantReason:  "user tier is not eligible for this coupon",
		},
		{
			name:        "tier unknown fails closed",
			eligibility: &Eligibility{AllowedUserTiers: []string{"VIP"}},
			user:        &UserContext{},
			cart:        books,
			wantReason:  "user tier is not eligible for this coupon",
		},
		{
			name:        "nil user fails closed",
			eligibility: &Eligibility{AllowedUserTiers: []string{"VIP"}},
			cart:        books,
			wantReason:  "user tier is not eligible for this coupon",
		},
		{
			name:        "lifetime spend at minimum",
			eligibility: &Eligibility{MinLifetimeSpend: decPtr("1000")},
			user:        &UserContext{LifetimeSpend: decPtr("1000")},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "lifetime spend below minimum",
			eligibility: &Eligibility{MinLifetimeSpend: decPtr("1000")},
			user:        &UserContext{LifetimeSpend: decPtr("999.99")},
			cart:        books,
			wantReason:  "lifetime spend is below the required minimum",
		},
		{
			name:        "lifetime spend unknown",
			eligibility: &Eligibility{MinLifetimeSpend: decPtr("1")},
			user:        &UserContext{},
			cart:        books,
			wantReason:  "lifetime spend is below the required minimum",
		},
		{
			name:        "enough orders",
			eligibility: &Eligibility{MinOrdersPlaced: decPtr("3")},
			user:        &UserContext{OrdersPlaced: intPtr(3)},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "too few orders",
			eligibility: &Eligibility{MinOrdersPlaced: decPtr("3")},
			user:        &UserContext{OrdersPlaced: intPtr(2)},
			cart:        books,
			wantReason:  "not enough orders placed",
		},
		{
			name:        "orders bound beyond int range",
			eligibility: &Eligibility{MinOrdersPlaced: decPtr("1e19")},
			user:        &UserContext{OrdersPlaced: intPtr(5)},
			cart:        books,
			wantReason:  "not enough orders placed",
		},
		{
			name:        "first order",
			eligibility: &Eligibility{FirstOrderOnly: true},
			user:        &UserContext{OrdersPlaced: intPtr(0)},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "not first order",
			eligibility: &Eligibility{FirstOrderOnly: true},
			user:        &UserContext{OrdersPlaced: intPtr(1)},
			cart:        books,
			wantReason:  "coupon is valid on the first order only",
		},
		{
			name:        "first order with unknown history",
			eligibility: &Eligibility{FirstOrderOnly: true},
			user:        &UserContext{},
			cart:        books,
			wantReason:  "coupon is valid on the first order only",
		},
		{
			name:        "country allowed",
			eligibility: &Eligibility{AllowedCountries: []string{"IN", "US"}},
			user:        &UserContext{Country: "US"},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "country not allowed",
			eligibility: &Eligibility{AllowedCountries: []string{"IN"}},
			user:        &UserContext{Country: "US"},
			cart:        books,
			wantReason:  "country is not eligible for this coupon",
		},
		{
			name:        "cart value at minimum",
			eligibility: &Eligibility{MinCartValue: decPtr("200")},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "cart value below minimum",
			eligibility: &Eligibility{MinCartValue: decPtr("200.01")},
			cart:        books,
			wantReason:  "cart value is below the required minimum",
		},
		{
			name:        "applicable category present",
			eligibility: &Eligibility{ApplicableCategories: []string{"toys", "books"}},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "applicable category missing",
			eligibility: &Eligibility{ApplicableCategories: []string{"toys"}},
			cart:        books,
			wantReason:  "cart has no items from an applicable category",
		},
		{
			name:        "applicable category on empty cart",
			eligibility: &Eligibility{ApplicableCategories: []string{"books"}},
			cart:        &Cart{},
			wantReason:  "cart has no items from an applicable category",
		},
		{
			name:        "excluded category present",
			eligibility: &Eligibility{ExcludedCategories: []string{"alcohol"}},
			cart:        mixed,
			wantReason:  "cart contains items from an excluded category",
		},
		{
			name:        "excluded category absent",
			eligibility: &Eligibility{ExcludedCategories: []string{"alcohol"}},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "min items met",
			eligibility: &Eligibility{MinItemsCount: decPtr("2")},
			cart:        books,
			wantOK:      true,
		},
		{
			name:        "min items not met",
			eligibility: &Eligibility{MinItemsCount: decPtr("3")},
			cart:        books,
			wantReason:  "cart has fewer items than required",
		},
		{
			name: "first failing predicate wins",
			eligibility: &Eligibility{
				AllowedCountries: []string{"IN"},
				MinCartValue:     decPtr("10000"),
			},
			user:       &UserContext{Country: "US"},
			cart:       books,
			wantReason: "country is not eligible for this coupon",
		},
		{
			name: "all predicates hold",
			eligibility: &Eligibility{
				AllowedUserTiers:     []string{"GOLD"},
				MinLifetimeSpend:     decPtr("500"),
				MinOrdersPlaced:      decPtr("2"),
				AllowedCountries:     []string{"IN"},
				MinCartValue:         decPtr("100"),
				ApplicableCategories: []string{"books"},
				ExcludedCategories:   []string{"alcohol"},
				MinItemsCount:        decPtr("1"),
			},
			user: &UserContext{
				UserTier:      "GOLD",
				Country:       "IN",
				LifetimeSpend: decPtr("800"),
				OrdersPlaced:  intPtr(5),
			},
			cart:   books,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{Code: "TEST", Eligibility: tt.eligibility}
			got := Evaluate(c, tt.user, tt.cart)
			assert.Equal(t, tt.wantOK, got.Eligible)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}
