package coupon

import (
	"context"

	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

type mockLedger struct {
	counts   map[string]map[string]int
	countErr error
	incErr   error
}

func newMockLedger() *mockLedger {
	return &mockLedger{counts: make(map[string]map[string]int)}
}

func (m *mockLedger) Count(_ context.Context, userID, code string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.counts[userID][code], nil
}

func (m *mockLedger) Increment(_ context.Context, userID, code string) (int, error) {
	if m.incErr != nil {
		return 0, m.incErr
	}
	if m.counts[userID] == nil {
		m.counts[userID] = make(map[string]int)
	}
	m.counts[userID][code]++
	return m.counts[userID][code], nil
}

type mockCatalog struct {
	coupons []Coupon
	listErr error
	inserts int
}

func (m *mockCatalog) List(_ context.Context) ([]Coupon, error) {
	return m.coupons, m.listErr
}

func (m *mockCatalog) Get(_ context.Context, code string) (*Coupon, error) {
	for i := range m.coupons {
		if m.coupons[i].Code == code {
			return &m.coupons[i], nil
		}
	}
	return nil, ErrCouponNotFound
}

func (m *mockCatalog) Insert(_ context.Context, c *Coupon) error {
	for _, existing := range m.coupons {
		if existing.Code == c.Code {
			return ErrCodeExists
		}
	}
	m.inserts++
	m.coupons = append(m.coupons, *c)
	return nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(n int) *int {
	return &n
}

func item(category, qty, price string) CartItem {
	return CartItem{
		ProductID: category + "-p",
		Category:  category,
		Quantity:  dec(qty),
		UnitPrice: dec(price),
	}
}
