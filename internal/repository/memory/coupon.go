// Package memory implements the coupon catalog and usage ledger in process
// memory. It backs the service when no database is configured and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

var _ coupon.Catalog = (*CouponStore)(nil)

// CouponStore is an append-only, insertion-ordered coupon catalog.
type CouponStore struct {
	mu      sync.RWMutex
	coupons []coupon.Coupon
	byCode  map[string]int
}

// NewCouponStore returns an empty CouponStore.
func NewCouponStore() *CouponStore {
	return &CouponStore{byCode: make(map[string]int)}
}

// List returns a snapshot of all coupons in insertion order.
func (s *CouponStore) List(_ context.Context) ([]coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]coupon.Coupon, len(s.coupons))
	copy(out, s.coupons)
	return out, nil
}

// Get returns coupon.ErrCouponNotFound for unknown codes.
func (s *CouponStore) Get(_ context.Context, code string) (*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byCode[code]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	c := s.coupons[i]
	return &c, nil
}

// Insert appends c. Returns coupon.ErrCodeExists on a duplicate code.
func (s *CouponStore) Insert(_ context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[c.Code]; ok {
		return coupon.ErrCodeExists
	}
	s.byCode[c.Code] = len(s.coupons)
	s.coupons = append(s.coupons, *c)
	return nil
}

