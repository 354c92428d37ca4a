package memory

import (
	"context"
	"sync"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

var _ coupon.UsageLedger = (*UsageStore)(nil)

type usageKey struct {
	userID string
	code   string
}

// UsageStore counts coupon uses per (user, code) pair.
type UsageStore struct {
	mu     sync.Mutex
	counts map[usageKey]int
}

// NewUsageStore returns an empty UsageStore.
func NewUsageStore() *UsageStore {
	return &UsageStore{counts: make(map[usageKey]int)}
}

// Count returns 0 for pairs that were never recorded.
func (s *UsageStore) Count(_ context.Context, userID, code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[usageKey{userID, code}], nil
}

// Increment adds one use and returns the new count.
func (s *UsageStore) Increment(_ context.Context, userID, code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := usageKey{userID, code}
	s.counts[k]++
	return s.counts[k], nil
}
