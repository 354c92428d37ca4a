package coupon

import (
	"context"

	"github.com/go-faster/errors"
)

// Limiter enforces per-user usage limits against a UsageLedger.
//
// Check and Record are independent operations. Callers that must not let two
// concurrent purchases both pass the limit have to serialize them.
type Limiter struct {
	ledger UsageLedger
}

// NewLimiter creates a Limiter reading and writing the given ledger.
func NewLimiter(ledger UsageLedger) *Limiter {
	return &Limiter{ledger: ledger}
}

// Check reports whether userID may still use c.
func (l *Limiter) Check(ctx context.Context, c *Coupon, userID string) (bool, error) {
	if c.UsageLimitPerUser == nil {
		return true, nil
	}
	used, err := l.ledger.Count(ctx, userID, c.Code)
	if err != nil {
		return false, errors.Wrapf(err, "count usage of %q", c.Code)
	}
	return used < *c.UsageLimitPerUser, nil
}

// Record adds one use of code by userID and returns the new count.
func (l *Limiter) Record(ctx context.Context, userID, code string) (int, error) {
	n, err := l.ledger.Increment(ctx, userID, code)
	if err != nil {
		return 0, errors.Wrapf(err, "record usage of %q", code)
	}
	return n, nil
}
