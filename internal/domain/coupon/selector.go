package coupon

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Request describes who is buying what. UserID, when set, overrides
// User.UserID for usage accounting.
type Request struct {
	User   *UserContext
	Cart   *Cart
	UserID string
}

// Selection is the winning coupon for a request.
type Selection struct {
	Code        string
	Description string
	// DiscountAmount is rounded to two decimal places for display.
	DiscountAmount decimal.Decimal
	Coupon         Coupon
}

// candidate is a coupon that passed every filter for a request.
type candidate struct {
	coupon   *Coupon
	discount decimal.Decimal
}

// Selector picks the best applicable coupon out of a catalog.
type Selector struct {
	limiter *Limiter
	now     func() time.Time
}

// NewSelector creates a Selector that checks usage limits with limiter and
// reads the current time from now. A nil now defaults to time.Now.
func NewSelector(limiter *Limiter, now func() time.Time) *Selector {
	if now == nil {
		now = time.Now
	}
	return &Selector{limiter: limiter, now: now}
}

// Select filters coupons by validity window, usage limit, eligibility and
// positive discount, then returns the top-ranked survivor. It returns nil
// with no error when nothing applies. Select never records usage.
func (s *Selector) Select(ctx context.Context, coupons []Coupon, req Request) (*Selection, error) {
	now := s.now()
	userID := effectiveUserID(req)
	total := req.Cart.Total()

	var candidates []candidate
	for i := range coupons {
		c := &coupons[i]

		if !inWindow(c, now) {
			continue
		}

		ok, err := s.limiter.Check(ctx, c, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		if !Evaluate(c, req.User, req.Cart).Eligible {
			continue
		}

		discount := ComputeDiscount(c, total)
		if !discount.IsPositive() {
			continue
		}

		candidates = append(candidates, candidate{coupon: c, discount: discount})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	best := slices.MinFunc(candidates, compareCandidates)
	return &Selection{
		Code:           best.coupon.Code,
		Description:    best.coupon.Description,
		DiscountAmount: best.discount.Round(2),
		Coupon:         *best.coupon,
	}, nil
}

// compareCandidates orders candidates best first: larger discount, then
// earlier end date, then smaller code.
func compareCandidates(a, b candidate) int {
	if c := b.discount.Cmp(a.discount); c != 0 {
		return c
	}
	if c := a.coupon.EndDate.Compare(b.coupon.EndDate); c != 0 {
		return c
	}
	return strings.Compare(a.coupon.Code, b.coupon.Code)
}

// inWindow reports whether now falls within [StartDate, EndDate].
func inWindow(c *Coupon, now time.Time) bool {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return false
	}
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

func effectiveUserID(req Request) string {
	if req.UserID != "" {
		return req.UserID
	}
	if req.User != nil && req.User.UserID != "" {
		return req.User.UserID
	}
	return AnonymousUser
}
