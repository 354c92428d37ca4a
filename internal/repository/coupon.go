package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

const (
	couponColumns = `code, description, discount_type, discount_value, max_discount_amount,
		start_date, end_date, usage_limit_per_user, eligibility`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY seq`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	insertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

var _ coupon.Catalog = (*CouponRepository)(nil)

// CouponRepository implements coupon.Catalog backed by PostgreSQL. Insertion
// order is kept by the seq column.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// List returns every stored coupon in insertion order.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return coupons, nil
}

// Get looks up a coupon by its exact code.
// Returns coupon.ErrCouponNotFound when no coupon has that code.
func (r *CouponRepository) Get(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Insert stores c. Returns coupon.ErrCodeExists on a duplicate code.
func (r *CouponRepository) Insert(ctx context.Context, c *coupon.Coupon) error {
	var eligibility []byte
	if c.Eligibility != nil {
		b, err := c.Eligibility.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding eligibility of %q: %w", c.Code, err)
		}
		eligibility = b
	}

	var limit *int32
	if c.UsageLimitPerUser != nil {
		v := int32(*c.UsageLimitPerUser)
		limit = &v
	}

	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.Code, c.Description, string(c.DiscountType), c.DiscountValue, c.MaxDiscountAmount,
		c.StartDate, c.EndDate, limit, eligibility,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("inserting coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		maxDiscount  *decimal.Decimal
		startDate    time.Time
		endDate      time.Time
		limit        *int32
		eligibility  []byte
	)
	err := row.Scan(
		&c.Code, &c.Description, &discountType, &c.DiscountValue, &maxDiscount,
		&startDate, &endDate, &limit, &eligibility,
	)
	if err != nil {
		return c, err
	}
	c.DiscountType = coupon.DiscountType(discountType)
	c.MaxDiscountAmount = maxDiscount
	c.StartDate = startDate.UTC()
	c.EndDate = endDate.UTC()
	if limit != nil {
		n := int(*limit)
		c.UsageLimitPerUser = &n
	}
	if len(eligibility) > 0 {
		var e coupon.Eligibility
		if err := e.UnmarshalJSON(eligibility); err != nil {
			return c, fmt.Errorf("decoding eligibility of %q: %w", c.Code, err)
		}
		c.Eligibility = &e
	}
	return c, nil
}
