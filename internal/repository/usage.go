package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

const (
	countUsageSQL = `SELECT uses FROM coupon_usage WHERE user_id = $1 AND code = $2`

	incrementUsageSQL = `INSERT INTO coupon_usage (user_id, code, uses) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, code) DO UPDATE
		SET uses = coupon_usage.uses + 1, updated_at = now()
		RETURNING uses`
)

var _ coupon.UsageLedger = (*UsageRepository)(nil)

// UsageRepository implements coupon.UsageLedger backed by PostgreSQL.
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository returns a UsageRepository that uses the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Count returns how many times userID has used code.
func (r *UsageRepository) Count(ctx context.Context, userID, code string) (int, error) {
	var uses int32
	err := r.pool.QueryRow(ctx, countUsageSQL, userID, code).Scan(&uses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("counting usage of %q by %q: %w", code, userID, err)
	}
	return int(uses), nil
}

// Increment atomically records one use of code by userID.
func (r *UsageRepository) Increment(ctx context.Context, userID, code string) (int, error) {
	var uses int32
	if err := r.pool.QueryRow(ctx, incrementUsageSQL, userID, code).Scan(&uses); err != nil {
		return 0, fmt.Errorf("incrementing usage of %q by %q: %w", code, userID, err)
	}
	return int(uses), nil
}
