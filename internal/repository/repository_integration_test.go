//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "coupon",
				"POSTGRES_PASSWORD": "coupon",
				"POSTGRES_DB":       "coupon",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}
	url := fmt.Sprintf("postgres://coupon:coupon@%s:%s/coupon?sslmode=disable", host, port.Port())

	testPool, err = NewPool(ctx, url)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	return m.Run()
}

// resetTables empties both tables between tests.
func resetTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `TRUNCATE coupon_usage, coupons RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func newCoupon(code string) *coupon.Coupon {
	return &coupon.Coupon{
		Code:          code,
		Description:   "Flat 100 off",
		DiscountType:  coupon.DiscountFlat,
		DiscountValue: decimal.NewFromInt(100),
		StartDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	require.NoError(t, RunMigrations(context.Background(), testPool))
}

func TestCouponRepository_RoundTrip(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewCouponRepository(testPool)

	maxDiscount := decimal.RequireFromString("250.50")
	minCart := decimal.RequireFromString("999.99")
	limit := 2
	orders := decimal.NewFromInt(3)
	c := newCoupon("VIP20")
	c.DiscountType = coupon.DiscountPercent
	c.DiscountValue = decimal.RequireFromString("20.5")
	c.MaxDiscountAmount = &maxDiscount
	c.UsageLimitPerUser = &limit
	c.Eligibility = &coupon.Eligibility{
		AllowedUserTiers: []string{"GOLD"},
		MinOrdersPlaced:  &orders,
		FirstOrderOnly:   true,
		MinCartValue:     &minCart,
	}
	require.NoError(t, repo.Insert(ctx, c))

	got, err := repo.Get(ctx, "VIP20")
	require.NoError(t, err)
	assert.Equal(t, c.Code, got.Code)
	assert.Equal(t, coupon.DiscountPercent, got.DiscountType)
	assert.True(t, c.DiscountValue.Equal(got.DiscountValue))
	require.NotNil(t, got.MaxDiscountAmount)
	assert.True(t, maxDiscount.Equal(*got.MaxDiscountAmount))
	assert.Equal(t, c.StartDate, got.StartDate)
	assert.Equal(t, c.EndDate, got.EndDate)
	require.NotNil(t, got.UsageLimitPerUser)
	assert.Equal(t, 2, *got.UsageLimitPerUser)

	require.NotNil(t, got.Eligibility)
	assert.Equal(t, []string{"GOLD"}, got.Eligibility.AllowedUserTiers)
	assert.True(t, got.Eligibility.FirstOrderOnly)
	require.NotNil(t, got.Eligibility.MinOrdersPlaced)
	assert.True(t, orders.Equal(*got.Eligibility.MinOrdersPlaced))
	require.NotNil(t, got.Eligibility.MinCartValue)
	assert.True(t, minCart.Equal(*got.Eligibility.MinCartValue))
	assert.Nil(t, got.Eligibility.MinLifetimeSpend)
}

func TestCouponRepository_OrderAndConflicts(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewCouponRepository(testPool)

	for _, code := range []string{"ZETA", "ALPHA", "MID"} {
		require.NoError(t, repo.Insert(ctx, newCoupon(code)))
	}
	assert.ErrorIs(t, repo.Insert(ctx, newCoupon("ALPHA")), coupon.ErrCodeExists)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "ZETA", list[0].Code)
	assert.Equal(t, "ALPHA", list[1].Code)
	assert.Equal(t, "MID", list[2].Code)
	assert.Nil(t, list[0].Eligibility)
	assert.Nil(t, list[0].UsageLimitPerUser)

	_, err = repo.Get(ctx, "alpha")
	assert.ErrorIs(t, err, coupon.ErrCouponNotFound)
}

func TestUsageRepository(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	require.NoError(t, NewCouponRepository(testPool).Insert(ctx, newCoupon("WELCOME100")))
	repo := NewUsageRepository(testPool)

	n, err := repo.Count(ctx, "u1", "WELCOME100")
	require.NoError(t, err)
	assert.Zero(t, n)

	const workers = 20
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Increment(ctx, "u1", "WELCOME100")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err = repo.Count(ctx, "u1", "WELCOME100")
	require.NoError(t, err)
	assert.Equal(t, workers, n)

	n, err = repo.Count(ctx, "u2", "WELCOME100")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_OnPostgres(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, err := coupon.NewService(NewCouponRepository(testPool), NewUsageRepository(testPool),
		coupon.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	_, err = svc.Admit(ctx, []byte(`{
		"code": "WELCOME100",
		"description": "Flat 100 off on orders above 500",
		"discountType": "FLAT",
		"discountValue": 100,
		"startDate": "2025-01-01",
		"endDate": "2025-12-31",
		"usageLimitPerUser": 1,
		"eligibility": {"minCartValue": 500}
	}`))
	require.NoError(t, err)

	cart := &coupon.Cart{Items: []coupon.CartItem{{
		Category:  "electronics",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.NewFromInt(600),
	}}}
	req := coupon.Request{UserID: "u1", Cart: cart}

	sel, err := svc.Best(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, "100.00", sel.DiscountAmount.StringFixed(2))

	_, err = svc.RecordUsage(ctx, "u1", "WELCOME100")
	require.NoError(t, err)

	sel, err = svc.Best(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, sel)
}
