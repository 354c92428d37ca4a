package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
	"github.com/xenking/coupon-selector/internal/repository"
	"github.com/xenking/coupon-selector/internal/seed"
)

type config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	// SeedFile is a JSON array of coupon payloads. Empty seeds the samples.
	SeedFile string `env:"SEED_FILE"`
}

func main() {
	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		lg.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, lg, cfg); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, cfg config) error {
	payloads := seed.Samples
	if cfg.SeedFile != "" {
		lg.Info("Reading seed file", zap.String("path", cfg.SeedFile))
		p, err := seed.ReadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		payloads = p
	}

	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	svc, err := coupon.NewService(
		repository.NewCouponRepository(pool),
		repository.NewUsageRepository(pool),
	)
	if err != nil {
		return errors.Wrap(err, "create coupon service")
	}

	stats, err := seed.Load(ctx, svc, payloads)
	if err != nil {
		return err
	}
	lg.Info("Coupons seeded",
		zap.Int("admitted", stats.Admitted),
		zap.Int("existing", stats.Duplicates),
		zap.Int("invalid", stats.Invalid),
	)
	return nil
}
