package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
	"github.com/xenking/coupon-selector/internal/ingest"
	"github.com/xenking/coupon-selector/internal/repository"
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz coupon payload files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, lg, dataDir, databaseURL); err != nil {
		lg.Fatal("Coupon ingest failed", zap.Error(err))
	}
	lg.Info("Coupon ingest completed")
}

func run(ctx context.Context, lg *zap.Logger, dataDir, databaseURL string) error {
	files, err := ingest.Discover(dataDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		lg.Info("No payload files found", zap.String("dir", dataDir))
		return nil
	}

	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

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

	report, err := ingest.Run(ctx, svc, files)
	if err != nil {
		return err
	}
	lg.Info("Ingest report",
		zap.Int("files", report.Files),
		zap.Int("lines", report.Lines),
		zap.Int("admitted", report.Admitted),
		zap.Int("invalid", report.Invalid),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("conflicts", report.Conflicts),
	)
	return nil
}
