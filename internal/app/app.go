// Package app wires the coupon service together and runs its HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
	"github.com/xenking/coupon-selector/internal/handler"
	"github.com/xenking/coupon-selector/internal/repository"
	"github.com/xenking/coupon-selector/internal/repository/memory"
	"github.com/xenking/coupon-selector/internal/seed"
	"github.com/xenking/coupon-selector/pkg/health"
	"github.com/xenking/coupon-selector/pkg/httpmiddleware"
)

// backend is the storage pair the coupon service runs on.
type backend struct {
	catalog coupon.Catalog
	ledger  coupon.UsageLedger
	pinger  health.Pinger // nil for the in-memory backend
	close   func()
}

func openBackend(ctx context.Context, lg *zap.Logger, databaseURL string) (*backend, error) {
	if databaseURL == "" {
		lg.Info("No database configured, keeping coupons in memory")
		return &backend{
			catalog: memory.NewCouponStore(),
			ledger:  memory.NewUsageStore(),
			close:   func() {},
		}, nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := repository.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &backend{
		catalog: repository.NewCouponRepository(pool),
		ledger:  repository.NewUsageRepository(pool),
		pinger:  pool,
		close:   pool.Close,
	}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	be, err := openBackend(ctx, lg, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer be.close()

	// Health check service.
	healthSvc := health.New()
	if be.pinger != nil {
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(be.pinger))
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Domain service.
	couponSvc, err := coupon.NewService(be.catalog, be.ledger,
		coupon.WithTracerProvider(m.TracerProvider()),
		coupon.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create coupon service")
	}

	if cfg.Seed {
		stats, err := seed.Load(ctx, couponSvc, seed.Samples)
		if err != nil {
			return errors.Wrap(err, "seed coupons")
		}
		lg.Info("Sample coupons loaded",
			zap.Int("admitted", stats.Admitted),
			zap.Int("existing", stats.Duplicates),
		)
	}
	healthSvc.SetReady(true)

	// Router: API routes log with their chi pattern, probes stay quiet.
	router := handler.New(couponSvc).Router(httpmiddleware.LogRequests())
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", router)

	instrumented := otelhttp.NewHandler(mux, "coupon-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
