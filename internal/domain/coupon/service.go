package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for validity windows.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithTracerProvider sets the provider used for selection spans.
func WithTracerProvider(tp trace.TracerProvider) ServiceOption {
	return func(s *Service) { s.tracer = tp.Tracer("coupon") }
}

// WithMeterProvider sets the provider used for coupon counters.
func WithMeterProvider(mp metric.MeterProvider) ServiceOption {
	return func(s *Service) { s.meter = mp.Meter("coupon") }
}

// Service admits coupons into a catalog, selects the best coupon for a
// request and records explicit usage.
type Service struct {
	catalog  Catalog
	limiter  *Limiter
	selector *Selector
	now      func() time.Time

	tracer trace.Tracer
	meter  metric.Meter

	admissions metric.Int64Counter
	selections metric.Int64Counter
	usages     metric.Int64Counter
}

// NewService creates a Service over the given catalog and usage ledger.
func NewService(catalog Catalog, ledger UsageLedger, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		catalog: catalog,
		limiter: NewLimiter(ledger),
		now:     time.Now,
		tracer:  tracenoop.NewTracerProvider().Tracer("coupon"),
		meter:   metricnoop.NewMeterProvider().Meter("coupon"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.selector = NewSelector(s.limiter, s.now)

	var err error
	if s.admissions, err = s.meter.Int64Counter("coupon.admissions",
		metric.WithDescription("Coupon admission attempts by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "admissions counter")
	}
	if s.selections, err = s.meter.Int64Counter("coupon.selections",
		metric.WithDescription("Best coupon selections by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "selections counter")
	}
	if s.usages, err = s.meter.Int64Counter("coupon.usages",
		metric.WithDescription("Recorded coupon uses"),
	); err != nil {
		return nil, errors.Wrap(err, "usages counter")
	}
	return s, nil
}

// Admit validates payload and appends the normalized coupon to the catalog.
// It returns a *ValidationError for invalid payloads and ErrCodeExists when
// the code is taken. The catalog is untouched on failure.
func (s *Service) Admit(ctx context.Context, payload []byte) (*Coupon, error) {
	c, res := Decode(payload)
	if !res.Valid {
		s.admissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "invalid")))
		return nil, res.Err()
	}
	if err := s.catalog.Insert(ctx, c); err != nil {
		if errors.Is(err, ErrCodeExists) {
			s.admissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "conflict")))
			return nil, ErrCodeExists
		}
		return nil, errors.Wrap(err, "insert coupon")
	}
	s.admissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "admitted")))
	return c, nil
}

// Get returns the stored coupon with the given code.
func (s *Service) Get(ctx context.Context, code string) (*Coupon, error) {
	return s.catalog.Get(ctx, code)
}

// Best selects the best coupon in the catalog for req. A nil selection with a
// nil error means no coupon applies.
func (s *Service) Best(ctx context.Context, req Request) (*Selection, error) {
	ctx, span := s.tracer.Start(ctx, "coupon.Best")
	defer span.End()

	coupons, err := s.catalog.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "list coupons")
	}
	span.SetAttributes(attribute.Int("coupon.catalog_size", len(coupons)))

	sel, err := s.selector.Select(ctx, coupons, req)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "select coupon")
	}

	matched := sel != nil
	s.selections.Add(ctx, 1, metric.WithAttributes(attribute.Bool("matched", matched)))
	if matched {
		span.SetAttributes(attribute.String("coupon.code", sel.Code))
	}
	return sel, nil
}

// RecordUsage marks one use of code by userID after a completed purchase and
// returns the new count. Unknown codes yield ErrCouponNotFound.
func (s *Service) RecordUsage(ctx context.Context, userID, code string) (int, error) {
	if _, err := s.catalog.Get(ctx, code); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return 0, ErrCouponNotFound
		}
		return 0, errors.Wrap(err, "get coupon")
	}
	n, err := s.limiter.Record(ctx, userID, code)
	if err != nil {
		return 0, err
	}
	s.usages.Add(ctx, 1, metric.WithAttributes(attribute.String("coupon.code", code)))
	return n, nil
}
