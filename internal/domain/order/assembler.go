package order

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/payment"
	"github.com/xenking/voucher-checkout/internal/domain/shipping"
)

const instrumentationName = "github.com/xenking/voucher-checkout/internal/domain/order"

// DefaultMirrorTimeout bounds a single remote mirror attempt.
const DefaultMirrorTimeout = 5 * time.Second

// FinalizeRequest holds everything needed to turn a cart into an order.
type FinalizeRequest struct {
	CustomerID string
	Items      []cart.Item
	// Coupon is the coupon applied earlier in the session, if any. It is
	// re-evaluated against the final cart.
	Coupon         *coupon.Coupon
	ShippingMethod string
	PaymentMethod  string
	Contact        Contact
	Address        Address
	Note           string
}

// Assembler composes cart, coupon, shipping and payment into a committed Order.
type Assembler struct {
	shipping *shipping.Resolver
	payments payment.Catalog
	seq      *CodeGenerator
	orders   Repository
	mirror   Mirror

	now           func() time.Time
	newID         func() uuid.UUID
	mirrorTimeout time.Duration
	inflight      sync.WaitGroup

	tracer         trace.Tracer
	placed         metric.Int64Counter
	mirrorFailures metric.Int64Counter
}

// Option configures an Assembler.
type Option func(*assemblerOptions)

type assemblerOptions struct {
	now            func() time.Time
	mirrorTimeout  time.Duration
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithClock overrides the order timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *assemblerOptions) { o.now = now }
}

// WithMirrorTimeout bounds each remote mirror attempt.
func WithMirrorTimeout(d time.Duration) Option {
	return func(o *assemblerOptions) {
		if d > 0 {
			o.mirrorTimeout = d
		}
	}
}

// WithMeterProvider sets the meter provider for checkout counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *assemblerOptions) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for Finalize spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *assemblerOptions) { o.tracerProvider = tp }
}

// NewAssembler creates an Assembler. A nil mirror keeps orders local-only.
func NewAssembler(
	resolver *shipping.Resolver,
	payments payment.Catalog,
	seq *CodeGenerator,
	orders Repository,
	mirror Mirror,
	opts ...Option,
) *Assembler {
	o := assemblerOptions{
		now:            time.Now,
		mirrorTimeout:  DefaultMirrorTimeout,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Assembler{
		shipping:      resolver,
		payments:      payments,
		seq:           seq,
		orders:        orders,
		mirror:        mirror,
		now:           o.now,
		newID:         uuid.New,
		mirrorTimeout: o.mirrorTimeout,
		tracer:        o.tracerProvider.Tracer(instrumentationName),
	}

	meter := o.meterProvider.Meter(instrumentationName)
	var err error
	if a.placed, err = meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders committed to the local store"),
	); err != nil {
		otel.Handle(err)
		a.placed = metricnoop.Int64Counter{}
	}
	if a.mirrorFailures, err = meter.Int64Counter("checkout.orders.mirror_failures",
		metric.WithDescription("Remote order mirror attempts that failed and were discarded"),
	); err != nil {
		otel.Handle(err)
		a.mirrorFailures = metricnoop.Int64Counter{}
	}
	return a
}

// Finalize validates the cart, prices it and commits the order locally.
//
// Every failure before the local append leaves no side effect. Once the
// append succeeds the order is returned and replication to the mirror runs
// in the background; the caller may clear the cart only after a nil error.
func (a *Assembler) Finalize(ctx context.Context, req FinalizeRequest) (_ *Order, rerr error) {
	ctx, span := a.tracer.Start(ctx, "order.Finalize",
		trace.WithAttributes(attribute.Int("checkout.items", len(req.Items))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(otelcodes.Error, rerr.Error())
		}
		span.End()
	}()

	if err := checkPreconditions(req.Items); err != nil {
		return nil, err
	}

	var (
		subtotal  = cart.Subtotal(req.Items)
		saved     = decimal.Zero
		listTotal = decimal.Zero
	)
	for i := range req.Items {
		saved = saved.Add(req.Items[i].LineSaving())
		listTotal = listTotal.Add(req.Items[i].ListTotal())
	}

	now := a.now()
	couponDiscount := decimal.Zero
	var applied *coupon.Coupon
	if c := req.Coupon; c != nil && !c.Expired(now) {
		// The cart may have changed since the coupon was applied.
		if s := coupon.ComputeSavings(c, subtotal); s.Eligible && s.Amount.IsPositive() {
			couponDiscount = s.Amount
			applied = c.Clone()
		}
	}

	quote, err := a.shipping.Quote(req.ShippingMethod, subtotal)
	if err != nil {
		return nil, errors.Wrap(err, "resolve shipping")
	}
	pay, err := a.payments.Get(req.PaymentMethod)
	if err != nil {
		return nil, errors.Wrap(err, "resolve payment")
	}

	total := subtotal.
		Sub(couponDiscount).
		Sub(pay.Discount).
		Add(pay.Fee).
		Add(quote.Fee)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:         a.newID(),
		CustomerID: req.CustomerID,
		Contact:    req.Contact,
		Address:    req.Address,
		Items:      snapshotItems(req.Items),
		Shipping: ShippingLine{
			MethodID:    quote.Method.ID,
			DisplayName: quote.Method.DisplayName,
			Duration:    quote.Method.Duration,
			Fee:         quote.Fee,
		},
		Payment: PaymentLine{
			MethodID:    pay.ID,
			DisplayName: pay.DisplayName,
			Fee:         pay.Fee,
			Discount:    pay.Discount,
		},
		AppliedCoupon: applied,
		Summary: Summary{
			Subtotal:             subtotal,
			SavedAmount:          saved,
			CouponDiscount:       couponDiscount,
			ShippingFee:          quote.Fee,
			PaymentFee:           pay.Fee,
			PaymentDiscount:      pay.Discount,
			TotalBeforeDiscounts: listTotal.Add(pay.Fee).Add(quote.Fee),
			Total:                total,
		},
		Note: req.Note,
	}

	code, err := a.seq.Next(ctx)
	if err != nil {
		return nil, &StorageError{Op: "assign order code", Err: err}
	}
	o.OrderCode = code
	o.CreatedAt = now

	if err := a.orders.Append(ctx, o); err != nil {
		// A concurrent order spent the coupon first.
		var invalid *coupon.ValidationError
		if errors.As(err, &invalid) {
			return nil, invalid
		}
		return nil, &StorageError{Op: "append order", Err: err}
	}
	span.SetAttributes(attribute.String("checkout.order_code", o.OrderCode))
	a.placed.Add(ctx, 1)
	zctx.From(ctx).Info("Order placed",
		zap.String("order_code", o.OrderCode),
		zap.Stringer("order_id", o.ID),
		zap.String("total", o.Summary.Total.String()),
	)

	a.mirrorAsync(ctx, o.Clone())
	return o, nil
}

func checkPreconditions(items []cart.Item) error {
	if len(items) == 0 {
		return &PreconditionError{Reason: ErrEmptyCart}
	}
	for i := range items {
		if !items[i].InStock {
			return &PreconditionError{Reason: ErrOutOfStock, ProductID: items[i].ProductID}
		}
	}
	return nil
}

// mirrorAsync replicates o in a detached task. The task outlives the
// request context but not the mirror timeout.
func (a *Assembler) mirrorAsync(ctx context.Context, o *Order) {
	if a.mirror == nil {
		return
	}
	a.inflight.Go(func() {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.mirrorTimeout)
		defer cancel()

		if err := a.mirror.Mirror(mctx, o); err != nil {
			a.discardMirrorError(mctx, &MirrorError{OrderCode: o.OrderCode, Err: err})
		}
	})
}

// discardMirrorError is the only place a mirror failure ends up. The order
// is already committed locally, so the error is logged, counted and dropped.
func (a *Assembler) discardMirrorError(ctx context.Context, err *MirrorError) {
	zctx.From(ctx).Warn("Order mirror failed, keeping local copy only",
		zap.String("order_code", err.OrderCode),
		zap.Error(err.Err),
	)
	a.mirrorFailures.Add(ctx, 1)
}

// Drain waits for in-flight mirror tasks or for ctx to end.
func (a *Assembler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
