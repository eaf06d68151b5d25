package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/voucher-checkout/internal/discountspec"
	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/checkout"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/order"
	"github.com/xenking/voucher-checkout/internal/domain/payment"
	"github.com/xenking/voucher-checkout/internal/domain/shipping"
	"github.com/xenking/voucher-checkout/internal/domain/voucher"
	"github.com/xenking/voucher-checkout/internal/handler"
	"github.com/xenking/voucher-checkout/internal/storage/postgres"
	"github.com/xenking/voucher-checkout/pkg/health"
	"github.com/xenking/voucher-checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second), health.WithFailureThreshold(5))

	session, err := openSessionStores(ctx, lg, cfg.Redis, cfg.Store.Timeout, healthSvc)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	programs := postgres.NewProgramCatalog(pool, cfg.Store.Timeout)
	ledger := postgres.NewClaimLedger(pool, cfg.Store.Timeout)
	orders := postgres.NewOrderStore(pool, cfg.Store.Timeout)
	sequence := postgres.NewSequence(pool, cfg.Store.Timeout)

	// Domain services.
	methods := shipping.NewStaticCatalog(shipping.DefaultMethods()...)
	resolver := shipping.NewResolver(methods, decimal.NewFromInt(cfg.Pricing.FreeShippingThreshold))
	assembler := order.NewAssembler(
		resolver,
		payment.NewStaticCatalog(payment.DefaultMethods()...),
		order.NewCodeGenerator(sequence),
		orders,
		session.mirror,
		order.WithMirrorTimeout(cfg.Store.MirrorTimeout),
		order.WithMeterProvider(m.MeterProvider()),
		order.WithTracerProvider(m.TracerProvider()),
	)
	claims := voucher.NewClaimService(programs, ledger, discountspec.NewTitleParser(), voucher.NewCodeGenerator(),
		voucher.WithValidity(cfg.Pricing.CouponValidity),
		voucher.WithMeterProvider(m.MeterProvider()),
	)
	validator := coupon.NewRepoValidator(ledger, orders)
	carts := cart.NewService(session.carts)

	h := handler.NewHandler(
		claims,
		validator,
		carts,
		checkout.NewService(carts, validator, resolver, assembler),
		orders,
		methods,
	)

	// Router: health endpoints + API routes on one server.
	router := chi.NewRouter()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Register(router)

	routeFinder := httpmiddleware.RouteFinder(httpmiddleware.ChiRoutes)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     httpmiddleware.DefaultAllowHeaders,
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.CustomerKey,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("checkout-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
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
		// Orders placed before shutdown still get their mirror attempt.
		if err := assembler.Drain(shutdownCtx); err != nil {
			lg.Warn("Order mirrors still in flight", zap.Error(err))
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
