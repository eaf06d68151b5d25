package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/voucher-checkout/internal/domain/voucher"
	"github.com/xenking/voucher-checkout/internal/storage/postgres"
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	lg, err := zap.NewDevelopment()
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

	if err := run(ctx, lg, databaseURL); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	programs := samplePrograms(time.Now().UTC())
	if err := postgres.NewProgramCatalog(pool, 10*time.Second).Upsert(ctx, programs...); err != nil {
		return errors.Wrap(err, "seed programs")
	}
	for _, p := range programs {
		lg.Info("Upserted program", zap.String("id", p.ID), zap.String("title", p.Title))
	}
	return nil
}

// samplePrograms covers each title shape the parser understands plus an
// expired and a not-yet-started program.
func samplePrograms(now time.Time) []voucher.Program {
	day := 24 * time.Hour
	start := now.Add(-day).Truncate(day)
	in := func(d time.Duration) *time.Time {
		t := start.Add(d)
		return &t
	}
	return []voucher.Program{
		{ID: "welcome-50k", Name: "Chào bạn mới", Title: "Giảm 50.000đ", StartsAt: start},
		{ID: "summer-20", Name: "Hè rực rỡ", Title: "Giảm 20% tối đa 100k", MinOrder: decimal.NewFromInt(300000), StartsAt: start, ExpiresAt: in(30 * day)},
		{ID: "weekend-30k", Name: "Cuối tuần", Title: "30k off", MinOrder: decimal.NewFromInt(200000), StartsAt: start, ExpiresAt: in(7 * day)},
		{ID: "vip-15", Name: "Khách hàng thân thiết", Title: "Giảm 15%", MinOrder: decimal.NewFromInt(1000000), StartsAt: start},
		{ID: "tet-expired", Name: "Tết", Title: "Giảm 25%", StartsAt: start.Add(-60 * day), ExpiresAt: in(-30 * day)},
		{ID: "black-friday", Name: "Black Friday", Title: "Giảm 40% max 200k", StartsAt: start.Add(60 * day), ExpiresAt: in(61 * day)},
	}
}
