// Command program-ingest loads voucher programs from gzip-compressed
// JSON-lines exports of the promotion catalog.
//
// Each line holds one program:
//
//	{"id":"summer-20","name":"Hè","title":"Giảm 20% tối đa 100k","min_order":300000,"starts_at":"2025-06-01T00:00:00Z","expires_at":null}
//
// Files are read concurrently. Programs are deduplicated by ID across all
// files, the first one read wins.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/voucher-checkout/internal/discountspec"
	"github.com/xenking/voucher-checkout/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		batchSize   int
		skipInert   bool
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 500, "programs per upsert batch")
	flag.BoolVar(&skipInert, "skip-inert", false, "skip programs whose title grants no discount")
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
	files := flag.Args()
	if len(files) == 0 {
		lg.Fatal("No input files: pass one or more .jsonl.gz paths")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rep, err := run(ctx, lg, databaseURL, files, batchSize, skipInert)
	if err != nil {
		lg.Fatal("Program ingest failed", zap.Error(err))
	}
	lg.Info("Program ingest completed",
		zap.Int("read", rep.Read),
		zap.Int("written", rep.Written),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("malformed", rep.Malformed),
		zap.Int("inert", rep.Inert),
	)
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, batchSize int, skipInert bool) (report, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return report{}, errors.Wrapf(err, "check file %s", f)
		}
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return report{}, errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return report{}, errors.Wrap(err, "run migrations")
	}

	in := newIngester(lg, discountspec.NewTitleParser(), postgres.NewProgramCatalog(pool, 0), batchSize, skipInert)
	if err := ingest(ctx, lg, files, in); err != nil {
		return in.report, err
	}
	return in.report, nil
}

// ingest streams every file into in and flushes the final batch.
func ingest(ctx context.Context, lg *zap.Logger, files []string, in *ingester) error {
	records := make(chan record, 1024)

	g, ctx := errgroup.WithContext(ctx)
	var readers sync.WaitGroup
	for _, f := range files {
		readers.Add(1)
		g.Go(func() error {
			defer readers.Done()
			lg.Info("Reading file", zap.String("path", f))
			return streamFile(ctx, f, records)
		})
	}
	g.Go(func() error {
		readers.Wait()
		close(records)
		return nil
	})
	g.Go(func() error {
		return in.consume(ctx, records)
	})
	return g.Wait()
}
