package main

import (
	"context"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/voucher-checkout/internal/discountspec"
	"github.com/xenking/voucher-checkout/internal/domain/voucher"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

type catalog interface {
	Upsert(ctx context.Context, programs ...voucher.Program) error
}

type report struct {
	Read       int
	Written    int
	Duplicates int
	Malformed  int
	Inert      int
}

// ingester owns dedupe state and the pending batch. Only consume touches it.
type ingester struct {
	lg        *zap.Logger
	parser    discountspec.Parser
	catalog   catalog
	batchSize int
	skipInert bool

	// seen answers "definitely new" for most IDs without touching ids.
	seen  *bloom.BloomFilter
	ids   map[string]struct{}
	batch []voucher.Program

	report report
}

func newIngester(lg *zap.Logger, parser discountspec.Parser, c catalog, batchSize int, skipInert bool) *ingester {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &ingester{
		lg:        lg,
		parser:    parser,
		catalog:   c,
		batchSize: batchSize,
		skipInert: skipInert,
		seen:      bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		ids:       make(map[string]struct{}),
	}
}

func (in *ingester) consume(ctx context.Context, records <-chan record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-records:
			if !ok {
				return in.flush(ctx)
			}
			if err := in.add(ctx, r); err != nil {
				return err
			}
		}
	}
}

func (in *ingester) add(ctx context.Context, r record) error {
	in.report.Read++
	if r.err != nil {
		in.report.Malformed++
		in.lg.Warn("Malformed line",
			zap.String("file", r.file),
			zap.Int("line", r.line),
			zap.Error(r.err),
		)
		return nil
	}

	p := r.program
	if in.seen.TestAndAddString(p.ID) {
		if _, dup := in.ids[p.ID]; dup {
			in.report.Duplicates++
			return nil
		}
	}
	in.ids[p.ID] = struct{}{}

	if in.parser.Parse(p.Title).Inert() {
		in.report.Inert++
		in.lg.Warn("Title grants no discount",
			zap.String("program_id", p.ID),
			zap.String("title", p.Title),
			zap.Bool("skipped", in.skipInert),
		)
		if in.skipInert {
			return nil
		}
	}

	in.batch = append(in.batch, p)
	if len(in.batch) >= in.batchSize {
		return in.flush(ctx)
	}
	return nil
}

func (in *ingester) flush(ctx context.Context) error {
	if len(in.batch) == 0 {
		return nil
	}
	if err := in.catalog.Upsert(ctx, in.batch...); err != nil {
		return errors.Wrapf(err, "upsert batch of %d", len(in.batch))
	}
	in.report.Written += len(in.batch)
	in.lg.Info("Batch written", zap.Int("size", len(in.batch)), zap.Int("total", in.report.Written))
	in.batch = in.batch[:0]
	return nil
}
