package voucher

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/voucher-checkout/internal/discountspec"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
)

// DefaultValidity is how long a coupon stays valid when its program has no end date.
const DefaultValidity = 30 * 24 * time.Hour

const maxInsertAttempts = 5

// ClaimService claims voucher programs into customer coupons. Each customer
// holds at most one coupon per program; claiming again returns that coupon.
type ClaimService struct {
	programs ProgramCatalog
	claims   ClaimRepository
	parser   discountspec.Parser
	codes    *CodeGenerator
	validity time.Duration
	now      func() time.Time

	inflight singleflight.Group
	claimed  metric.Int64Counter
}

// Option configures a ClaimService.
type Option func(*ClaimService)

// WithValidity sets the coupon lifetime for programs without an end date.
func WithValidity(d time.Duration) Option {
	return func(s *ClaimService) {
		if d > 0 {
			s.validity = d
		}
	}
}

// WithClock overrides the claim time source.
func WithClock(now func() time.Time) Option {
	return func(s *ClaimService) { s.now = now }
}

// WithMeterProvider sets the meter provider for the claim counter.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *ClaimService) {
		c, err := mp.Meter("github.com/xenking/voucher-checkout/internal/domain/voucher").
			Int64Counter("checkout.vouchers.claims",
				metric.WithDescription("Voucher claims by outcome"),
			)
		if err != nil {
			otel.Handle(err)
			return
		}
		s.claimed = c
	}
}

// NewClaimService creates a ClaimService.
func NewClaimService(
	programs ProgramCatalog,
	claims ClaimRepository,
	parser discountspec.Parser,
	codes *CodeGenerator,
	opts ...Option,
) *ClaimService {
	s := &ClaimService{
		programs: programs,
		claims:   claims,
		parser:   parser,
		codes:    codes,
		validity: DefaultValidity,
		now:      time.Now,
		claimed:  metricnoop.Int64Counter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Claim returns the customer's coupon for the program, creating it on the
// first call. Concurrent claims for the same pair share one attempt in this
// process; across processes the ledger's insert-if-absent decides.
func (s *ClaimService) Claim(ctx context.Context, programID, customerID string) (*coupon.Coupon, error) {
	v, err, _ := s.inflight.Do(customerID+"\x00"+programID, func() (any, error) {
		return s.claim(ctx, programID, customerID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*coupon.Coupon).Clone(), nil
}

func (s *ClaimService) claim(ctx context.Context, programID, customerID string) (*coupon.Coupon, error) {
	program, err := s.programs.Get(ctx, programID)
	if err != nil {
		if errors.Is(err, ErrProgramNotFound) {
			return nil, &NotFoundError{ProgramID: programID}
		}
		return nil, errors.Wrap(err, "get program")
	}

	existing, err := s.claims.FindClaim(ctx, customerID, programID)
	switch {
	case err == nil:
		s.record(ctx, "existing")
		return existing, nil
	case !errors.Is(err, ErrClaimNotFound):
		return nil, errors.Wrap(err, "find claim")
	}

	now := s.now()
	if !program.Active(now) {
		if now.Before(program.StartsAt) {
			return nil, ErrProgramNotStarted
		}
		return nil, ErrProgramEnded
	}

	spec := s.parser.Parse(program.Title)
	if spec.Inert() {
		zctx.From(ctx).Warn("Voucher title yields no discount",
			zap.String("program_id", program.ID),
			zap.String("title", program.Title),
		)
	}

	validUntil := now.Add(s.validity)
	if program.ExpiresAt != nil {
		validUntil = *program.ExpiresAt
	}

	for range maxInsertAttempts {
		code, err := s.codes.Generate(ctx, s.claims.CodeExists)
		if err != nil {
			return nil, errors.Wrap(err, "generate code")
		}

		c := &coupon.Coupon{
			Code:        code,
			ProgramID:   program.ID,
			CustomerID:  customerID,
			Type:        spec.Type,
			Discount:    spec.Discount,
			Description: program.Title,
			MinOrder:    program.MinOrder,
			MaxDiscount: spec.MaxDiscount,
			ValidUntil:  validUntil,
			ClaimedAt:   now,
		}

		stored, inserted, err := s.claims.InsertIfAbsent(ctx, c)
		if errors.Is(err, ErrCodeTaken) {
			s.codes.Remember(code)
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "insert claim")
		}

		if !inserted {
			// Another process claimed the same pair first.
			s.record(ctx, "existing")
			return stored, nil
		}
		s.codes.Remember(code)
		s.record(ctx, "created")
		zctx.From(ctx).Info("Voucher claimed",
			zap.String("program_id", program.ID),
			zap.String("customer_id", customerID),
			zap.String("code", code),
		)
		return stored, nil
	}
	return nil, ErrCodeSpaceExhausted
}

func (s *ClaimService) record(ctx context.Context, outcome string) {
	s.claimed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ClaimableProgram is an active program with the customer's claim status.
type ClaimableProgram struct {
	Program Program
	Spec    discountspec.Spec
	// Coupon is the customer's coupon from this program, nil if unclaimed.
	Coupon *coupon.Coupon
}

// Claimed reports whether the customer already holds a coupon from the program.
func (p *ClaimableProgram) Claimed() bool {
	return p.Coupon != nil
}

// ListClaimable returns the active programs and whether the customer has
// claimed each one.
func (s *ClaimService) ListClaimable(ctx context.Context, customerID string) ([]ClaimableProgram, error) {
	programs, err := s.programs.ListActive(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list programs")
	}
	held, err := s.claims.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list claims")
	}

	byProgram := make(map[string]*coupon.Coupon, len(held))
	for i := range held {
		byProgram[held[i].ProgramID] = &held[i]
	}

	out := make([]ClaimableProgram, 0, len(programs))
	for _, p := range programs {
		out = append(out, ClaimableProgram{
			Program: p,
			Spec:    s.parser.Parse(p.Title),
			Coupon:  byProgram[p.ID].Clone(),
		})
	}
	return out, nil
}
