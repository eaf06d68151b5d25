package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/voucher"
)

const (
	couponColumns = `code, customer_id, program_id, discount_type, discount, description,
		min_order, max_discount, valid_until, claimed_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE customer_id = $1 AND code = UPPER($2)`

	listCouponsByCustomerSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE customer_id = $1 ORDER BY claimed_at, code`

	getClaimSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE customer_id = $1 AND program_id = $2`

	insertClaimSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT coupons_customer_program_key DO NOTHING
		RETURNING ` + couponColumns

	couponCodeExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1)`

	couponCodeConstraint = "coupons_pkey"
)

var _ voucher.ClaimRepository = (*ClaimLedger)(nil)

// ClaimLedger implements voucher.ClaimRepository over the coupons table.
// The (customer_id, program_id) unique constraint makes claims at-most-once
// across every process sharing the database.
type ClaimLedger struct {
	conn
}

// NewClaimLedger returns a ClaimLedger that uses the given pool.
func NewClaimLedger(pool *pgxpool.Pool, timeout time.Duration) *ClaimLedger {
	return &ClaimLedger{conn: conn{pool: pool, timeout: timeout}}
}

// FindByCode returns the customer's coupon by code (case-insensitive).
// Codes held by other customers are reported as coupon.ErrInvalidCoupon.
func (l *ClaimLedger) FindByCode(ctx context.Context, customerID, code string) (*coupon.Coupon, error) {
	c, err := l.one(ctx, getCouponByCodeSQL, customerID, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, coupon.ErrInvalidCoupon
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return c, nil
}

// ListByCustomer returns the customer's coupons, oldest claim first.
func (l *ClaimLedger) ListByCustomer(ctx context.Context, customerID string) ([]coupon.Coupon, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	rows, err := l.pool.Query(ctx, listCouponsByCustomerSQL, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, errors.Wrap(err, "scan coupons")
	}
	return coupons, nil
}

// FindClaim returns the coupon claimed from the program, or voucher.ErrClaimNotFound.
func (l *ClaimLedger) FindClaim(ctx context.Context, customerID, programID string) (*coupon.Coupon, error) {
	c, err := l.one(ctx, getClaimSQL, customerID, programID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, voucher.ErrClaimNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find claim %q", programID)
	}
	return c, nil
}

// InsertIfAbsent stores c unless the customer already claimed the program.
// When the insert loses a race the winner's coupon is returned.
func (l *ClaimLedger) InsertIfAbsent(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, bool, error) {
	stored, err := l.one(ctx, insertClaimSQL,
		c.Code, c.CustomerID, c.ProgramID, string(c.Type), c.Discount, c.Description,
		c.MinOrder, c.MaxDiscount, c.ValidUntil, c.ClaimedAt,
	)
	switch {
	case err == nil:
		return stored, true, nil
	case isUniqueViolation(err, couponCodeConstraint):
		return nil, false, voucher.ErrCodeTaken
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, false, errors.Wrap(err, "insert claim")
	}

	// DO NOTHING fired: the pair is already claimed.
	existing, err := l.FindClaim(ctx, c.CustomerID, c.ProgramID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// CodeExists reports whether any customer holds the code.
func (l *ClaimLedger) CodeExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	var exists bool
	if err := l.pool.QueryRow(ctx, couponCodeExistsSQL, code).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "check coupon code")
	}
	return exists, nil
}

func (l *ClaimLedger) one(ctx context.Context, sql string, args ...any) (*coupon.Coupon, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	rows, err := l.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.Code, &c.CustomerID, &c.ProgramID, &discountType, &c.Discount, &c.Description,
		&c.MinOrder, &c.MaxDiscount, &c.ValidUntil, &c.ClaimedAt,
	)
	c.Type = coupon.DiscountType(discountType)
	return c, err
}
