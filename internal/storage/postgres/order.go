package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, order_code, customer_id, total, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	listOrdersByCustomerSQL = `SELECT snapshot FROM orders
		WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2`

	insertRedemptionSQL = `INSERT INTO coupon_redemptions (code, customer_id, order_id, redeemed_at)
		VALUES ($1, $2, $3, $4)`

	listRedeemedCodesSQL = `SELECT code FROM coupon_redemptions WHERE customer_id = $1`

	redemptionConstraint = "coupon_redemptions_pkey"

	nextSequenceSQL = `INSERT INTO order_sequence (id, value) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET value = order_sequence.value % $1 + 1
		RETURNING value`
)

var (
	_ order.Repository     = (*OrderStore)(nil)
	_ order.History        = (*OrderStore)(nil)
	_ coupon.RedemptionLog = (*OrderStore)(nil)
	_ order.SequenceStore  = (*Sequence)(nil)
)

// OrderStore is the local, synchronous order store. The whole order is kept
// as a JSONB snapshot next to the columns used for lookups.
type OrderStore struct {
	conn
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool, timeout time.Duration) *OrderStore {
	return &OrderStore{conn: conn{pool: pool, timeout: timeout}}
}

// Append commits the order and, when a coupon was applied, its redemption
// in one transaction. A coupon redeemed by an earlier order rolls back both.
func (s *OrderStore) Append(ctx context.Context, o *order.Order) error {
	snapshot, err := json.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "marshal order")
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.OrderCode, o.CustomerID, o.Summary.Total, snapshot, o.CreatedAt,
		); err != nil {
			return errors.Wrapf(err, "insert order %s", o.OrderCode)
		}

		c := o.AppliedCoupon
		if c == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, insertRedemptionSQL, c.Code, o.CustomerID, o.ID, o.CreatedAt); err != nil {
			if isUniqueViolation(err, redemptionConstraint) {
				return &coupon.ValidationError{Code: c.Code, Err: coupon.ErrCouponRedeemed}
			}
			return errors.Wrapf(err, "redeem coupon %s", c.Code)
		}
		return nil
	})
}

// RedeemedCodes returns the codes the customer has spent on orders.
func (s *OrderStore) RedeemedCodes(ctx context.Context, customerID string) (map[string]struct{}, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, listRedeemedCodesSQL, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list redemptions")
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "scan redemptions")
	}
	out := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		out[code] = struct{}{}
	}
	return out, nil
}

// ListByCustomer returns the customer's most recent orders, newest first.
func (s *OrderStore) ListByCustomer(ctx context.Context, customerID string, limit int) ([]order.Order, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, listOrdersByCustomerSQL, customerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var (
			raw []byte
			o   order.Order
		)
		if err := row.Scan(&raw); err != nil {
			return o, err
		}
		return o, json.Unmarshal(raw, &o)
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return orders, nil
}

// Sequence is the global order counter kept in a single row.
type Sequence struct {
	conn
}

// NewSequence returns a Sequence that uses the given pool.
func NewSequence(pool *pgxpool.Pool, timeout time.Duration) *Sequence {
	return &Sequence{conn: conn{pool: pool, timeout: timeout}}
}

// NextSequence increments the counter in one statement, so concurrent
// callers serialize on the row lock and never see the same value.
func (s *Sequence) NextSequence(ctx context.Context, wrap int) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var value int
	if err := s.pool.QueryRow(ctx, nextSequenceSQL, wrap).Scan(&value); err != nil {
		return 0, errors.Wrap(err, "next order sequence")
	}
	return value, nil
}
