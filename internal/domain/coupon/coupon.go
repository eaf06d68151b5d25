package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal, optionally capped.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount. It is not capped by the subtotal;
	// order assembly clamps the final total instead.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrInvalidCoupon is returned when a code does not belong to the customer.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrMinOrderNotMet is returned when the subtotal is below the coupon minimum.
	ErrMinOrderNotMet = errors.New("minimum order not met for this coupon")
	// ErrCouponExpired is returned when the coupon is past its validity date.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrNoDiscount is returned for coupons whose title yielded no discount.
	ErrNoDiscount = errors.New("coupon grants no discount")
	// ErrCouponRedeemed is returned when the coupon was already spent on an order.
	ErrCouponRedeemed = errors.New("coupon already redeemed")
)

// ValidationError wraps a coupon rejection that blocks the user action
// without side effects.
type ValidationError struct {
	Code string
	Err  error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Coupon is a claimed, customer-specific discount with a unique redemption
// code. It is created once when a voucher program is claimed and never
// mutated afterwards.
type Coupon struct {
	Code        string          `json:"code"`
	ProgramID   string          `json:"program_id"`
	CustomerID  string          `json:"customer_id"`
	Type        DiscountType    `json:"type"`
	Discount    decimal.Decimal `json:"discount"`
	Description string          `json:"description"`
	// MinOrder is the minimum subtotal. Zero means no minimum.
	MinOrder decimal.Decimal `json:"min_order"`
	// MaxDiscount caps percentage savings. Nil means uncapped.
	MaxDiscount *decimal.Decimal `json:"max_discount,omitempty"`
	ValidUntil  time.Time        `json:"valid_until"`
	ClaimedAt   time.Time        `json:"claimed_at"`
}

// Expired reports whether the coupon can no longer be used at now.
func (c *Coupon) Expired(now time.Time) bool {
	return !c.ValidUntil.IsZero() && now.After(c.ValidUntil)
}

// Clone returns a deep copy that shares no pointers with c.
func (c *Coupon) Clone() *Coupon {
	if c == nil {
		return nil
	}
	cp := *c
	if c.MaxDiscount != nil {
		limit := *c.MaxDiscount
		cp.MaxDiscount = &limit
	}
	return &cp
}

// Repository provides read access to claimed coupons.
type Repository interface {
	// FindByCode returns the customer's coupon with the given code, or
	// ErrInvalidCoupon when the customer holds no such coupon.
	FindByCode(ctx context.Context, customerID, code string) (*Coupon, error)
	// ListByCustomer returns every coupon the customer has claimed, oldest first.
	ListByCustomer(ctx context.Context, customerID string) ([]Coupon, error)
}

// RedemptionLog records which coupons have been spent. Each coupon can be
// redeemed by exactly one order.
type RedemptionLog interface {
	// RedeemedCodes returns the codes the customer has already spent.
	RedeemedCodes(ctx context.Context, customerID string) (map[string]struct{}, error)
}
