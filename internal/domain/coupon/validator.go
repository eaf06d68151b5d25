package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// RepoValidator checks a customer's coupons against a cart subtotal using a
// Repository for lookups and a RedemptionLog to skip spent coupons.
type RepoValidator struct {
	repo     Repository
	redeemed RedemptionLog
	now      func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given stores.
func NewRepoValidator(repo Repository, redeemed RedemptionLog) *RepoValidator {
	return &RepoValidator{repo: repo, redeemed: redeemed, now: time.Now}
}

// NormalizeCode trims and upper-cases a code as typed by a customer.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the customer's coupon by code without checking the cart.
// Codes match case-insensitively. Unknown codes yield a ValidationError
// wrapping ErrInvalidCoupon, spent ones ErrCouponRedeemed.
func (v *RepoValidator) Lookup(ctx context.Context, customerID, code string) (*Coupon, error) {
	c, err := v.repo.FindByCode(ctx, customerID, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, &ValidationError{Code: code, Err: ErrInvalidCoupon}
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	spent, err := v.redeemed.RedeemedCodes(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list redemptions")
	}
	if _, ok := spent[c.Code]; ok {
		return nil, &ValidationError{Code: code, Err: ErrCouponRedeemed}
	}
	return c, nil
}

// Validate applies a coupon code to a subtotal at apply time. It rejects
// unknown, spent and expired codes, codes that grant nothing, and codes
// whose minimum order is not met.
func (v *RepoValidator) Validate(ctx context.Context, customerID, code string, subtotal decimal.Decimal) (*Coupon, Savings, error) {
	c, err := v.Lookup(ctx, customerID, code)
	if err != nil {
		return nil, Savings{}, err
	}
	if c.Expired(v.now()) {
		return nil, Savings{}, &ValidationError{Code: code, Err: ErrCouponExpired}
	}
	if !c.Discount.IsPositive() {
		return nil, Savings{}, &ValidationError{Code: code, Err: ErrNoDiscount}
	}

	s := ComputeSavings(c, subtotal)
	if !s.Eligible {
		return nil, Savings{}, &ValidationError{Code: code, Err: ErrMinOrderNotMet}
	}
	return c, s, nil
}

// Usable returns the customer's coupons that are neither expired nor spent.
func (v *RepoValidator) Usable(ctx context.Context, customerID string) ([]Coupon, error) {
	all, err := v.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	spent, err := v.redeemed.RedeemedCodes(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list redemptions")
	}

	now := v.now()
	usable := all[:0:0]
	for i := range all {
		if _, ok := spent[all[i].Code]; ok || all[i].Expired(now) {
			continue
		}
		usable = append(usable, all[i])
	}
	return usable, nil
}

// Best picks the most beneficial usable coupon for the subtotal.
func (v *RepoValidator) Best(ctx context.Context, customerID string, subtotal decimal.Decimal) (*Coupon, Savings, bool, error) {
	usable, err := v.Usable(ctx, customerID)
	if err != nil {
		return nil, Savings{}, false, err
	}
	best, s, ok := SelectBest(usable, subtotal)
	return best, s, ok, nil
}
