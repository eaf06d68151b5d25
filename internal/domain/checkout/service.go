// Package checkout turns a customer's cart into a placed order.
package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/order"
	"github.com/xenking/voucher-checkout/internal/domain/shipping"
)

// CartStore is the slice of cart behaviour checkout needs.
type CartStore interface {
	Items(ctx context.Context, customerID string) ([]cart.Item, error)
	Note(ctx context.Context, customerID string) (string, error)
	Clear(ctx context.Context, customerID string) error
}

// Coupons validates and selects the customer's coupons.
type Coupons interface {
	Lookup(ctx context.Context, customerID, code string) (*coupon.Coupon, error)
	Validate(ctx context.Context, customerID, code string, subtotal decimal.Decimal) (*coupon.Coupon, coupon.Savings, error)
	Best(ctx context.Context, customerID string, subtotal decimal.Decimal) (*coupon.Coupon, coupon.Savings, bool, error)
}

// Finalizer commits an order.
type Finalizer interface {
	Finalize(ctx context.Context, req order.FinalizeRequest) (*order.Order, error)
}

// Service coordinates cart, coupons and order assembly.
type Service struct {
	carts     CartStore
	coupons   Coupons
	shipping  *shipping.Resolver
	finalizer Finalizer
}

// NewService creates a checkout Service.
func NewService(carts CartStore, coupons Coupons, resolver *shipping.Resolver, finalizer Finalizer) *Service {
	return &Service{
		carts:     carts,
		coupons:   coupons,
		shipping:  resolver,
		finalizer: finalizer,
	}
}

// PlaceOrderRequest is the customer's checkout submission.
type PlaceOrderRequest struct {
	CustomerID     string
	CouponCode     string
	ShippingMethod string
	PaymentMethod  string
	Contact        order.Contact
	Address        order.Address
	// Note overrides the cart's draft note when set.
	Note *string
}

// PlaceOrder finalizes the customer's cart. The cart and draft note are
// cleared only after the order is committed; a failed clear is logged and
// leaves the placed order intact.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*order.Order, error) {
	items, err := s.carts.Items(ctx, req.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	note := ""
	if req.Note != nil {
		note = *req.Note
	} else if note, err = s.carts.Note(ctx, req.CustomerID); err != nil {
		return nil, errors.Wrap(err, "load note")
	}

	var applied *coupon.Coupon
	if req.CouponCode != "" {
		if applied, err = s.coupons.Lookup(ctx, req.CustomerID, req.CouponCode); err != nil {
			return nil, err
		}
	}

	o, err := s.finalizer.Finalize(ctx, order.FinalizeRequest{
		CustomerID:     req.CustomerID,
		Items:          items,
		Coupon:         applied,
		ShippingMethod: req.ShippingMethod,
		PaymentMethod:  req.PaymentMethod,
		Contact:        req.Contact,
		Address:        req.Address,
		Note:           note,
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, req.CustomerID); err != nil {
		zctx.From(ctx).Error("Clear cart after checkout",
			zap.String("customer_id", req.CustomerID),
			zap.String("order_code", o.OrderCode),
			zap.Error(err),
		)
	}
	return o, nil
}

// Applied is a coupon evaluated against the current cart.
type Applied struct {
	Coupon   *coupon.Coupon
	Savings  decimal.Decimal
	Subtotal decimal.Decimal
}

// ApplyCoupon validates a code against the customer's current cart.
func (s *Service) ApplyCoupon(ctx context.Context, customerID, code string) (*Applied, error) {
	subtotal, err := s.subtotal(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c, savings, err := s.coupons.Validate(ctx, customerID, code, subtotal)
	if err != nil {
		return nil, err
	}
	return &Applied{Coupon: c, Savings: savings.Amount, Subtotal: subtotal}, nil
}

// BestCoupon picks the most beneficial coupon for the current cart.
// ok is false when no coupon saves anything.
func (s *Service) BestCoupon(ctx context.Context, customerID string) (_ *Applied, ok bool, _ error) {
	subtotal, err := s.subtotal(ctx, customerID)
	if err != nil {
		return nil, false, err
	}
	c, savings, ok, err := s.coupons.Best(ctx, customerID, subtotal)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Applied{Coupon: c, Savings: savings.Amount, Subtotal: subtotal}, true, nil
}

// QuoteShipping returns the shipping quote for the current cart.
func (s *Service) QuoteShipping(ctx context.Context, customerID, methodID string) (shipping.Quote, decimal.Decimal, error) {
	subtotal, err := s.subtotal(ctx, customerID)
	if err != nil {
		return shipping.Quote{}, decimal.Zero, err
	}
	q, err := s.shipping.Quote(methodID, subtotal)
	if err != nil {
		return shipping.Quote{}, decimal.Zero, err
	}
	return q, subtotal, nil
}

func (s *Service) subtotal(ctx context.Context, customerID string) (decimal.Decimal, error) {
	items, err := s.carts.Items(ctx, customerID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "load cart")
	}
	return cart.Subtotal(items), nil
}
