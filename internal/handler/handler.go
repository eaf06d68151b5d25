// Package handler exposes the checkout domain over HTTP.
//
// Customer identity is taken from the X-Customer-ID header, which the
// upstream auth layer sets after authenticating the caller.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/checkout"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/order"
	"github.com/xenking/voucher-checkout/internal/domain/shipping"
	"github.com/xenking/voucher-checkout/internal/domain/voucher"
	"github.com/xenking/voucher-checkout/pkg/httpmiddleware"
)

// Vouchers lists and claims voucher programs.
type Vouchers interface {
	ListClaimable(ctx context.Context, customerID string) ([]voucher.ClaimableProgram, error)
	Claim(ctx context.Context, programID, customerID string) (*coupon.Coupon, error)
}

// Coupons lists a customer's usable coupons.
type Coupons interface {
	Usable(ctx context.Context, customerID string) ([]coupon.Coupon, error)
}

// Carts mutates customer carts.
type Carts interface {
	Items(ctx context.Context, customerID string) ([]cart.Item, error)
	AddItem(ctx context.Context, customerID string, req cart.AddItemRequest) (*cart.Item, error)
	UpdateQuantity(ctx context.Context, customerID, itemID string, quantity int) (*cart.Item, error)
	RemoveItem(ctx context.Context, customerID, itemID string) error
	Note(ctx context.Context, customerID string) (string, error)
	SetNote(ctx context.Context, customerID, note string) error
}

// Checkout prices the cart and places orders.
type Checkout interface {
	ApplyCoupon(ctx context.Context, customerID, code string) (*checkout.Applied, error)
	BestCoupon(ctx context.Context, customerID string) (*checkout.Applied, bool, error)
	QuoteShipping(ctx context.Context, customerID, methodID string) (shipping.Quote, decimal.Decimal, error)
	PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*order.Order, error)
}

// ShippingMethods lists the delivery options.
type ShippingMethods interface {
	List() []shipping.Method
}

var (
	_ Vouchers        = (*voucher.ClaimService)(nil)
	_ Coupons         = (*coupon.RepoValidator)(nil)
	_ Carts           = (*cart.Service)(nil)
	_ Checkout        = (*checkout.Service)(nil)
	_ ShippingMethods = (*shipping.StaticCatalog)(nil)
)

// Handler serves the /api routes.
type Handler struct {
	vouchers Vouchers
	coupons  Coupons
	carts    Carts
	checkout Checkout
	orders   order.History
	methods  ShippingMethods
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	vouchers Vouchers,
	coupons Coupons,
	carts Carts,
	checkoutSvc Checkout,
	orders order.History,
	methods ShippingMethods,
) *Handler {
	return &Handler{
		vouchers: vouchers,
		coupons:  coupons,
		carts:    carts,
		checkout: checkoutSvc,
		orders:   orders,
		methods:  methods,
	}
}

// Register mounts the API under /api on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/shipping/methods", h.listShippingMethods)

		r.Group(func(r chi.Router) {
			r.Use(requireCustomer)

			r.Get("/vouchers", h.listVouchers)
			r.Post("/vouchers/{programID}/claim", h.claimVoucher)

			r.Get("/coupons", h.listCoupons)
			r.Post("/coupons/apply", h.applyCoupon)
			r.Get("/coupons/best", h.bestCoupon)

			r.Get("/cart", h.getCart)
			r.Post("/cart/items", h.addCartItem)
			r.Patch("/cart/items/{itemID}", h.updateCartItem)
			r.Delete("/cart/items/{itemID}", h.removeCartItem)
			r.Put("/cart/note", h.setNote)

			r.Get("/shipping/quote", h.quoteShipping)
			r.Post("/checkout", h.placeOrder)
			r.Get("/orders", h.listOrders)
		})
	})
}

type customerKey struct{}

func requireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(httpmiddleware.CustomerHeader)
		if id == "" {
			writeError(w, http.StatusUnauthorized, "missing customer identity", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), customerKey{}, id)))
	})
}

func customerID(r *http.Request) string {
	id, _ := r.Context().Value(customerKey{}).(string)
	return id
}
