package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
)

// Order is an immutable snapshot of a completed checkout. Nothing in it
// references live cart state.
type Order struct {
	ID            uuid.UUID      `json:"id"`
	CustomerID    string         `json:"customer_id"`
	OrderCode     string         `json:"order_code"`
	CreatedAt     time.Time      `json:"created_at"`
	Contact       Contact        `json:"contact"`
	Address       Address        `json:"address"`
	Items         []Item         `json:"items"`
	Shipping      ShippingLine   `json:"shipping"`
	Payment       PaymentLine    `json:"payment"`
	AppliedCoupon *coupon.Coupon `json:"applied_coupon,omitempty"`
	Summary       Summary        `json:"summary"`
	Note          string         `json:"note,omitempty"`
}

// Contact is the buyer's contact details at checkout.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Address is the delivery address at checkout.
type Address struct {
	Street   string `json:"street"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city"`
}

// Item is a snapshot of one purchased cart line.
type Item struct {
	ProductID     string           `json:"product_id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Quantity      int              `json:"quantity"`
}

// ShippingLine records the chosen delivery method and its fee.
type ShippingLine struct {
	MethodID    string          `json:"method_id"`
	DisplayName string          `json:"display_name"`
	Duration    string          `json:"duration,omitempty"`
	Fee         decimal.Decimal `json:"fee"`
}

// PaymentLine records the chosen payment method with its fee and discount.
type PaymentLine struct {
	MethodID    string          `json:"method_id"`
	DisplayName string          `json:"display_name"`
	Fee         decimal.Decimal `json:"fee"`
	Discount    decimal.Decimal `json:"discount"`
}

// Summary holds every computed amount of an order.
type Summary struct {
	Subtotal             decimal.Decimal `json:"subtotal"`
	SavedAmount          decimal.Decimal `json:"saved_amount"`
	CouponDiscount       decimal.Decimal `json:"coupon_discount"`
	ShippingFee          decimal.Decimal `json:"shipping_fee"`
	PaymentFee           decimal.Decimal `json:"payment_fee"`
	PaymentDiscount      decimal.Decimal `json:"payment_discount"`
	TotalBeforeDiscounts decimal.Decimal `json:"total_before_discounts"`
	Total                decimal.Decimal `json:"total"`
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = make([]Item, len(o.Items))
	for i := range o.Items {
		cp.Items[i] = o.Items[i]
		if o.Items[i].OriginalPrice != nil {
			p := *o.Items[i].OriginalPrice
			cp.Items[i].OriginalPrice = &p
		}
	}
	cp.AppliedCoupon = o.AppliedCoupon.Clone()
	return &cp
}

func snapshotItems(items []cart.Item) []Item {
	out := make([]Item, len(items))
	for i := range items {
		c := items[i].Clone()
		out[i] = Item{
			ProductID:     c.ProductID,
			Name:          c.Name,
			Price:         c.Price,
			OriginalPrice: c.OriginalPrice,
			Quantity:      c.Quantity,
		}
	}
	return out
}

// Repository is the local, synchronous order store. An Append that returns
// nil means the order is durably committed.
type Repository interface {
	Append(ctx context.Context, o *Order) error
}

// History lists a customer's committed orders, newest first.
type History interface {
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error)
}

// Mirror replicates orders to a remote durable store on a best-effort basis.
type Mirror interface {
	Mirror(ctx context.Context, o *Order) error
}

// SequenceStore owns the global order counter.
type SequenceStore interface {
	// NextSequence atomically sets the counter to counter%wrap+1 and
	// returns the new value. A missing counter counts as zero.
	NextSequence(ctx context.Context, wrap int) (int, error)
}
