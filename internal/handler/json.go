package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/voucher-checkout/internal/discountspec"
	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/checkout"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/order"
	"github.com/xenking/voucher-checkout/internal/domain/shipping"
	"github.com/xenking/voucher-checkout/internal/domain/voucher"
)

const maxBodyBytes = 64 << 10

// badRequestError is a malformed or incomplete request body.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// decodeObject walks the top-level fields of a JSON object body.
func decodeObject(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(io.LimitReader(r.Body, maxBodyBytes), 1024)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch tt := d.Next(); tt {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(string(n))
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, errors.Errorf("expected number, got %s", tt)
	}
}

func decodeStringObject(d *jx.Decoder, fields map[string]*string) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		dst, ok := fields[string(key)]
		if !ok {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("program_id", func(e *jx.Encoder) { e.Str(c.ProgramID) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(c.Type)) })
		e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, c.Discount) })
		e.Field("description", func(e *jx.Encoder) { e.Str(c.Description) })
		e.Field("min_order", func(e *jx.Encoder) { encodeDecimal(e, c.MinOrder) })
		if c.MaxDiscount != nil {
			e.Field("max_discount", func(e *jx.Encoder) { encodeDecimal(e, *c.MaxDiscount) })
		}
		if !c.ValidUntil.IsZero() {
			e.Field("valid_until", func(e *jx.Encoder) { encodeTime(e, c.ValidUntil) })
		}
		e.Field("claimed_at", func(e *jx.Encoder) { encodeTime(e, c.ClaimedAt) })
	})
}

func encodeSpec(e *jx.Encoder, s discountspec.Spec) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) { e.Str(string(s.Type)) })
		e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, s.Discount) })
		if s.MaxDiscount != nil {
			e.Field("max_discount", func(e *jx.Encoder) { encodeDecimal(e, *s.MaxDiscount) })
		}
	})
}

func encodeClaimable(e *jx.Encoder, p *voucher.ClaimableProgram) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.Program.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Program.Name) })
		e.Field("title", func(e *jx.Encoder) { e.Str(p.Program.Title) })
		e.Field("min_order", func(e *jx.Encoder) { encodeDecimal(e, p.Program.MinOrder) })
		e.Field("starts_at", func(e *jx.Encoder) { encodeTime(e, p.Program.StartsAt) })
		if p.Program.ExpiresAt != nil {
			e.Field("expires_at", func(e *jx.Encoder) { encodeTime(e, *p.Program.ExpiresAt) })
		}
		e.Field("discount", func(e *jx.Encoder) { encodeSpec(e, p.Spec) })
		e.Field("claimed", func(e *jx.Encoder) { e.Bool(p.Claimed()) })
		if p.Coupon != nil {
			e.Field("coupon", func(e *jx.Encoder) { encodeCoupon(e, p.Coupon) })
		}
	})
}

func encodeApplied(e *jx.Encoder, a *checkout.Applied) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("coupon", func(e *jx.Encoder) { encodeCoupon(e, a.Coupon) })
		e.Field("savings", func(e *jx.Encoder) { encodeDecimal(e, a.Savings) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, a.Subtotal) })
	})
}

func encodeCartItem(e *jx.Encoder, it *cart.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, it.Price) })
		if it.OriginalPrice != nil {
			e.Field("original_price", func(e *jx.Encoder) { encodeDecimal(e, *it.OriginalPrice) })
		}
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("in_stock", func(e *jx.Encoder) { e.Bool(it.InStock) })
		if it.MaxQuantity > 0 {
			e.Field("max_quantity", func(e *jx.Encoder) { e.Int(it.MaxQuantity) })
		}
		e.Field("line_total", func(e *jx.Encoder) { encodeDecimal(e, it.LineTotal()) })
	})
}

func encodeCart(e *jx.Encoder, items []cart.Item, note string) {
	saved := decimal.Zero
	for i := range items {
		saved = saved.Add(items[i].LineSaving())
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range items {
					encodeCartItem(e, &items[i])
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, cart.Subtotal(items)) })
		e.Field("saved_amount", func(e *jx.Encoder) { encodeDecimal(e, saved) })
		e.Field("note", func(e *jx.Encoder) { e.Str(note) })
	})
}

func encodeShippingMethod(e *jx.Encoder, m shipping.Method) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(m.ID) })
		e.Field("display_name", func(e *jx.Encoder) { e.Str(m.DisplayName) })
		e.Field("base_price", func(e *jx.Encoder) { encodeDecimal(e, m.BasePrice) })
		e.Field("duration", func(e *jx.Encoder) { e.Str(m.Duration) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID.String()) })
		e.Field("order_code", func(e *jx.Encoder) { e.Str(o.OrderCode) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("contact", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(o.Contact.Name) })
				e.Field("phone", func(e *jx.Encoder) { e.Str(o.Contact.Phone) })
				e.Field("email", func(e *jx.Encoder) { e.Str(o.Contact.Email) })
			})
		})
		e.Field("address", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("street", func(e *jx.Encoder) { e.Str(o.Address.Street) })
				e.Field("ward", func(e *jx.Encoder) { e.Str(o.Address.Ward) })
				e.Field("district", func(e *jx.Encoder) { e.Str(o.Address.District) })
				e.Field("city", func(e *jx.Encoder) { e.Str(o.Address.City) })
			})
		})
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, it.Price) })
						if it.OriginalPrice != nil {
							e.Field("original_price", func(e *jx.Encoder) { encodeDecimal(e, *it.OriginalPrice) })
						}
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
		e.Field("shipping", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("method_id", func(e *jx.Encoder) { e.Str(o.Shipping.MethodID) })
				e.Field("display_name", func(e *jx.Encoder) { e.Str(o.Shipping.DisplayName) })
				e.Field("duration", func(e *jx.Encoder) { e.Str(o.Shipping.Duration) })
				e.Field("fee", func(e *jx.Encoder) { encodeDecimal(e, o.Shipping.Fee) })
			})
		})
		e.Field("payment", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("method_id", func(e *jx.Encoder) { e.Str(o.Payment.MethodID) })
				e.Field("display_name", func(e *jx.Encoder) { e.Str(o.Payment.DisplayName) })
				e.Field("fee", func(e *jx.Encoder) { encodeDecimal(e, o.Payment.Fee) })
				e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, o.Payment.Discount) })
			})
		})
		if o.AppliedCoupon != nil {
			e.Field("applied_coupon", func(e *jx.Encoder) { encodeCoupon(e, o.AppliedCoupon) })
		}
		e.Field("summary", func(e *jx.Encoder) {
			s := o.Summary
			e.Obj(func(e *jx.Encoder) {
				e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, s.Subtotal) })
				e.Field("saved_amount", func(e *jx.Encoder) { encodeDecimal(e, s.SavedAmount) })
				e.Field("coupon_discount", func(e *jx.Encoder) { encodeDecimal(e, s.CouponDiscount) })
				e.Field("shipping_fee", func(e *jx.Encoder) { encodeDecimal(e, s.ShippingFee) })
				e.Field("payment_fee", func(e *jx.Encoder) { encodeDecimal(e, s.PaymentFee) })
				e.Field("payment_discount", func(e *jx.Encoder) { encodeDecimal(e, s.PaymentDiscount) })
				e.Field("total_before_discounts", func(e *jx.Encoder) { encodeDecimal(e, s.TotalBeforeDiscounts) })
				e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, s.Total) })
			})
		})
		if o.Note != "" {
			e.Field("note", func(e *jx.Encoder) { e.Str(o.Note) })
		}
	})
}
