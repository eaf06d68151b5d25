package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/voucher-checkout/internal/domain/checkout"
	"github.com/xenking/voucher-checkout/internal/domain/shipping"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (h *Handler) listShippingMethods(w http.ResponseWriter, _ *http.Request) {
	methods := h.methods.List()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, m := range methods {
				encodeShippingMethod(e, m)
			}
		})
	})
}

func (h *Handler) quoteShipping(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("method")
	if method == "" {
		method = shipping.MethodStandard
	}
	q, subtotal, err := h.checkout.QuoteShipping(r.Context(), customerID(r), method)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("method", func(e *jx.Encoder) { encodeShippingMethod(e, q.Method) })
			e.Field("fee", func(e *jx.Encoder) { encodeDecimal(e, q.Fee) })
			e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, subtotal) })
		})
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	req := checkout.PlaceOrderRequest{CustomerID: customerID(r)}
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "coupon_code":
			req.CouponCode, err = d.Str()
		case "shipping_method":
			req.ShippingMethod, err = d.Str()
		case "payment_method":
			req.PaymentMethod, err = d.Str()
		case "contact":
			err = decodeStringObject(d, map[string]*string{
				"name":  &req.Contact.Name,
				"phone": &req.Contact.Phone,
				"email": &req.Contact.Email,
			})
		case "address":
			err = decodeStringObject(d, map[string]*string{
				"street":   &req.Address.Street,
				"ward":     &req.Address.Ward,
				"district": &req.Address.District,
				"city":     &req.Address.City,
			})
		case "note":
			var note string
			if note, err = d.Str(); err == nil {
				req.Note = &note
			}
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}
	switch {
	case req.Contact.Name == "" || req.Contact.Phone == "":
		fail(w, r, badRequest("contact name and phone are required"))
		return
	case req.Address.Street == "" || req.Address.City == "":
		fail(w, r, badRequest("address street and city are required"))
		return
	}

	o, err := h.checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(w, r, badRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	orders, err := h.orders.ListByCustomer(r.Context(), customerID(r), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i])
			}
		})
	})
}
