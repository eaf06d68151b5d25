package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/voucher-checkout/internal/domain/cart"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	customer := customerID(r)
	items, err := h.carts.Items(r.Context(), customer)
	if err != nil {
		fail(w, r, err)
		return
	}
	note, err := h.carts.Note(r.Context(), customer)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, items, note) })
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	req := cart.AddItemRequest{Quantity: 1, InStock: true}
	var hasPrice bool
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			req.ProductID, err = d.Str()
		case "name":
			req.Name, err = d.Str()
		case "price":
			req.Price, err = decodeDecimal(d)
			hasPrice = err == nil
		case "original_price":
			var p decimal.Decimal
			if p, err = decodeDecimal(d); err == nil {
				req.OriginalPrice = &p
			}
		case "quantity":
			req.Quantity, err = d.Int()
		case "in_stock":
			req.InStock, err = d.Bool()
		case "max_quantity":
			req.MaxQuantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}
	switch {
	case req.ProductID == "":
		fail(w, r, badRequest("product_id is required"))
		return
	case !hasPrice || req.Price.IsNegative():
		fail(w, r, badRequest("price must be a non-negative number"))
		return
	}

	item, err := h.carts.AddItem(r.Context(), customerID(r), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCartItem(e, item) })
}

// updateCartItem sets a line's quantity. Zero removes the line and answers
// 204.
func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	quantity := -1
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		v, err := d.Int()
		quantity = v
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}

	item, err := h.carts.UpdateQuantity(r.Context(), customerID(r), chi.URLParam(r, "itemID"), quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCartItem(e, item) })
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.RemoveItem(r.Context(), customerID(r), chi.URLParam(r, "itemID")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setNote(w http.ResponseWriter, r *http.Request) {
	var note string
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "note" {
			return d.Skip()
		}
		v, err := d.Str()
		note = v
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}
	if err := h.carts.SetNote(r.Context(), customerID(r), note); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
