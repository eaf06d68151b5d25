package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	programs, err := h.vouchers.ListClaimable(r.Context(), customerID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range programs {
				encodeClaimable(e, &programs[i])
			}
		})
	})
}

// claimVoucher is idempotent: claiming a program again returns the coupon
// from the first claim.
func (h *Handler) claimVoucher(w http.ResponseWriter, r *http.Request) {
	c, err := h.vouchers.Claim(r.Context(), chi.URLParam(r, "programID"), customerID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, c) })
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.Usable(r.Context(), customerID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range coupons {
				encodeCoupon(e, &coupons[i])
			}
		})
	})
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var code string
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		v, err := d.Str()
		code = v
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}
	if code == "" {
		fail(w, r, badRequest("code is required"))
		return
	}

	applied, err := h.checkout.ApplyCoupon(r.Context(), customerID(r), code)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeApplied(e, applied) })
}

func (h *Handler) bestCoupon(w http.ResponseWriter, r *http.Request) {
	applied, ok, err := h.checkout.BestCoupon(r.Context(), customerID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeApplied(e, applied) })
}
