package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/order"
	"github.com/xenking/voucher-checkout/internal/domain/payment"
	"github.com/xenking/voucher-checkout/internal/domain/shipping"
	"github.com/xenking/voucher-checkout/internal/domain/voucher"
)

const msgRetryOrder = "could not complete the order, please retry"

func writeError(w http.ResponseWriter, status int, message, reason string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
			if reason != "" {
				e.Field("reason", func(e *jx.Encoder) { e.Str(reason) })
			}
		})
	})
}

// fail maps domain errors to HTTP responses. Anything unrecognised is logged
// and reported as a 500 without leaking details.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badReq       *badRequestError
		invalid      *coupon.ValidationError
		precondition *order.PreconditionError
		notFound     *voucher.NotFoundError
		storage      *order.StorageError
	)
	switch {
	case errors.As(err, &badReq):
		writeError(w, http.StatusBadRequest, badReq.Error(), "")
	case errors.As(err, &invalid):
		writeError(w, http.StatusUnprocessableEntity, invalid.Error(), couponReason(invalid.Err))
	case errors.Is(err, shipping.ErrUnknownMethod):
		writeError(w, http.StatusUnprocessableEntity, shipping.ErrUnknownMethod.Error(), "unknown_shipping_method")
	case errors.Is(err, payment.ErrUnknownMethod):
		writeError(w, http.StatusUnprocessableEntity, payment.ErrUnknownMethod.Error(), "unknown_payment_method")
	case errors.As(err, &precondition):
		reason := "empty_cart"
		if errors.Is(precondition, order.ErrOutOfStock) {
			reason = "out_of_stock"
		}
		writeError(w, http.StatusConflict, precondition.Error(), reason)
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, voucher.ErrProgramNotFound.Error(), "")
	case errors.Is(err, voucher.ErrProgramEnded):
		writeError(w, http.StatusGone, voucher.ErrProgramEnded.Error(), "")
	case errors.Is(err, voucher.ErrProgramNotStarted):
		writeError(w, http.StatusConflict, voucher.ErrProgramNotStarted.Error(), "program_not_started")
	case errors.Is(err, cart.ErrItemNotFound):
		writeError(w, http.StatusNotFound, cart.ErrItemNotFound.Error(), "")
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, cart.ErrInvalidQuantity.Error(), "")
	case errors.As(err, &storage):
		zctx.From(r.Context()).Error("Order storage failed", zap.String("op", storage.Op), zap.Error(storage.Err))
		writeError(w, http.StatusInternalServerError, msgRetryOrder, "")
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func couponReason(err error) string {
	switch {
	case errors.Is(err, coupon.ErrInvalidCoupon):
		return "invalid_coupon"
	case errors.Is(err, coupon.ErrMinOrderNotMet):
		return "min_order_not_met"
	case errors.Is(err, coupon.ErrCouponExpired):
		return "coupon_expired"
	case errors.Is(err, coupon.ErrCouponRedeemed):
		return "coupon_redeemed"
	case errors.Is(err, coupon.ErrNoDiscount):
		return "no_discount"
	default:
		return ""
	}
}
