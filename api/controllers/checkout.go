package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bowenSteve/kipsunya-biz/api/responses"
	"github.com/bowenSteve/kipsunya-biz/api/validators"
	"github.com/bowenSteve/kipsunya-biz/internal/authz"
	checkoutsvc "github.com/bowenSteve/kipsunya-biz/internal/checkout"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
)

type checkoutRequest struct {
	ShippingAddress string          `json:"shipping_address" validate:"required"`
	ShippingCity    string          `json:"shipping_city,omitempty"`
	ShippingPhone   string          `json:"shipping_phone" validate:"required"`
	Notes           string          `json:"notes,omitempty"`
	PaymentMethod   string          `json:"payment_method" validate:"required"`
	ShippingCost    decimal.Decimal `json:"shipping_cost,omitempty"`
	DiscountAmount  decimal.Decimal `json:"discount_amount,omitempty"`
}

// Checkout turns the caller's cart into a pending order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !authz.CanCheckout(who.Role) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can checkout"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.Execute(r.Context(), checkoutsvc.Input{
			UserID:          who.UserID,
			ShippingAddress: payload.ShippingAddress,
			ShippingCity:    payload.ShippingCity,
			ShippingPhone:   payload.ShippingPhone,
			Notes:           payload.Notes,
			PaymentMethod:   method,
			ShippingCost:    payload.ShippingCost,
			DiscountAmount:  payload.DiscountAmount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
