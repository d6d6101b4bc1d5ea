package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bowenSteve/kipsunya-biz/api/responses"
	"github.com/bowenSteve/kipsunya-biz/api/validators"
	"github.com/bowenSteve/kipsunya-biz/internal/authz"
	refundsvc "github.com/bowenSteve/kipsunya-biz/internal/refunds"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
)

type refundRequestBody struct {
	Reason string          `json:"reason" validate:"required"`
	Amount decimal.Decimal `json:"amount,omitempty"`
}

type refundDecisionBody struct {
	Status        string          `json:"status" validate:"required,oneof=approved rejected completed"`
	ProcessingFee decimal.Decimal `json:"processing_fee,omitempty"`
}

// RefundRequest opens a refund against a delivered order.
func RefundRequest(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !authz.CanRequestRefund(who.Role) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can request refunds"))
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Request(r.Context(), refundsvc.RequestInput{
			OrderID:     orderID,
			RequestedBy: who.UserID,
			Reason:      payload.Reason,
			Amount:      payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, refund)
	}
}

// RefundProcess records an admin decision on a refund request.
func RefundProcess(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !authz.CanProcessRefund(who.Role) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin account required"))
			return
		}
		refundID, err := uuidParam(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundDecisionBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseRefundStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid refund status"))
			return
		}

		refund, err := svc.Process(r.Context(), refundsvc.ProcessInput{
			RefundID:      refundID,
			NewStatus:     status,
			ProcessedBy:   who.UserID,
			ProcessorRole: who.Role,
			ProcessingFee: payload.ProcessingFee,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, refund)
	}
}

func RefundDetail(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refundID, err := uuidParam(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Get(r.Context(), refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !authz.CanViewRefund(who.UserID, who.Role, refund) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "refund not accessible"))
			return
		}

		responses.WriteSuccess(w, refund)
	}
}

func RefundList(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := pageFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if who.Role == enums.UserRoleAdmin {
			result, err := svc.ListAll(r.Context(), page)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
			return
		}

		result, err := svc.ListForRequester(r.Context(), who.UserID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
