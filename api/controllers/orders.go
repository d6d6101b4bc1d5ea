package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bowenSteve/kipsunya-biz/api/responses"
	"github.com/bowenSteve/kipsunya-biz/api/validators"
	"github.com/bowenSteve/kipsunya-biz/internal/authz"
	ordersvc "github.com/bowenSteve/kipsunya-biz/internal/orders"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
)

type changeStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	Note           string  `json:"note,omitempty"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
}

type bulkStatusRequest struct {
	OrderIDs []string `json:"order_ids" validate:"required,min=1,dive,uuid"`
	Status   string   `json:"status" validate:"required"`
	Note     string   `json:"note,omitempty"`
}

func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		switch who.Role {
		case enums.UserRoleAdmin:
			result, err := svc.ListAll(r.Context(), page)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
		case enums.UserRoleVendor:
			result, err := svc.ListForVendor(r.Context(), who.UserID, page)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
		default:
			result, err := svc.ListForCustomer(r.Context(), who.UserID, page)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
		}
	}
}

func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !authz.CanViewOrder(who.UserID, who.Role, order) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible"))
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func OrderHistory(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !authz.CanViewOrder(who.UserID, who.Role, order) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible"))
			return
		}

		entries, err := svc.History(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// OrderChangeStatus moves an order through its lifecycle.
func OrderChangeStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changeStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		newStatus, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !authz.CanViewOrder(who.UserID, who.Role, order) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible"))
			return
		}
		if !authz.CanChangeOrderStatus(who.Role, order.Status, newStatus) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "status change not permitted"))
			return
		}

		updated, err := svc.ChangeStatus(r.Context(), ordersvc.ChangeStatusInput{
			OrderID:        orderID,
			NewStatus:      newStatus,
			Note:           payload.Note,
			TrackingNumber: payload.TrackingNumber,
			Actor:          ordersvc.Actor{UserID: who.UserID, Role: who.Role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// OrderBulkChangeStatus applies one lifecycle move across a batch of orders.
// Each order succeeds or fails on its own.
func OrderBulkChangeStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		newStatus, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		ids := make([]uuid.UUID, 0, len(payload.OrderIDs))
		for _, raw := range payload.OrderIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
				return
			}
			ids = append(ids, id)
		}

		result, err := svc.BulkChangeStatus(r.Context(), ordersvc.BulkChangeStatusInput{
			OrderIDs:  ids,
			NewStatus: newStatus,
			Note:      payload.Note,
			Actor:     ordersvc.Actor{UserID: who.UserID, Role: who.Role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func VendorOrderSummary(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.VendorSummary(r.Context(), who.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
