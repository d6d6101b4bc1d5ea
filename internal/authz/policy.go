package authz

import (
	"github.com/google/uuid"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
)

// Policy decisions for the commerce flows. Handlers resolve the actor from
// the request context and ask before invoking a service.

// CanCheckout reports whether the role may place orders.
func CanCheckout(role enums.UserRole) bool {
	return role == enums.UserRoleCustomer
}

// CanChangeOrderStatus reports whether the role may move an order from its
// current status to the target. Admins may perform any valid transition;
// vendors drive fulfilment on their own orders; customers may only cancel,
// and only while the order is still pending or confirmed.
func CanChangeOrderStatus(role enums.UserRole, current, target enums.OrderStatus) bool {
	switch role {
	case enums.UserRoleAdmin:
		return true
	case enums.UserRoleVendor:
		switch target {
		case enums.OrderStatusConfirmed,
			enums.OrderStatusProcessing,
			enums.OrderStatusShipped,
			enums.OrderStatusDelivered,
			enums.OrderStatusCancelled:
			return true
		}
		return false
	case enums.UserRoleCustomer:
		if target != enums.OrderStatusCancelled {
			return false
		}
		return current == enums.OrderStatusPending || current == enums.OrderStatusConfirmed
	}
	return false
}

// CanViewOrder reports whether the actor may read the order. Vendor access is
// granted when any order line belongs to them.
func CanViewOrder(userID uuid.UUID, role enums.UserRole, order *models.Order) bool {
	if order == nil {
		return false
	}
	switch role {
	case enums.UserRoleAdmin:
		return true
	case enums.UserRoleCustomer:
		return order.CustomerID == userID
	case enums.UserRoleVendor:
		for _, item := range order.Items {
			if item.VendorID == userID {
				return true
			}
		}
	}
	return false
}

// CanRequestRefund reports whether the role may open refund requests.
func CanRequestRefund(role enums.UserRole) bool {
	return role == enums.UserRoleCustomer
}

// CanProcessRefund reports whether the role may decide refund requests.
func CanProcessRefund(role enums.UserRole) bool {
	return role == enums.UserRoleAdmin
}

// CanViewRefund reports whether the actor may read the refund.
func CanViewRefund(userID uuid.UUID, role enums.UserRole, refund *models.OrderRefund) bool {
	if refund == nil {
		return false
	}
	if role == enums.UserRoleAdmin {
		return true
	}
	return refund.RequestedByID == userID
}
