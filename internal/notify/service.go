package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

// Service writes in-app notifications and serves the inbox. The write methods
// satisfy the notifier interfaces of the order, checkout and refund services.
type Service interface {
	OrderPlaced(ctx context.Context, order *models.Order) error
	NewOrderForVendor(ctx context.Context, order *models.Order, vendorID uuid.UUID) error
	OrderStatusChanged(ctx context.Context, order *models.Order, previous enums.OrderStatus) error
	RefundUpdate(ctx context.Context, refund *models.OrderRefund) error

	ListForUser(ctx context.Context, userID uuid.UUID, page types.Page) (types.Paginated[models.Notification], error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the notification service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) OrderPlaced(ctx context.Context, order *models.Order) error {
	return s.create(ctx, order.CustomerID, enums.NotificationOrderPlaced,
		fmt.Sprintf("Order %s placed", order.OrderNumber),
		fmt.Sprintf("We received your order for %s %s.", order.Currency, order.TotalAmount.StringFixed(2)),
		map[string]any{"order_id": order.ID, "order_number": order.OrderNumber})
}

func (s *service) NewOrderForVendor(ctx context.Context, order *models.Order, vendorID uuid.UUID) error {
	return s.create(ctx, vendorID, enums.NotificationNewOrderForVendor,
		fmt.Sprintf("New order %s", order.OrderNumber),
		"A customer ordered one or more of your products.",
		map[string]any{"order_id": order.ID, "order_number": order.OrderNumber})
}

func (s *service) OrderStatusChanged(ctx context.Context, order *models.Order, previous enums.OrderStatus) error {
	return s.create(ctx, order.CustomerID, enums.NotificationOrderStatusChanged,
		fmt.Sprintf("Order %s is now %s", order.OrderNumber, order.Status),
		fmt.Sprintf("Your order moved from %s to %s.", previous, order.Status),
		map[string]any{
			"order_id":        order.ID,
			"order_number":    order.OrderNumber,
			"previous_status": previous,
			"new_status":      order.Status,
		})
}

func (s *service) RefundUpdate(ctx context.Context, refund *models.OrderRefund) error {
	return s.create(ctx, refund.RequestedByID, enums.NotificationRefundUpdate,
		fmt.Sprintf("Refund %s %s", refund.RefundNumber, refund.Status),
		fmt.Sprintf("Your refund request is now %s.", refund.Status),
		map[string]any{
			"refund_id":     refund.ID,
			"refund_number": refund.RefundNumber,
			"status":        refund.Status,
		})
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page types.Page) (types.Paginated[models.Notification], error) {
	page = page.Normalize()
	notifications, total, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return types.Paginated[models.Notification]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return types.Paginated[models.Notification]{
		Items:      notifications,
		TotalCount: total,
		Page:       page.Number,
		PageSize:   page.Size,
	}, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	if err := s.repo.MarkRead(ctx, userID, notificationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return nil
}

func (s *service) create(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, body string, metadata map[string]any) error {
	if userID == uuid.Nil {
		return nil
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return s.repo.Create(ctx, &models.Notification{
		UserID:   userID,
		Type:     kind,
		Title:    title,
		Body:     body,
		Metadata: payload,
	})
}
