package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	"github.com/bowenSteve/kipsunya-biz/pkg/metrics"
	"github.com/bowenSteve/kipsunya-biz/pkg/outbox"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier delivers best-effort messages after a lifecycle move commits.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, order *models.Order, previous enums.OrderStatus) error
}

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ChangeStatusInput carries one lifecycle move request.
type ChangeStatusInput struct {
	OrderID        uuid.UUID
	NewStatus      enums.OrderStatus
	Note           string
	TrackingNumber *string
	Actor          Actor
}

// BulkChangeStatusInput applies one lifecycle move across many orders.
type BulkChangeStatusInput struct {
	OrderIDs  []uuid.UUID
	NewStatus enums.OrderStatus
	Note      string
	Actor     Actor
}

// BulkResult reports which orders moved and which did not. A rejected order
// never blocks the rest of the batch.
type BulkResult struct {
	Orders   []models.Order `json:"orders"`
	Failures []string       `json:"failures,omitempty"`
}

// StatusChangedEvent is the outbox payload for a lifecycle move.
type StatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	NewStatus      enums.OrderStatus `json:"new_status"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
}

// Service defines the order store and lifecycle operations.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, page types.Page) (types.Paginated[models.Order], error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, page types.Page) (types.Paginated[models.Order], error)
	ListAll(ctx context.Context, page types.Page) (types.Paginated[models.Order], error)
	VendorSummary(ctx context.Context, vendorID uuid.UUID) (*VendorSummary, error)

	ChangeStatus(ctx context.Context, input ChangeStatusInput) (*models.Order, error)
	// ChangeStatusTx performs the move inside an existing transaction so a
	// caller can commit it atomically with its own writes.
	ChangeStatusTx(ctx context.Context, tx *gorm.DB, input ChangeStatusInput) (*models.Order, error)
	// BulkChangeStatus applies the same move to each order independently,
	// one transaction per order.
	BulkChangeStatus(ctx context.Context, input BulkChangeStatusInput) (*BulkResult, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	notifier Notifier
	metrics  *metrics.CommerceMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, notifier Notifier, commerceMetrics *metrics.CommerceMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		notifier: notifier,
		metrics:  commerceMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	return entries, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, page types.Page) (types.Paginated[models.Order], error) {
	page = page.Normalize()
	orders, total, err := s.repo.ListByCustomer(ctx, customerID, page)
	if err != nil {
		return types.Paginated[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return paginated(orders, total, page), nil
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, page types.Page) (types.Paginated[models.Order], error) {
	page = page.Normalize()
	orders, total, err := s.repo.ListByVendor(ctx, vendorID, page)
	if err != nil {
		return types.Paginated[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return paginated(orders, total, page), nil
}

func (s *service) ListAll(ctx context.Context, page types.Page) (types.Paginated[models.Order], error) {
	page = page.Normalize()
	orders, total, err := s.repo.ListAll(ctx, page)
	if err != nil {
		return types.Paginated[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return paginated(orders, total, page), nil
}

func (s *service) VendorSummary(ctx context.Context, vendorID uuid.UUID) (*VendorSummary, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	summary, err := s.repo.VendorSummary(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor summary")
	}
	return summary, nil
}

func (s *service) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*models.Order, error) {
	var (
		order    *models.Order
		previous enums.OrderStatus
		moved    bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, prev, didMove, err := s.changeStatusTx(ctx, tx, input)
		if err != nil {
			return err
		}
		order, previous, moved = changed, prev, didMove
		return nil
	})
	if err != nil {
		return nil, err
	}
	if moved && s.notifier != nil {
		if err := s.notifier.OrderStatusChanged(ctx, order, previous); err != nil && s.logg != nil {
			s.logg.Error(ctx, "order status notification failed", err)
		}
	}
	return order, nil
}

func (s *service) BulkChangeStatus(ctx context.Context, input BulkChangeStatusInput) (*BulkResult, error) {
	if len(input.OrderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order id required")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", input.NewStatus))
	}

	result := &BulkResult{}
	var failed error
	for _, orderID := range input.OrderIDs {
		order, err := s.ChangeStatus(ctx, ChangeStatusInput{
			OrderID:   orderID,
			NewStatus: input.NewStatus,
			Note:      input.Note,
			Actor:     input.Actor,
		})
		if err != nil {
			failed = multierr.Append(failed, fmt.Errorf("order %s: %w", orderID, err))
			continue
		}
		result.Orders = append(result.Orders, *order)
	}
	for _, err := range multierr.Errors(failed) {
		result.Failures = append(result.Failures, err.Error())
	}
	if failed != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "failures", result.Failures), "bulk status change skipped orders")
	}
	return result, nil
}

func (s *service) ChangeStatusTx(ctx context.Context, tx *gorm.DB, input ChangeStatusInput) (*models.Order, error) {
	order, _, _, err := s.changeStatusTx(ctx, tx, input)
	return order, err
}

func (s *service) changeStatusTx(ctx context.Context, tx *gorm.DB, input ChangeStatusInput) (*models.Order, enums.OrderStatus, bool, error) {
	if input.OrderID == uuid.Nil {
		return nil, "", false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.NewStatus.IsValid() {
		return nil, "", false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", input.NewStatus))
	}

	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	previous := order.Status

	// Same-status updates append a note to the audit trail without moving
	// the order.
	if input.NewStatus == previous {
		entry := &models.OrderStatusHistory{
			OrderID:        order.ID,
			PreviousStatus: previous,
			NewStatus:      previous,
			Note:           input.Note,
		}
		if input.Actor.UserID != uuid.Nil {
			actorID := input.Actor.UserID
			entry.ChangedByID = &actorID
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return nil, "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order note")
		}
		return order, previous, false, nil
	}

	if !previous.CanTransitionTo(input.NewStatus) {
		return nil, "", false, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move order from %s to %s", previous, input.NewStatus)).
			WithDetails(map[string]any{
				"from":    previous,
				"to":      input.NewStatus,
				"allowed": previous.AllowedTransitions(),
			})
	}

	now := s.now()
	order.Status = input.NewStatus
	switch input.NewStatus {
	case enums.OrderStatusConfirmed:
		if order.ConfirmedAt == nil {
			order.ConfirmedAt = &now
		}
	case enums.OrderStatusShipped:
		if order.ShippedAt == nil {
			order.ShippedAt = &now
		}
		if input.TrackingNumber != nil && *input.TrackingNumber != "" {
			order.TrackingNumber = input.TrackingNumber
		}
	case enums.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
	case enums.OrderStatusRefunded:
		order.PaymentStatus = enums.PaymentStatusRefunded
	}

	if err := repo.Save(ctx, order); err != nil {
		return nil, "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
	}

	entry := &models.OrderStatusHistory{
		OrderID:        order.ID,
		PreviousStatus: previous,
		NewStatus:      input.NewStatus,
		Note:           input.Note,
	}
	if input.Actor.UserID != uuid.Nil {
		actorID := input.Actor.UserID
		entry.ChangedByID = &actorID
	}
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return nil, "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}

	event := outbox.DomainEvent{
		EventType:     enums.OutboxEventOrderStatusChanged,
		AggregateType: enums.OutboxAggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: StatusChangedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			PreviousStatus: previous,
			NewStatus:      input.NewStatus,
			TrackingNumber: order.TrackingNumber,
		},
	}
	if input.Actor.UserID != uuid.Nil {
		event.Actor = &outbox.ActorRef{UserID: input.Actor.UserID, Role: input.Actor.Role.String()}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
	}

	s.metrics.IncTransition(input.NewStatus.String())
	return order, previous, true, nil
}

func paginated(orders []models.Order, total int64, page types.Page) types.Paginated[models.Order] {
	return types.Paginated[models.Order]{
		Items:      orders,
		TotalCount: total,
		Page:       page.Number,
		PageSize:   page.Size,
	}
}
