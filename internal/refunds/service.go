package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/internal/orders"
	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	"github.com/bowenSteve/kipsunya-biz/pkg/metrics"
	"github.com/bowenSteve/kipsunya-biz/pkg/outbox"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

// numberKind tags refund numbers, e.g. REF-2026-08-1000.
const numberKind = "REF"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// orderLifecycle is the slice of the order service refunds depend on.
type orderLifecycle interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ChangeStatusTx(ctx context.Context, tx *gorm.DB, input orders.ChangeStatusInput) (*models.Order, error)
}

// Notifier delivers best-effort refund updates after commit.
type Notifier interface {
	RefundUpdate(ctx context.Context, refund *models.OrderRefund) error
}

// RequestInput carries a customer's refund request.
type RequestInput struct {
	OrderID     uuid.UUID
	RequestedBy uuid.UUID
	Reason      string
	// Amount is optional; zero means refund the full order total.
	Amount decimal.Decimal
}

// ProcessInput carries an admin decision on a refund.
type ProcessInput struct {
	RefundID      uuid.UUID
	NewStatus     enums.RefundStatus
	ProcessedBy   uuid.UUID
	ProcessorRole enums.UserRole
	ProcessingFee decimal.Decimal
}

// RequestedEvent is the outbox payload for a new refund request.
type RequestedEvent struct {
	RefundID     uuid.UUID       `json:"refund_id"`
	RefundNumber string          `json:"refund_number"`
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
}

// ProcessedEvent is the outbox payload for a refund decision.
type ProcessedEvent struct {
	RefundID     uuid.UUID          `json:"refund_id"`
	RefundNumber string             `json:"refund_number"`
	OrderID      uuid.UUID          `json:"order_id"`
	Status       enums.RefundStatus `json:"status"`
	NetAmount    decimal.Decimal    `json:"net_amount"`
}

// Service defines refund request and processing operations.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.OrderRefund, error)
	Process(ctx context.Context, input ProcessInput) (*models.OrderRefund, error)
	Get(ctx context.Context, refundID uuid.UUID) (*models.OrderRefund, error)
	ListForRequester(ctx context.Context, userID uuid.UUID, page types.Page) (types.Paginated[models.OrderRefund], error)
	ListAll(ctx context.Context, page types.Page) (types.Paginated[models.OrderRefund], error)
}

type service struct {
	repo     Repository
	orders   orderLifecycle
	tx       txRunner
	outbox   outboxPublisher
	notifier Notifier
	metrics  *metrics.CommerceMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the refunds service with the required dependencies.
func NewService(repo Repository, orderSvc orderLifecycle, tx txRunner, outboxSvc outboxPublisher, notifier Notifier, commerceMetrics *metrics.CommerceMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		orders:   orderSvc,
		tx:       tx,
		outbox:   outboxSvc,
		notifier: notifier,
		metrics:  commerceMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.OrderRefund, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.RequestedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason required")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount cannot be negative")
	}

	order, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != input.RequestedBy {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("order %s is not refundable in status %s", order.OrderNumber, order.Status)).
			WithDetails(map[string]any{"status": order.Status})
	}

	amount := input.Amount
	if amount.IsZero() {
		amount = order.TotalAmount
	}
	if amount.GreaterThan(order.TotalAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds order total")
	}

	var refund *models.OrderRefund
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		open, err := repo.HasOpenRefund(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open refunds")
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has an open refund")
		}

		now := s.now()
		last, err := repo.LastNumberWithPrefix(ctx, orders.PeriodPrefix(numberKind, now))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last refund number")
		}
		number, err := orders.NextNumber(numberKind, now, last)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate refund number")
		}

		refund = &models.OrderRefund{
			RefundNumber:  number,
			OrderID:       order.ID,
			RequestedByID: input.RequestedBy,
			Status:        enums.RefundStatusRequested,
			Reason:        input.Reason,
			Amount:        amount,
			ProcessingFee: decimal.Zero,
		}
		if _, err := repo.Create(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventRefundRequested,
			AggregateType: enums.OutboxAggregateRefund,
			AggregateID:   refund.ID,
			Actor:         &outbox.ActorRef{UserID: input.RequestedBy, Role: enums.UserRoleCustomer.String()},
			Version:       1,
			Data: RequestedEvent{
				RefundID:     refund.ID,
				RefundNumber: refund.RefundNumber,
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				Amount:       refund.Amount,
				Reason:       refund.Reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRefund(enums.RefundStatusRequested.String())
	s.notify(ctx, refund)
	return refund, nil
}

func (s *service) Process(ctx context.Context, input ProcessInput) (*models.OrderRefund, error) {
	if input.RefundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown refund status %q", input.NewStatus))
	}
	if input.ProcessingFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "processing fee cannot be negative")
	}

	var refund *models.OrderRefund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.FindByID(ctx, input.RefundID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
		}
		refund = loaded

		if !refund.Status.CanTransitionTo(input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move refund from %s to %s", refund.Status, input.NewStatus)).
				WithDetails(map[string]any{"from": refund.Status, "to": input.NewStatus})
		}

		refund.Status = input.NewStatus
		if input.ProcessedBy != uuid.Nil {
			processorID := input.ProcessedBy
			refund.ProcessedByID = &processorID
		}
		if input.ProcessingFee.IsPositive() {
			refund.ProcessingFee = input.ProcessingFee
		}
		if input.NewStatus == enums.RefundStatusCompleted {
			now := s.now()
			refund.ProcessedAt = &now
		}
		if err := repo.Save(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save refund")
		}

		// Completing a refund flips the order in the same transaction so the
		// two records can never disagree.
		if input.NewStatus == enums.RefundStatusCompleted {
			_, err := s.orders.ChangeStatusTx(ctx, tx, orders.ChangeStatusInput{
				OrderID:   refund.OrderID,
				NewStatus: enums.OrderStatusRefunded,
				Note:      fmt.Sprintf("refund %s completed", refund.RefundNumber),
				Actor:     orders.Actor{UserID: input.ProcessedBy, Role: input.ProcessorRole},
			})
			if err != nil {
				return err
			}

			event := outbox.DomainEvent{
				EventType:     enums.OutboxEventRefundCompleted,
				AggregateType: enums.OutboxAggregateRefund,
				AggregateID:   refund.ID,
				Version:       1,
				Data: ProcessedEvent{
					RefundID:     refund.ID,
					RefundNumber: refund.RefundNumber,
					OrderID:      refund.OrderID,
					Status:       refund.Status,
					NetAmount:    refund.NetRefundAmount,
				},
			}
			if input.ProcessedBy != uuid.Nil {
				event.Actor = &outbox.ActorRef{UserID: input.ProcessedBy, Role: input.ProcessorRole.String()}
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRefund(refund.Status.String())
	s.notify(ctx, refund)
	return refund, nil
}

func (s *service) Get(ctx context.Context, refundID uuid.UUID) (*models.OrderRefund, error) {
	if refundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	refund, err := s.repo.FindByID(ctx, refundID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	return refund, nil
}

func (s *service) ListForRequester(ctx context.Context, userID uuid.UUID, page types.Page) (types.Paginated[models.OrderRefund], error) {
	page = page.Normalize()
	refunds, total, err := s.repo.ListByRequester(ctx, userID, page)
	if err != nil {
		return types.Paginated[models.OrderRefund]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refunds")
	}
	return paginated(refunds, total, page), nil
}

func (s *service) ListAll(ctx context.Context, page types.Page) (types.Paginated[models.OrderRefund], error) {
	page = page.Normalize()
	refunds, total, err := s.repo.ListAll(ctx, page)
	if err != nil {
		return types.Paginated[models.OrderRefund]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refunds")
	}
	return paginated(refunds, total, page), nil
}

func (s *service) notify(ctx context.Context, refund *models.OrderRefund) {
	if s.notifier == nil || refund == nil {
		return
	}
	if err := s.notifier.RefundUpdate(ctx, refund); err != nil && s.logg != nil {
		s.logg.Error(ctx, "refund notification failed", err)
	}
}

func paginated(refunds []models.OrderRefund, total int64, page types.Page) types.Paginated[models.OrderRefund] {
	return types.Paginated[models.OrderRefund]{
		Items:      refunds,
		TotalCount: total,
		Page:       page.Number,
		PageSize:   page.Size,
	}
}
