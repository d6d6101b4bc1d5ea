package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/outbox"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

type stubRepo struct {
	findFn    func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	saved     []*models.Order
	history   []*models.OrderStatusHistory
	historyFn func(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}
func (s *stubRepo) CreateItems(ctx context.Context, items []models.OrderItem) error { return nil }
func (s *stubRepo) Save(ctx context.Context, order *models.Order) error {
	s.saved = append(s.saved, order)
	return nil
}
func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubRepo) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	return "", nil
}
func (s *stubRepo) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	s.history = append(s.history, entry)
	return nil
}
func (s *stubRepo) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, orderID)
	}
	return nil, nil
}
func (s *stubRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, page types.Page) ([]models.Order, int64, error) {
	return nil, 0, nil
}
func (s *stubRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, page types.Page) ([]models.Order, int64, error) {
	return nil, 0, nil
}
func (s *stubRepo) ListAll(ctx context.Context, page types.Page) ([]models.Order, int64, error) {
	return nil, 0, nil
}
func (s *stubRepo) VendorSummary(ctx context.Context, vendorID uuid.UUID) (*VendorSummary, error) {
	return &VendorSummary{VendorID: vendorID}, nil
}

type stubTx struct {
	err error
}

func (s *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubNotifier struct {
	calls int
	last  enums.OrderStatus
}

func (s *stubNotifier) OrderStatusChanged(ctx context.Context, order *models.Order, previous enums.OrderStatus) error {
	s.calls++
	s.last = previous
	return nil
}

func newTestService(t *testing.T, repo *stubRepo, ob *stubOutbox, notifier Notifier) (*service, func() time.Time) {
	t.Helper()
	svc, err := NewService(repo, &stubTx{}, ob, notifier, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)
	impl := svc.(*service)
	impl.now = func() time.Time { return now }
	return impl, impl.now
}

func orderInStatus(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-2026-08-1000",
		CustomerID:    uuid.New(),
		Status:        status,
		PaymentStatus: enums.PaymentStatusPending,
	}
}

func TestChangeStatusValidMove(t *testing.T) {
	order := orderInStatus(enums.OrderStatusPending)
	repo := &stubRepo{findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return order, nil
	}}
	ob := &stubOutbox{}
	notifier := &stubNotifier{}
	svc, nowFn := newTestService(t, repo, ob, notifier)

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusConfirmed,
		Actor:     Actor{UserID: uuid.New(), Role: enums.UserRoleVendor},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}
	if updated.ConfirmedAt == nil || !updated.ConfirmedAt.Equal(nowFn()) {
		t.Fatalf("expected confirmed_at %v, got %v", nowFn(), updated.ConfirmedAt)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected 1 save, got %d", len(repo.saved))
	}
	if len(repo.history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(repo.history))
	}
	if repo.history[0].PreviousStatus != enums.OrderStatusPending || repo.history[0].NewStatus != enums.OrderStatusConfirmed {
		t.Fatalf("history entry has wrong statuses: %+v", repo.history[0])
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.OutboxEventOrderStatusChanged {
		t.Fatalf("expected one status changed event, got %+v", ob.events)
	}
	if notifier.calls != 1 || notifier.last != enums.OrderStatusPending {
		t.Fatalf("expected one notification with previous=pending, got %d/%s", notifier.calls, notifier.last)
	}
}

func TestChangeStatusInvalidTransition(t *testing.T) {
	order := orderInStatus(enums.OrderStatusPending)
	repo := &stubRepo{findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return order, nil
	}}
	svc, _ := newTestService(t, repo, &stubOutbox{}, nil)

	_, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusDelivered,
	})
	if err == nil {
		t.Fatal("expected invalid transition error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition code, got %v", err)
	}
	if len(repo.saved) != 0 {
		t.Fatal("order must not be saved on rejected transition")
	}
}

func TestChangeStatusTerminalStatusRejected(t *testing.T) {
	order := orderInStatus(enums.OrderStatusCancelled)
	repo := &stubRepo{findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return order, nil
	}}
	svc, _ := newTestService(t, repo, &stubOutbox{}, nil)

	_, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusConfirmed,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition from cancelled, got %v", err)
	}
}

func TestChangeStatusSameStatusAppendsNote(t *testing.T) {
	order := orderInStatus(enums.OrderStatusConfirmed)
	repo := &stubRepo{findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return order, nil
	}}
	ob := &stubOutbox{}
	notifier := &stubNotifier{}
	svc, _ := newTestService(t, repo, ob, notifier)

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusConfirmed,
		Note:      "called the customer",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.OrderStatusConfirmed {
		t.Fatalf("status must not move, got %s", updated.Status)
	}
	if len(repo.saved) != 0 {
		t.Fatal("same-status update must not save the order")
	}
	if len(repo.history) != 1 || repo.history[0].Note != "called the customer" {
		t.Fatalf("expected note in history, got %+v", repo.history)
	}
	if len(ob.events) != 0 {
		t.Fatal("same-status update must not emit events")
	}
	if notifier.calls != 0 {
		t.Fatal("same-status update must not notify")
	}
}

func TestChangeStatusTimestampsStampedOnce(t *testing.T) {
	already := time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC)
	order := orderInStatus(enums.OrderStatusShipped)
	order.ShippedAt = &already
	repo := &stubRepo{findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return order, nil
	}}
	svc, nowFn := newTestService(t, repo, &stubOutbox{}, nil)

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusDelivered,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.ShippedAt.Equal(already) {
		t.Fatalf("shipped_at must not be overwritten, got %v", updated.ShippedAt)
	}
	if updated.DeliveredAt == nil || !updated.DeliveredAt.Equal(nowFn()) {
		t.Fatalf("expected delivered_at %v, got %v", nowFn(), updated.DeliveredAt)
	}
}

func TestChangeStatusShippedRecordsTracking(t *testing.T) {
	order := orderInStatus(enums.OrderStatusProcessing)
	repo := &stubRepo{findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return order, nil
	}}
	svc, _ := newTestService(t, repo, &stubOutbox{}, nil)

	tracking := "KE123456789"
	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:        order.ID,
		NewStatus:      enums.OrderStatusShipped,
		TrackingNumber: &tracking,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.TrackingNumber == nil || *updated.TrackingNumber != tracking {
		t.Fatalf("expected tracking number recorded, got %v", updated.TrackingNumber)
	}
}

func TestChangeStatusRefundedFlipsPaymentStatus(t *testing.T) {
	order := orderInStatus(enums.OrderStatusDelivered)
	order.PaymentStatus = enums.PaymentStatusPaid
	repo := &stubRepo{findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		return order, nil
	}}
	svc, _ := newTestService(t, repo, &stubOutbox{}, nil)

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusRefunded,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded payment status, got %s", updated.PaymentStatus)
	}
}

func TestChangeStatusUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{}, &stubOutbox{}, nil)
	_, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:   uuid.New(),
		NewStatus: enums.OrderStatus("teleported"),
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBulkChangeStatusCollectsPerOrderOutcomes(t *testing.T) {
	movable := orderInStatus(enums.OrderStatusPending)
	stuck := orderInStatus(enums.OrderStatusCancelled)
	repo := &stubRepo{findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		switch id {
		case movable.ID:
			return movable, nil
		case stuck.ID:
			return stuck, nil
		}
		return nil, gorm.ErrRecordNotFound
	}}
	svc, _ := newTestService(t, repo, &stubOutbox{}, nil)

	result, err := svc.BulkChangeStatus(context.Background(), BulkChangeStatusInput{
		OrderIDs:  []uuid.UUID{movable.ID, stuck.ID},
		NewStatus: enums.OrderStatusConfirmed,
		Actor:     Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin},
	})
	if err != nil {
		t.Fatalf("a failing order must not fail the batch, got %v", err)
	}
	if len(result.Orders) != 1 || result.Orders[0].ID != movable.ID {
		t.Fatalf("expected only the pending order to move, got %+v", result.Orders)
	}
	if result.Orders[0].Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", result.Orders[0].Status)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 recorded failure, got %v", result.Failures)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("only the movable order may be saved, got %d saves", len(repo.saved))
	}
}

func TestBulkChangeStatusKeepsGoingAfterMissingOrder(t *testing.T) {
	movable := orderInStatus(enums.OrderStatusPending)
	repo := &stubRepo{findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		if id == movable.ID {
			return movable, nil
		}
		return nil, gorm.ErrRecordNotFound
	}}
	svc, _ := newTestService(t, repo, &stubOutbox{}, nil)

	result, err := svc.BulkChangeStatus(context.Background(), BulkChangeStatusInput{
		OrderIDs:  []uuid.UUID{uuid.New(), movable.ID},
		NewStatus: enums.OrderStatusConfirmed,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Orders) != 1 || len(result.Failures) != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %d/%d", len(result.Orders), len(result.Failures))
	}
}

func TestBulkChangeStatusValidation(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{}, &stubOutbox{}, nil)

	if _, err := svc.BulkChangeStatus(context.Background(), BulkChangeStatusInput{
		NewStatus: enums.OrderStatusConfirmed,
	}); err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
	if _, err := svc.BulkChangeStatus(context.Background(), BulkChangeStatusInput{
		OrderIDs:  []uuid.UUID{uuid.New()},
		NewStatus: enums.OrderStatus("teleported"),
	}); err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{}, &stubOutbox{}, nil)
	_, err := svc.Get(context.Background(), uuid.New())
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVendorSummaryRequiresID(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{}, &stubOutbox{}, nil)
	if _, err := svc.VendorSummary(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected validation error for nil vendor id")
	}
}
