package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/internal/cart"
	"github.com/bowenSteve/kipsunya-biz/internal/catalog"
	"github.com/bowenSteve/kipsunya-biz/internal/orders"
	"github.com/bowenSteve/kipsunya-biz/pkg/config"
	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	"github.com/bowenSteve/kipsunya-biz/pkg/metrics"
	"github.com/bowenSteve/kipsunya-biz/pkg/money"
	"github.com/bowenSteve/kipsunya-biz/pkg/outbox"
)

const numberKind = "ORD"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier delivers best-effort order notifications after commit.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *models.Order) error
	NewOrderForVendor(ctx context.Context, order *models.Order, vendorID uuid.UUID) error
}

// Input carries everything needed to turn a cart into an order.
type Input struct {
	UserID          uuid.UUID
	ShippingAddress string
	ShippingCity    string
	ShippingPhone   string
	Notes           string
	PaymentMethod   enums.PaymentMethod
	ShippingCost    decimal.Decimal
	DiscountAmount  decimal.Decimal
}

// CreatedEvent is the outbox payload for a placed order.
type CreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	ItemCount   int             `json:"item_count"`
}

// Service turns a shopper's cart into a pending order in one transaction.
type Service interface {
	Execute(ctx context.Context, input Input) (*models.Order, error)
}

type service struct {
	carts    cart.Repository
	products catalog.Repository
	orders   orders.Repository
	tx       txRunner
	outbox   outboxPublisher
	notifier Notifier
	commerce config.CommerceConfig
	metrics  *metrics.CommerceMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service with the required dependencies.
func NewService(carts cart.Repository, products catalog.Repository, orderRepo orders.Repository, tx txRunner, outboxSvc outboxPublisher, notifier Notifier, commerce config.CommerceConfig, commerceMetrics *metrics.CommerceMetrics, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		carts:    carts,
		products: products,
		orders:   orderRepo,
		tx:       tx,
		outbox:   outboxSvc,
		notifier: notifier,
		commerce: commerce,
		metrics:  commerceMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Execute validates the cart, prices the order, decrements stock and clears
// the cart atomically. The order starts in pending/pending; payment capture
// happens elsewhere.
func (s *service) Execute(ctx context.Context, input Input) (*models.Order, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		products := s.products.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		shopperCart, err := carts.FindByUser(ctx, input.UserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(shopperCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		if err := s.checkAvailability(ctx, products, shopperCart.Items); err != nil {
			return err
		}

		subtotal := decimal.Zero
		for _, line := range shopperCart.Items {
			subtotal = subtotal.Add(line.LineTotal())
		}
		totals := money.Totals(subtotal, s.commerce.TaxRate(), input.ShippingCost, input.DiscountAmount)

		now := s.now()
		last, err := orderRepo.LastNumberWithPrefix(ctx, orders.PeriodPrefix(numberKind, now))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last order number")
		}
		number, err := orders.NextNumber(numberKind, now, last)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}

		order = &models.Order{
			OrderNumber:     number,
			CustomerID:      input.UserID,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			PaymentMethod:   input.PaymentMethod,
			Currency:        s.commerce.Currency,
			Subtotal:        totals.Subtotal,
			TaxAmount:       totals.TaxAmount,
			ShippingCost:    totals.ShippingCost,
			DiscountAmount:  totals.DiscountAmount,
			TotalAmount:     totals.TotalAmount,
			ShippingAddress: input.ShippingAddress,
			ShippingCity:    input.ShippingCity,
			ShippingPhone:   input.ShippingPhone,
			Notes:           input.Notes,
		}
		if _, err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(shopperCart.Items))
		for _, line := range shopperCart.Items {
			items = append(items, models.OrderItem{
				OrderID:        order.ID,
				ProductID:      line.ProductID,
				VendorID:       line.VendorID,
				ProductName:    line.ProductName,
				UnitPrice:      line.UnitPrice,
				Quantity:       line.Quantity,
				CommissionRate: s.commerce.CommissionRate(),
			})
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		order.Items = items

		for _, line := range shopperCart.Items {
			if err := products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
		}

		if err := carts.DeleteAllItems(ctx, shopperCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: enums.UserRoleCustomer.String()},
			Version:       1,
			Data: CreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				TotalAmount: order.TotalAmount,
				Currency:    order.Currency,
				ItemCount:   len(items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncCheckout("failed")
		return nil, err
	}

	s.metrics.IncCheckout("success")
	s.notify(ctx, order)
	return order, nil
}

func (s *service) validate(input Input) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if strings.TrimSpace(input.ShippingPhone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping phone required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}
	if input.ShippingCost.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}
	if input.DiscountAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}
	return nil
}

// checkAvailability rejects the whole checkout when any line references a
// product that is gone, disabled, or short on stock.
func (s *service) checkAvailability(ctx context.Context, products catalog.Repository, lines []models.CartItem) error {
	for _, line := range lines {
		product, err := products.FindByID(ctx, line.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeProductUnavailable,
					fmt.Sprintf("product %q is no longer available", line.ProductName)).
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.Purchasable() {
			return pkgerrors.New(pkgerrors.CodeProductUnavailable,
				fmt.Sprintf("product %q is no longer available", product.Name)).
				WithDetails(map[string]any{"product_id": product.ID})
		}
		if product.StockQuantity < line.Quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("only %d of %q in stock", product.StockQuantity, product.Name)).
				WithDetails(map[string]any{
					"product_id": product.ID,
					"available":  product.StockQuantity,
					"requested":  line.Quantity,
				})
		}
	}
	return nil
}

// notify fans out post-commit messages; failures are logged and swallowed so
// a flaky notifier can never undo a committed order.
func (s *service) notify(ctx context.Context, order *models.Order) {
	if s.notifier == nil || order == nil {
		return
	}
	if err := s.notifier.OrderPlaced(ctx, order); err != nil && s.logg != nil {
		s.logg.Error(ctx, "order placed notification failed", err)
	}
	seen := map[uuid.UUID]bool{}
	for _, item := range order.Items {
		if seen[item.VendorID] {
			continue
		}
		seen[item.VendorID] = true
		if err := s.notifier.NewOrderForVendor(ctx, order, item.VendorID); err != nil && s.logg != nil {
			s.logg.Error(ctx, "vendor order notification failed", err)
		}
	}
}
