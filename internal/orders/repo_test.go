package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

func setupOrdersDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`DROP TABLE IF EXISTS order_status_histories`,
		`DROP TABLE IF EXISTS order_items`,
		`DROP TABLE IF EXISTS orders`,
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			order_number TEXT NOT NULL UNIQUE,
			customer_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			payment_method TEXT NOT NULL DEFAULT 'mpesa',
			currency TEXT NOT NULL DEFAULT 'KES',
			subtotal NUMERIC NOT NULL,
			tax_amount NUMERIC NOT NULL,
			shipping_cost NUMERIC NOT NULL DEFAULT 0,
			discount_amount NUMERIC NOT NULL DEFAULT 0,
			total_amount NUMERIC NOT NULL,
			shipping_address TEXT NOT NULL,
			shipping_city TEXT NOT NULL DEFAULT '',
			shipping_phone TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			tracking_number TEXT,
			confirmed_at DATETIME,
			shipped_at DATETIME,
			delivered_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			product_id INTEGER NOT NULL,
			vendor_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			unit_price NUMERIC NOT NULL,
			quantity INTEGER NOT NULL,
			commission_rate NUMERIC NOT NULL,
			total_price NUMERIC NOT NULL,
			platform_commission NUMERIC NOT NULL,
			vendor_earnings NUMERIC NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE order_status_histories (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			previous_status TEXT NOT NULL,
			new_status TEXT NOT NULL,
			changed_by_id TEXT,
			note TEXT NOT NULL DEFAULT '',
			created_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, customerID uuid.UUID, number string, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     number,
		CustomerID:      customerID,
		Status:          status,
		PaymentStatus:   enums.PaymentStatusPaid,
		Currency:        "KES",
		Subtotal:        decimal.NewFromInt(200),
		TaxAmount:       decimal.NewFromInt(32),
		ShippingCost:    decimal.Zero,
		TotalAmount:     decimal.NewFromInt(232),
		ShippingAddress: "12 Biashara Street",
		ShippingCity:    "Nairobi",
		ShippingPhone:   "+254700000001",
		CreatedAt:       createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedItem(t *testing.T, db *gorm.DB, orderID, vendorID uuid.UUID, unitPrice int64, quantity int) *models.OrderItem {
	t.Helper()

	item := &models.OrderItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		ProductID:      42,
		VendorID:       vendorID,
		ProductName:    "Ceramic Mug",
		UnitPrice:      decimal.NewFromInt(unitPrice),
		Quantity:       quantity,
		CommissionRate: decimal.NewFromInt(15),
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func seedHistory(t *testing.T, db *gorm.DB, orderID uuid.UUID, from, to enums.OrderStatus, createdAt time.Time) {
	t.Helper()

	entry := &models.OrderStatusHistory{
		ID:             uuid.New(),
		OrderID:        orderID,
		PreviousStatus: from,
		NewStatus:      to,
		ChangedByID:    ptr(uuid.New()),
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(entry).Error)
}

func TestRepositoryFindByID_preloadsLinesAndHistory(t *testing.T) {
	db := setupOrdersDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	order := seedOrder(t, db, uuid.New(), "ORD-2026-08-1000", enums.OrderStatusConfirmed, base)
	seedItem(t, db, order.ID, uuid.New(), 50, 2)
	seedItem(t, db, order.ID, uuid.New(), 120, 1)
	seedHistory(t, db, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusProcessing, base.Add(2*time.Hour))
	seedHistory(t, db, order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed, base.Add(time.Hour))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.OrderNumber, found.OrderNumber)
	assert.Len(t, found.Items, 2)
	require.Len(t, found.History, 2)
	assert.Equal(t, enums.OrderStatusConfirmed, found.History[0].NewStatus)
	assert.Equal(t, enums.OrderStatusProcessing, found.History[1].NewStatus)
}

func TestRepositoryFindByID_notFound(t *testing.T) {
	db := setupOrdersDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryLastNumberWithPrefix(t *testing.T) {
	db := setupOrdersDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	last, err := repo.LastNumberWithPrefix(ctx, "ORD-2026-08-")
	require.NoError(t, err)
	assert.Empty(t, last)

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	customerID := uuid.New()
	seedOrder(t, db, customerID, "ORD-2026-07-1005", enums.OrderStatusDelivered, base.AddDate(0, -1, 0))
	seedOrder(t, db, customerID, "ORD-2026-08-1000", enums.OrderStatusPending, base)
	seedOrder(t, db, customerID, "ORD-2026-08-1001", enums.OrderStatusPending, base.Add(time.Hour))

	last, err = repo.LastNumberWithPrefix(ctx, "ORD-2026-08-")
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-08-1001", last)
}

func TestRepositoryListByCustomer_pagination(t *testing.T) {
	db := setupOrdersDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	seedOrder(t, db, customerID, "ORD-2026-08-1000", enums.OrderStatusDelivered, base)
	seedOrder(t, db, customerID, "ORD-2026-08-1001", enums.OrderStatusPending, base.Add(time.Hour))
	seedOrder(t, db, customerID, "ORD-2026-08-1002", enums.OrderStatusPending, base.Add(2*time.Hour))
	seedOrder(t, db, uuid.New(), "ORD-2026-08-1003", enums.OrderStatusPending, base.Add(3*time.Hour))

	page1, total, err := repo.ListByCustomer(ctx, customerID, types.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page1, 2)
	assert.Equal(t, "ORD-2026-08-1002", page1[0].OrderNumber)
	assert.Equal(t, "ORD-2026-08-1001", page1[1].OrderNumber)

	page2, total, err := repo.ListByCustomer(ctx, customerID, types.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page2, 1)
	assert.Equal(t, "ORD-2026-08-1000", page2[0].OrderNumber)
}

func TestRepositoryListByVendor_matchesLines(t *testing.T) {
	db := setupOrdersDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	base := time.Date(2026, 8, 12, 8, 0, 0, 0, time.UTC)
	mine := seedOrder(t, db, uuid.New(), "ORD-2026-08-1000", enums.OrderStatusConfirmed, base)
	other := seedOrder(t, db, uuid.New(), "ORD-2026-08-1001", enums.OrderStatusConfirmed, base.Add(time.Hour))
	seedItem(t, db, mine.ID, vendorID, 80, 1)
	seedItem(t, db, other.ID, uuid.New(), 80, 1)

	orders, total, err := repo.ListByVendor(ctx, vendorID, types.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, mine.ID, orders[0].ID)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, vendorID, orders[0].Items[0].VendorID)
}

func TestRepositoryVendorSummary_countsDeliveredOnly(t *testing.T) {
	db := setupOrdersDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	base := time.Date(2026, 8, 14, 8, 0, 0, 0, time.UTC)
	delivered := seedOrder(t, db, uuid.New(), "ORD-2026-08-1000", enums.OrderStatusDelivered, base)
	pending := seedOrder(t, db, uuid.New(), "ORD-2026-08-1001", enums.OrderStatusPending, base.Add(time.Hour))
	seedItem(t, db, delivered.ID, vendorID, 100, 2)
	seedItem(t, db, delivered.ID, vendorID, 50, 1)
	seedItem(t, db, pending.ID, vendorID, 500, 1)

	summary, err := repo.VendorSummary(ctx, vendorID)
	require.NoError(t, err)

	assert.EqualValues(t, 2, summary.DeliveredLines)
	assert.True(t, summary.GrossSales.Equal(decimal.NewFromInt(250)), "gross %s", summary.GrossSales)
	assert.True(t, summary.Commission.Equal(decimal.NewFromFloat(37.5)), "commission %s", summary.Commission)
	assert.True(t, summary.Earnings.Equal(decimal.NewFromFloat(212.5)), "earnings %s", summary.Earnings)
}

func TestRepositoryAppendHistory_ordersByTime(t *testing.T) {
	db := setupOrdersDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 16, 8, 0, 0, 0, time.UTC)
	order := seedOrder(t, db, uuid.New(), "ORD-2026-08-1000", enums.OrderStatusPending, base)

	first := &models.OrderStatusHistory{
		ID:             uuid.New(),
		OrderID:        order.ID,
		PreviousStatus: enums.OrderStatusPending,
		NewStatus:      enums.OrderStatusConfirmed,
		CreatedAt:      base.Add(time.Minute),
	}
	second := &models.OrderStatusHistory{
		ID:             uuid.New(),
		OrderID:        order.ID,
		PreviousStatus: enums.OrderStatusConfirmed,
		NewStatus:      enums.OrderStatusProcessing,
		Note:           "packing started",
		CreatedAt:      base.Add(2 * time.Minute),
	}
	require.NoError(t, repo.AppendHistory(ctx, second))
	require.NoError(t, repo.AppendHistory(ctx, first))

	entries, err := repo.ListHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.OrderStatusConfirmed, entries[0].NewStatus)
	assert.Equal(t, "packing started", entries[1].Note)
}

func ptr[T any](v T) *T {
	return &v
}
