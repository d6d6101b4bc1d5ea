package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

// VendorSummary aggregates a vendor's take across delivered orders.
type VendorSummary struct {
	VendorID       uuid.UUID       `json:"vendor_id"`
	DeliveredLines int64           `json:"delivered_lines"`
	GrossSales     decimal.Decimal `json:"gross_sales"`
	Commission     decimal.Decimal `json:"commission"`
	Earnings       decimal.Decimal `json:"earnings"`
}

// Repository persists orders, their lines and the status audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	Save(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)

	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)

	ListByCustomer(ctx context.Context, customerID uuid.UUID, page types.Page) ([]models.Order, int64, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, page types.Page) ([]models.Order, int64, error)
	ListAll(ctx context.Context, page types.Page) ([]models.Order, int64, error)

	VendorSummary(ctx context.Context, vendorID uuid.UUID) (*VendorSummary, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Omit("Items", "History").
		Save(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LastNumberWithPrefix returns the highest order number in the period, or an
// empty string when the period has none. Callers run this inside the same
// transaction that creates the order.
func (r *repository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &numbers).Error
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var entries []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page types.Page) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("customer_id = ?", customerID)
	return r.paginate(ctx, query, page)
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, page types.Page) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN (?)", r.db.Model(&models.OrderItem{}).
			Select("order_id").
			Where("vendor_id = ?", vendorID))
	return r.paginate(ctx, query, page)
}

func (r *repository) ListAll(ctx context.Context, page types.Page) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	return r.paginate(ctx, query, page)
}

func (r *repository) paginate(ctx context.Context, query *gorm.DB, page types.Page) ([]models.Order, int64, error) {
	page = page.Normalize()

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) VendorSummary(ctx context.Context, vendorID uuid.UUID) (*VendorSummary, error) {
	summary := &VendorSummary{VendorID: vendorID}
	row := struct {
		Lines      int64
		Gross      decimal.Decimal
		Commission decimal.Decimal
		Earnings   decimal.Decimal
	}{}

	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Select("COUNT(*) AS lines, COALESCE(SUM(total_price), 0) AS gross, COALESCE(SUM(platform_commission), 0) AS commission, COALESCE(SUM(vendor_earnings), 0) AS earnings").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.vendor_id = ? AND orders.status = ?", vendorID, "delivered").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	summary.DeliveredLines = row.Lines
	summary.GrossSales = row.Gross
	summary.Commission = row.Commission
	summary.Earnings = row.Earnings
	return summary, nil
}
