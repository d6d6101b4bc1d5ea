package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/db/models"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

// Repository exposes catalog reads and the stock mutations checkout needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context, filter ListFilter, page types.Page) ([]models.Product, int64, error)
	DecrementStock(ctx context.Context, productID int64, qty int) error
}

// ListFilter narrows the product listing.
type ListFilter struct {
	VendorID   *uuid.UUID
	Category   string
	Search     string
	OnlyActive bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, page types.Page) ([]models.Product, int64, error) {
	page = page.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if filter.OnlyActive {
		query = query.Where("is_active AND is_available")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := query.
		Order("created_at DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// DecrementStock reduces stock by qty, clamping at zero, and flips the
// in_stock flag when the shelf empties. A missing product is not an error:
// checkout tolerates catalog rows deleted mid-flight.
func (r *repository) DecrementStock(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return nil
	}
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	remaining := product.StockQuantity - qty
	if remaining < 0 {
		remaining = 0
	}
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock_quantity": remaining,
			"in_stock":       remaining > 0,
		}).Error
}
