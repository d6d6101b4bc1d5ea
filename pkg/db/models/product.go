package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry carts and orders reference. Products keep a
// numeric primary key so order-line snapshots stay meaningful after a product
// row is removed.
type Product struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	VendorID      uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name          string          `gorm:"column:name;type:text;not null"`
	Description   string          `gorm:"column:description;type:text;not null;default:''"`
	Category      string          `gorm:"column:category;type:text;not null;default:''"`
	Tags          pq.StringArray  `gorm:"column:tags;type:text[]"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	InStock       bool            `gorm:"column:in_stock;not null;default:true"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	IsAvailable   bool            `gorm:"column:is_available;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Purchasable reports whether the product can currently be ordered.
func (p Product) Purchasable() bool {
	return p.IsActive && p.IsAvailable
}
