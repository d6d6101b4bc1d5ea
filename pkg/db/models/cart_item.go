package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one product line in a cart. The unit price and product name are
// snapshots taken when the line was added; quantity merges on re-add.
type CartItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID      uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_product"`
	ProductID   int64           `gorm:"column:product_id;not null;uniqueIndex:ux_cart_items_cart_product"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;type:text;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotal is the snapshot price times quantity, unrounded.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
