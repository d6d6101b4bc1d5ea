package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SavedItem is a save-for-later entry, one per (user, product).
type SavedItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_saved_items_user_product"`
	ProductID   int64           `gorm:"column:product_id;not null;uniqueIndex:ux_saved_items_user_product"`
	ProductName string          `gorm:"column:product_name;type:text;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
