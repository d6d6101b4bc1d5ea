package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds a shopper's pending selections. Exactly one of UserID or
// SessionID is set: authenticated carts hang off the account, anonymous carts
// off the browser session.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`
	SessionID *string    `gorm:"column:session_id;type:text;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
