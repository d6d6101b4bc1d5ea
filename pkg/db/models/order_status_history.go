package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
)

// OrderStatusHistory is an append-only audit line for each lifecycle move.
// A row where PreviousStatus equals NewStatus records a note, not a move.
type OrderStatusHistory struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	PreviousStatus enums.OrderStatus `gorm:"column:previous_status;type:text;not null"`
	NewStatus      enums.OrderStatus `gorm:"column:new_status;type:text;not null"`
	ChangedByID    *uuid.UUID        `gorm:"column:changed_by_id;type:uuid"`
	Note           string            `gorm:"column:note;type:text;not null;default:''"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
