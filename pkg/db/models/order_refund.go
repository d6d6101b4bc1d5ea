package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	"github.com/bowenSteve/kipsunya-biz/pkg/money"
)

// OrderRefund tracks a refund request against a delivered order.
type OrderRefund struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RefundNumber    string             `gorm:"column:refund_number;type:text;not null;uniqueIndex"`
	OrderID         uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	RequestedByID   uuid.UUID          `gorm:"column:requested_by_id;type:uuid;not null"`
	ProcessedByID   *uuid.UUID         `gorm:"column:processed_by_id;type:uuid"`
	Status          enums.RefundStatus `gorm:"column:status;type:text;not null;default:'requested'"`
	Reason          string             `gorm:"column:reason;type:text;not null"`
	Amount          decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	ProcessingFee   decimal.Decimal    `gorm:"column:processing_fee;type:numeric(12,2);not null;default:0"`
	NetRefundAmount decimal.Decimal    `gorm:"column:net_refund_amount;type:numeric(12,2);not null"`
	ProcessedAt     *time.Time         `gorm:"column:processed_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeSave recomputes the net amount from the gross amount and fee.
func (r *OrderRefund) BeforeSave(_ *gorm.DB) error {
	r.NetRefundAmount = money.NetRefund(r.Amount, r.ProcessingFee)
	return nil
}
