package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bowenSteve/kipsunya-biz/pkg/money"
)

// OrderItem snapshots one purchased product line. ProductID is kept as a bare
// numeric reference so the line survives catalog deletions.
type OrderItem struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID          int64           `gorm:"column:product_id;not null"`
	VendorID           uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	ProductName        string          `gorm:"column:product_name;type:text;not null"`
	UnitPrice          decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity           int             `gorm:"column:quantity;not null"`
	CommissionRate     decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	TotalPrice         decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	PlatformCommission decimal.Decimal `gorm:"column:platform_commission;type:numeric(12,2);not null"`
	VendorEarnings     decimal.Decimal `gorm:"column:vendor_earnings;type:numeric(12,2);not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeSave recomputes the derived money columns so they can never drift
// from the unit price, quantity and commission rate.
func (i *OrderItem) BeforeSave(_ *gorm.DB) error {
	if i.CommissionRate.IsZero() {
		i.CommissionRate = money.DefaultCommissionRate
	}
	if err := money.ValidateRate(i.CommissionRate); err != nil {
		return err
	}
	lineTotal := money.LineTotal(i.UnitPrice, i.Quantity)
	i.TotalPrice = money.Round(lineTotal)
	i.PlatformCommission = money.Commission(lineTotal, i.CommissionRate)
	i.VendorEarnings = money.VendorEarnings(lineTotal, i.CommissionRate)
	return nil
}
