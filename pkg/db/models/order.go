package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
)

// Order is the customer-facing order header. Monetary figures are computed at
// checkout and stored; the lifecycle timestamps are stamped the first time the
// matching status is reached and never overwritten.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string               `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	CustomerID      uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	Status          enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null;default:'mpesa'"`
	Currency        string               `gorm:"column:currency;type:text;not null;default:'KES'"`
	Subtotal        decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount       decimal.Decimal      `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	ShippingCost    decimal.Decimal      `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	DiscountAmount  decimal.Decimal      `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount     decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingAddress string               `gorm:"column:shipping_address;type:text;not null"`
	ShippingCity    string               `gorm:"column:shipping_city;type:text;not null;default:''"`
	ShippingPhone   string               `gorm:"column:shipping_phone;type:text;not null"`
	Notes           string               `gorm:"column:notes;type:text;not null;default:''"`
	TrackingNumber  *string              `gorm:"column:tracking_number;type:text"`
	ConfirmedAt     *time.Time           `gorm:"column:confirmed_at"`
	ShippedAt       *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History         []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
