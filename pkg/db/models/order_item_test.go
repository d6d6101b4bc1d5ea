package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderItemBeforeSaveComputesMoney(t *testing.T) {
	item := &OrderItem{
		UnitPrice:      decimal.NewFromInt(100),
		Quantity:       3,
		CommissionRate: decimal.NewFromInt(15),
	}
	if err := item.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !item.TotalPrice.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected total 300, got %s", item.TotalPrice)
	}
	if !item.PlatformCommission.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("expected commission 45, got %s", item.PlatformCommission)
	}
	if !item.VendorEarnings.Equal(decimal.NewFromInt(255)) {
		t.Fatalf("expected earnings 255, got %s", item.VendorEarnings)
	}
}

func TestOrderItemBeforeSaveDefaultsCommission(t *testing.T) {
	item := &OrderItem{
		UnitPrice: decimal.NewFromInt(100),
		Quantity:  1,
	}
	if err := item.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !item.CommissionRate.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected default rate 15, got %s", item.CommissionRate)
	}
}

func TestOrderItemBeforeSaveRejectsBadRate(t *testing.T) {
	item := &OrderItem{
		UnitPrice:      decimal.NewFromInt(100),
		Quantity:       1,
		CommissionRate: decimal.NewFromInt(150),
	}
	if err := item.BeforeSave(nil); err == nil {
		t.Fatal("expected error for rate above 100")
	}
}

func TestOrderItemBeforeSaveRoundsHalfCents(t *testing.T) {
	item := &OrderItem{
		UnitPrice:      decimal.RequireFromString("0.335"),
		Quantity:       1,
		CommissionRate: decimal.NewFromInt(15),
	}
	if err := item.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !item.TotalPrice.Equal(decimal.RequireFromString("0.34")) {
		t.Fatalf("expected 0.34, got %s", item.TotalPrice)
	}
}

func TestOrderRefundBeforeSaveComputesNet(t *testing.T) {
	refund := &OrderRefund{
		Amount:        decimal.NewFromInt(500),
		ProcessingFee: decimal.NewFromInt(25),
	}
	if err := refund.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !refund.NetRefundAmount.Equal(decimal.NewFromInt(475)) {
		t.Fatalf("expected net 475, got %s", refund.NetRefundAmount)
	}
}

func TestOrderRefundBeforeSaveNoFee(t *testing.T) {
	refund := &OrderRefund{Amount: decimal.NewFromInt(500)}
	if err := refund.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !refund.NetRefundAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected net 500, got %s", refund.NetRefundAmount)
	}
}
