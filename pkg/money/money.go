// Package money holds the platform's monetary arithmetic. All functions are
// pure: decimals in, decimals out, no I/O. Rates are percentages in the 0-100
// range. Rounding to two decimal places happens once, on the final figure,
// never on intermediates.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// DefaultTaxRate is the platform VAT percentage applied at checkout.
	DefaultTaxRate = decimal.NewFromInt(16)

	// DefaultCommissionRate is the platform cut on each order line.
	DefaultCommissionRate = decimal.NewFromInt(15)
)

// OrderTotals is the monetary breakdown of a checkout.
type OrderTotals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ValidateRate rejects percentages outside the 0-100 range.
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return fmt.Errorf("rate %s out of range [0, 100]", rate)
	}
	return nil
}

// Round quantizes a monetary amount to two decimal places.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// LineTotal returns unit price times quantity, unrounded.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Tax computes the tax owed on a subtotal at the given percentage rate,
// rounded to two decimal places.
func Tax(subtotal, ratePercent decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Mul(ratePercent).Div(hundred))
}

// Commission computes the platform's cut of a line total at the given
// percentage rate, rounded to two decimal places.
func Commission(lineTotal, ratePercent decimal.Decimal) decimal.Decimal {
	return Round(lineTotal.Mul(ratePercent).Div(hundred))
}

// VendorEarnings is what remains of a line total after commission.
func VendorEarnings(lineTotal, ratePercent decimal.Decimal) decimal.Decimal {
	return Round(lineTotal.Sub(lineTotal.Mul(ratePercent).Div(hundred)))
}

// NetRefund is the refund amount owed after deducting the processing fee.
func NetRefund(amount, fee decimal.Decimal) decimal.Decimal {
	return Round(amount.Sub(fee))
}

// Totals assembles the full checkout breakdown from a subtotal, tax rate,
// shipping cost and discount. The subtotal is rounded on output; tax is
// computed from the unrounded subtotal. The discount is clamped to the
// subtotal so the goods value never goes negative.
func Totals(subtotal, taxRatePercent, shippingCost, discount decimal.Decimal) OrderTotals {
	tax := Tax(subtotal, taxRatePercent)
	roundedSubtotal := Round(subtotal)
	roundedShipping := Round(shippingCost)
	roundedDiscount := Round(discount)
	if roundedDiscount.GreaterThan(roundedSubtotal) {
		roundedDiscount = roundedSubtotal
	}
	return OrderTotals{
		Subtotal:       roundedSubtotal,
		TaxAmount:      tax,
		ShippingCost:   roundedShipping,
		DiscountAmount: roundedDiscount,
		TotalAmount:    Round(roundedSubtotal.Add(tax).Add(roundedShipping).Sub(roundedDiscount)),
	}
}
