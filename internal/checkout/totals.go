package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/pkg/money"
)

// DefaultTaxRate is applied to the subtotal when no rate is configured.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// Totals is derived from a session on every read and never stored.
type Totals struct {
	SubtotalCents    int64 `json:"subtotal_cents"`
	DeliveryFeeCents int64 `json:"delivery_fee_cents"`
	TaxCents         int64 `json:"tax_cents"`
	TotalCents       int64 `json:"total_cents"`
}

// ComputeTotals prices a session. Pickup is free; delivery uses the latest
// surge price for the selected zone, or the zone's base fee before any
// price was computed. Tax applies to the subtotal only.
func ComputeTotals(s Session, taxRate decimal.Decimal) Totals {
	subtotal := cart.Subtotal(s.Items)
	fee := DeliveryFee(s)
	tax := money.ApplyRate(subtotal, taxRate)
	return Totals{
		SubtotalCents:    subtotal,
		DeliveryFeeCents: fee,
		TaxCents:         tax,
		TotalCents:       subtotal + fee + tax,
	}
}

// DeliveryFee is the fee the buyer would pay for the current selection.
func DeliveryFee(s Session) int64 {
	if !s.delivery() || s.Zone == nil {
		return 0
	}
	if s.Pricing != nil && s.Pricing.ZoneID == s.Zone.ID {
		return s.Pricing.SurgeCents
	}
	return s.Zone.BaseFeeCents
}
