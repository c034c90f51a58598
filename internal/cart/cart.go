package cart

import (
	"context"

	"github.com/google/uuid"
)

// LineItem is a cart line as checkout sees it. Checkout reads items and never
// writes them.
type LineItem struct {
	ID             uuid.UUID `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Vendor         string    `json:"vendor,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

// TotalCents is unit price times quantity.
func (l LineItem) TotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// Source supplies the line items of a cart.
type Source interface {
	Items(ctx context.Context, cartID uuid.UUID) ([]LineItem, error)
}

// Subtotal sums the line totals.
func Subtotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.TotalCents()
	}
	return total
}
