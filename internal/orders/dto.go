package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// Totals are the amounts the buyer agreed to at the review step.
type Totals struct {
	SubtotalCents    int64 `json:"subtotal_cents"`
	DeliveryFeeCents int64 `json:"delivery_fee_cents"`
	TaxCents         int64 `json:"tax_cents"`
	TotalCents       int64 `json:"total_cents"`
}

// OrderRequest is the finalized checkout handed to Submit.
type OrderRequest struct {
	SessionID        uuid.UUID
	CartID           uuid.UUID
	Fulfillment      enums.FulfillmentMethod
	Items            []cart.LineItem
	DeliveryZoneID   *uuid.UUID
	PickupLocationID *uuid.UUID
	ShippingAddress  *types.Address
	PaymentMethodID  uuid.UUID
	Instructions     string
	SurgeMultiplier  decimal.Decimal
	Totals           Totals
}

// Order is a placed order as returned by lookups.
type Order struct {
	ID          uuid.UUID               `json:"id"`
	Reference   string                  `json:"reference"`
	SessionID   uuid.UUID               `json:"session_id"`
	Status      enums.OrderStatus       `json:"status"`
	Fulfillment enums.FulfillmentMethod `json:"fulfillment"`
	Totals      Totals                  `json:"totals"`
	Items       []cart.LineItem         `json:"items"`
	CreatedAt   time.Time               `json:"created_at"`
}
