package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// Order is the record written when checkout submits successfully.
type Order struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Reference        string                  `gorm:"column:reference;not null;unique"`
	SessionID        uuid.UUID               `gorm:"column:session_id;type:uuid;not null;unique"`
	CartID           uuid.UUID               `gorm:"column:cart_id;type:uuid;not null"`
	Status           enums.OrderStatus       `gorm:"column:status;not null;default:'placed'"`
	Fulfillment      enums.FulfillmentMethod `gorm:"column:fulfillment;not null"`
	DeliveryZoneID   *uuid.UUID              `gorm:"column:delivery_zone_id;type:uuid"`
	PickupLocationID *uuid.UUID              `gorm:"column:pickup_location_id;type:uuid"`
	ShippingAddress  *types.Address          `gorm:"column:shipping_address;type:jsonb"`
	PaymentMethodID  uuid.UUID               `gorm:"column:payment_method_id;type:uuid;not null"`
	Instructions     *string                 `gorm:"column:instructions"`
	SurgeMultiplier  string                  `gorm:"column:surge_multiplier;not null;default:'1'"`
	SubtotalCents    int64                   `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents int64                   `gorm:"column:delivery_fee_cents;not null"`
	TaxCents         int64                   `gorm:"column:tax_cents;not null"`
	TotalCents       int64                   `gorm:"column:total_cents;not null"`
	LineItems        []OrderLineItem         `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
