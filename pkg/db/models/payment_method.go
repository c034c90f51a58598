package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
)

// PaymentMethod holds the display fields of a tokenized payment method. The
// token itself lives with the payment provider.
type PaymentMethod struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID               `gorm:"column:customer_id;type:uuid;not null;index"`
	Type       enums.PaymentMethodType `gorm:"column:type;not null;default:'card'"`
	Brand      string                  `gorm:"column:brand"`
	Last4      string                  `gorm:"column:last4"`
	Label      string                  `gorm:"column:label"`
	IsDefault  bool                    `gorm:"column:is_default;not null;default:false"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

func (p *PaymentMethod) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
