package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-checkout/pkg/db/types"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
)

// DeliveryZone is the reference row describing a delivery coverage area.
type DeliveryZone struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name               string             `gorm:"column:name;not null;unique"`
	PostalPatterns     dbtypes.StringList `gorm:"column:postal_patterns;type:jsonb;not null"`
	BaseFeeCents       int64              `gorm:"column:base_fee_cents;not null"`
	MinOrderCents      int64              `gorm:"column:min_order_cents;not null;default:0"`
	MinDeliveryMinutes int                `gorm:"column:min_delivery_minutes;not null"`
	MaxDeliveryMinutes int                `gorm:"column:max_delivery_minutes;not null"`
	Tier               enums.ZoneTier     `gorm:"column:tier;not null"`
	Restrictions       dbtypes.StringList `gorm:"column:restrictions;type:jsonb;not null"`
	Active             bool               `gorm:"column:active;not null;default:true"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (DeliveryZone) TableName() string { return "delivery_zones" }

func (z *DeliveryZone) BeforeCreate(*gorm.DB) error {
	ensureID(&z.ID)
	return nil
}
