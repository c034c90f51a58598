package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PickupLocation is a store or locker where buyers collect orders.
type PickupLocation struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	Line1      string    `gorm:"column:line1;not null"`
	City       string    `gorm:"column:city;not null"`
	State      string    `gorm:"column:state;not null"`
	PostalCode string    `gorm:"column:postal_code;not null"`
	Country    string    `gorm:"column:country;not null;default:'US'"`
	Hours      string    `gorm:"column:hours"`
	Active     bool      `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PickupLocation) TableName() string { return "pickup_locations" }

func (p *PickupLocation) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
