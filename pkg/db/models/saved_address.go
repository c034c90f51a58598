package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedAddress is an entry in a customer's address book.
type SavedAddress struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	Label      string    `gorm:"column:label"`
	Line1      string    `gorm:"column:line1;not null"`
	Line2      *string   `gorm:"column:line2"`
	City       string    `gorm:"column:city;not null"`
	State      string    `gorm:"column:state;not null"`
	PostalCode string    `gorm:"column:postal_code;not null"`
	Country    string    `gorm:"column:country;not null;default:'US'"`
	PlaceID    *string   `gorm:"column:place_id"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SavedAddress) TableName() string { return "saved_addresses" }

func (a *SavedAddress) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
