package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by the gorm repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Transaction runs fn in a transaction; fn receives a Base bound to it.
func (b Base) Transaction(ctx context.Context, fn func(tx Base) error) error {
	return b.DB(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Base{db: tx})
	})
}
