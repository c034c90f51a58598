package cart

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/repo"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

// Repository reads and writes cart_items.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to a GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Items returns the lines of cartID in display order.
func (r *Repository) Items(ctx context.Context, cartID uuid.UUID) ([]LineItem, error) {
	var rows []models.CartItem
	err := r.DB(ctx).
		Where("cart_id = ?", cartID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, LineItem{
			ID:             row.ID,
			SKU:            row.SKU,
			Name:           row.Name,
			Vendor:         row.Vendor,
			UnitPriceCents: row.UnitPriceCents,
			Quantity:       row.Quantity,
		})
	}
	return items, nil
}

// AddItem appends a line to cartID.
func (r *Repository) AddItem(ctx context.Context, cartID uuid.UUID, item LineItem) (LineItem, error) {
	if err := validateItem(item); err != nil {
		return LineItem{}, err
	}
	var count int64
	if err := r.DB(ctx).Model(&models.CartItem{}).Where("cart_id = ?", cartID).Count(&count).Error; err != nil {
		return LineItem{}, err
	}
	row := models.CartItem{
		ID:             item.ID,
		CartID:         cartID,
		SKU:            strings.TrimSpace(item.SKU),
		Name:           strings.TrimSpace(item.Name),
		Vendor:         strings.TrimSpace(item.Vendor),
		UnitPriceCents: item.UnitPriceCents,
		Quantity:       item.Quantity,
		Position:       int(count),
	}
	if err := r.DB(ctx).Create(&row).Error; err != nil {
		return LineItem{}, err
	}
	item.ID = row.ID
	return item, nil
}

func validateItem(item LineItem) error {
	switch {
	case strings.TrimSpace(item.SKU) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	case strings.TrimSpace(item.Name) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case item.UnitPriceCents < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	case item.Quantity <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}
