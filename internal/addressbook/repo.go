package addressbook

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/repo"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// SavedAddress is one entry of a customer's address book.
type SavedAddress struct {
	ID         uuid.UUID     `json:"id"`
	CustomerID uuid.UUID     `json:"customer_id"`
	Label      string        `json:"label,omitempty"`
	Address    types.Address `json:"address"`
	PlaceID    *string       `json:"place_id,omitempty"`
}

// Repository persists saved_addresses.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to a GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) List(ctx context.Context, customerID uuid.UUID) ([]SavedAddress, error) {
	var rows []models.SavedAddress
	if err := r.DB(ctx).Where("customer_id = ?", customerID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]SavedAddress, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, customerID, id uuid.UUID) (SavedAddress, error) {
	var row models.SavedAddress
	err := r.DB(ctx).Where("id = ? AND customer_id = ?", id, customerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SavedAddress{}, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	if err != nil {
		return SavedAddress{}, err
	}
	return fromModel(row), nil
}

func (r *Repository) Create(ctx context.Context, entry SavedAddress) (SavedAddress, error) {
	row := toModel(entry)
	if err := r.DB(ctx).Create(&row).Error; err != nil {
		return SavedAddress{}, err
	}
	return fromModel(row), nil
}

func fromModel(row models.SavedAddress) SavedAddress {
	return SavedAddress{
		ID:         row.ID,
		CustomerID: row.CustomerID,
		Label:      row.Label,
		PlaceID:    row.PlaceID,
		Address: types.Address{
			Line1:      row.Line1,
			Line2:      row.Line2,
			City:       row.City,
			State:      row.State,
			PostalCode: row.PostalCode,
			Country:    row.Country,
		},
	}
}

func toModel(entry SavedAddress) models.SavedAddress {
	addr := entry.Address.WithDefaults()
	return models.SavedAddress{
		ID:         entry.ID,
		CustomerID: entry.CustomerID,
		Label:      entry.Label,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		PlaceID:    entry.PlaceID,
	}
}
