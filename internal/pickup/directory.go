package pickup

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/repo"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

// Location is a pickup point. Checkout treats it as opaque display data.
type Location struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Line1      string    `json:"line1"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Hours      string    `json:"hours,omitempty"`
}

// Directory supplies pickup locations.
type Directory interface {
	List(ctx context.Context) ([]Location, error)
	Get(ctx context.Context, id uuid.UUID) (Location, error)
}

// Repository serves active pickup_locations rows.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to a GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) List(ctx context.Context) ([]Location, error) {
	var rows []models.PickupLocation
	if err := r.DB(ctx).Where("active = ?", true).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Location, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Location, error) {
	var row models.PickupLocation
	err := r.DB(ctx).Where("id = ? AND active = ?", id, true).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Location{}, pkgerrors.New(pkgerrors.CodeNotFound, "pickup location not found")
	}
	if err != nil {
		return Location{}, err
	}
	return fromModel(row), nil
}

func fromModel(row models.PickupLocation) Location {
	return Location{
		ID:         row.ID,
		Name:       row.Name,
		Line1:      row.Line1,
		City:       row.City,
		State:      row.State,
		PostalCode: row.PostalCode,
		Country:    row.Country,
		Hours:      row.Hours,
	}
}
