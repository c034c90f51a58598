package zones

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/repo"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
)

// Repository reads zones from the delivery_zones table.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to a GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Zones returns the active zones ordered by name.
func (r *Repository) Zones(ctx context.Context) ([]DeliveryZone, error) {
	var rows []models.DeliveryZone
	if err := r.DB(ctx).Where("active = ?", true).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]DeliveryZone, 0, len(rows))
	for _, row := range rows {
		zone, err := fromModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, zone)
	}
	return out, nil
}

// Save inserts or updates a zone. Used by seeding and configuration tooling.
func (r *Repository) Save(ctx context.Context, zone DeliveryZone) (DeliveryZone, error) {
	row := toModel(zone)
	if err := r.DB(ctx).Save(&row).Error; err != nil {
		return DeliveryZone{}, err
	}
	return fromModel(row)
}

func fromModel(row models.DeliveryZone) (DeliveryZone, error) {
	tier, err := enums.ParseZoneTier(row.Tier.String())
	if err != nil {
		return DeliveryZone{}, fmt.Errorf("zone %s: %w", row.Name, err)
	}
	restrictions := make([]enums.ZoneRestriction, 0, len(row.Restrictions))
	for _, raw := range row.Restrictions {
		r, err := enums.ParseZoneRestriction(raw)
		if err != nil {
			return DeliveryZone{}, fmt.Errorf("zone %s: %w", row.Name, err)
		}
		restrictions = append(restrictions, r)
	}
	return DeliveryZone{
		ID:                 row.ID,
		Name:               row.Name,
		PostalPatterns:     append([]string(nil), row.PostalPatterns...),
		BaseFeeCents:       row.BaseFeeCents,
		MinOrderCents:      row.MinOrderCents,
		MinDeliveryMinutes: row.MinDeliveryMinutes,
		MaxDeliveryMinutes: row.MaxDeliveryMinutes,
		Tier:               tier,
		Restrictions:       restrictions,
	}, nil
}

func toModel(zone DeliveryZone) models.DeliveryZone {
	restrictions := make([]string, 0, len(zone.Restrictions))
	for _, r := range zone.Restrictions {
		restrictions = append(restrictions, r.String())
	}
	id := zone.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return models.DeliveryZone{
		ID:                 id,
		Name:               zone.Name,
		PostalPatterns:     append([]string(nil), zone.PostalPatterns...),
		BaseFeeCents:       zone.BaseFeeCents,
		MinOrderCents:      zone.MinOrderCents,
		MinDeliveryMinutes: zone.MinDeliveryMinutes,
		MaxDeliveryMinutes: zone.MaxDeliveryMinutes,
		Tier:               zone.Tier,
		Restrictions:       restrictions,
		Active:             true,
	}
}
