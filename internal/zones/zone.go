package zones

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/money"
)

// DeliveryZone is immutable reference data describing one coverage area.
type DeliveryZone struct {
	ID                 uuid.UUID               `json:"id"`
	Name               string                  `json:"name"`
	PostalPatterns     []string                `json:"postal_patterns"`
	BaseFeeCents       int64                   `json:"base_fee_cents"`
	MinOrderCents      int64                   `json:"min_order_cents"`
	MinDeliveryMinutes int                     `json:"min_delivery_minutes"`
	MaxDeliveryMinutes int                     `json:"max_delivery_minutes"`
	Tier               enums.ZoneTier          `json:"tier"`
	Restrictions       []enums.ZoneRestriction `json:"restrictions"`
}

// RestrictionNotes renders the restriction flags as buyer-facing text.
func (z DeliveryZone) RestrictionNotes() []string {
	notes := make([]string, 0, len(z.Restrictions))
	for _, r := range z.Restrictions {
		notes = append(notes, r.Description())
	}
	return notes
}

// Catalog supplies the configured delivery zones.
type Catalog interface {
	Zones(ctx context.Context) ([]DeliveryZone, error)
}

// StaticCatalog serves a fixed list of zones.
type StaticCatalog []DeliveryZone

func (c StaticCatalog) Zones(context.Context) ([]DeliveryZone, error) {
	out := make([]DeliveryZone, len(c))
	copy(out, c)
	return out, nil
}

// Status summarizes a resolution.
type Status string

const (
	StatusOK                Status = "ok"
	StatusIneligible        Status = "ineligible"
	StatusNotServiceable    Status = "not_serviceable"
	StatusInvalidPostalCode Status = "invalid_postal_code"
)

const (
	messageInvalidPostalCode = "Enter a valid postal code"
	messageNotServiceable    = "We don't deliver to this postal code yet"
	messageAlternatives      = "We don't deliver to this postal code yet; nearby zones are listed"
)

// ZoneOption is a matched zone together with its eligibility for the order.
type ZoneOption struct {
	Zone           DeliveryZone `json:"zone"`
	Eligible       bool         `json:"eligible"`
	ShortfallCents int64        `json:"shortfall_cents"`
	Restrictions   []string     `json:"restrictions"`
}

// Resolution is the outcome of resolving a postal code against the catalog.
type Resolution struct {
	PostalCode   string         `json:"postal_code"`
	Region       string         `json:"region,omitempty"`
	OrderCents   int64          `json:"order_cents"`
	Status       Status         `json:"status"`
	Matched      []ZoneOption   `json:"matched_zones"`
	Alternatives []DeliveryZone `json:"alternative_zones"`
	Serviceable  bool           `json:"is_serviceable"`
	Message      string         `json:"message,omitempty"`
}

// Option returns the matched option for zoneID.
func (r Resolution) Option(zoneID uuid.UUID) (ZoneOption, bool) {
	for _, opt := range r.Matched {
		if opt.Zone.ID == zoneID {
			return opt, true
		}
	}
	return ZoneOption{}, false
}

// BestEligible returns the highest-priority eligible option.
func (r Resolution) BestEligible() (ZoneOption, bool) {
	for _, opt := range r.Matched {
		if opt.Eligible {
			return opt, true
		}
	}
	return ZoneOption{}, false
}

// Err maps a non-ok status onto the matching typed error.
func (r Resolution) Err() error {
	switch r.Status {
	case StatusInvalidPostalCode:
		return pkgerrors.New(pkgerrors.CodeValidation, messageInvalidPostalCode).
			WithDetails(map[string]any{"postal_code": r.PostalCode})
	case StatusNotServiceable:
		alternatives := make([]string, 0, len(r.Alternatives))
		for _, z := range r.Alternatives {
			alternatives = append(alternatives, z.Name)
		}
		return pkgerrors.New(pkgerrors.CodeNotServiceable, r.Message).
			WithDetails(map[string]any{"postal_code": r.PostalCode, "alternatives": alternatives})
	case StatusIneligible:
		return pkgerrors.New(pkgerrors.CodeIneligibleOrder, r.Message).
			WithDetails(map[string]any{"shortfall_cents": r.minShortfall()})
	default:
		return nil
	}
}

func (r Resolution) minShortfall() int64 {
	var shortfall int64
	for i, opt := range r.Matched {
		if i == 0 || opt.ShortfallCents < shortfall {
			shortfall = opt.ShortfallCents
		}
	}
	return shortfall
}

// CheckEligibility reports whether orderCents meets the zone minimum.
func CheckEligibility(zone DeliveryZone, orderCents int64) error {
	if orderCents >= zone.MinOrderCents {
		return nil
	}
	shortfall := zone.MinOrderCents - orderCents
	return pkgerrors.New(pkgerrors.CodeIneligibleOrder, shortfallMessage(shortfall)).
		WithDetails(map[string]any{"zone_id": zone.ID.String(), "shortfall_cents": shortfall})
}

func shortfallMessage(cents int64) string {
	return fmt.Sprintf("Add %s more to qualify for delivery", money.Format(cents))
}
