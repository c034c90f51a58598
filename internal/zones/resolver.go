package zones

import (
	"context"
	"sort"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

// Resolver maps a postal code and order amount onto delivery zones.
type Resolver struct {
	catalog Catalog
	logg    *logger.Logger
}

// NewResolver builds a resolver over the given catalog.
func NewResolver(catalog Catalog, logg *logger.Logger) (*Resolver, error) {
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "zone catalog required")
	}
	return &Resolver{catalog: catalog, logg: logg}, nil
}

// Resolve returns every zone covering postalCode, premium tier first, with
// per-zone eligibility for orderCents. A malformed or uncovered postal code is
// reported through the resolution status rather than an error; errors are
// reserved for catalog and configuration problems.
func (r *Resolver) Resolve(ctx context.Context, postalCode string, orderCents int64) (Resolution, error) {
	if orderCents < 0 {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "order amount must not be negative")
	}

	code, ok := NormalizePostalCode(postalCode)
	if !ok {
		return Resolution{
			PostalCode: postalCode,
			OrderCents: orderCents,
			Status:     StatusInvalidPostalCode,
			Message:    messageInvalidPostalCode,
		}, nil
	}

	all, err := r.zones(ctx)
	if err != nil {
		return Resolution{}, err
	}

	region := Region(code)
	var matched, nearby []DeliveryZone
	for _, zone := range all {
		patterns, err := compilePatterns(zone.PostalPatterns)
		if err != nil {
			return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "invalid postal pattern").
				WithDetails(map[string]any{"zone": zone.Name})
		}
		switch {
		case anyMatches(patterns, code):
			matched = append(matched, zone)
		case anyTouchesRegion(patterns, region):
			nearby = append(nearby, zone)
		}
	}

	if err := checkTierUniqueness(code, matched); err != nil {
		return Resolution{}, err
	}
	sortZones(matched)

	res := Resolution{
		PostalCode: code,
		Region:     region,
		OrderCents: orderCents,
	}

	if len(matched) == 0 {
		sortZones(nearby)
		res.Status = StatusNotServiceable
		res.Alternatives = nearby
		res.Message = messageNotServiceable
		if len(nearby) > 0 {
			res.Message = messageAlternatives
		}
		r.logg.Debug(r.logg.WithField(ctx, "postal_code", code), "postal code not serviceable")
		return res, nil
	}

	res.Serviceable = true
	res.Matched = make([]ZoneOption, 0, len(matched))
	anyEligible := false
	for _, zone := range matched {
		opt := ZoneOption{
			Zone:         zone,
			Eligible:     orderCents >= zone.MinOrderCents,
			Restrictions: zone.RestrictionNotes(),
		}
		if !opt.Eligible {
			opt.ShortfallCents = zone.MinOrderCents - orderCents
		} else {
			anyEligible = true
		}
		res.Matched = append(res.Matched, opt)
	}

	if anyEligible {
		res.Status = StatusOK
		return res, nil
	}
	res.Status = StatusIneligible
	res.Message = shortfallMessage(res.minShortfall())
	return res, nil
}

// Zone looks up a configured zone by id.
func (r *Resolver) Zone(ctx context.Context, id uuid.UUID) (DeliveryZone, error) {
	all, err := r.zones(ctx)
	if err != nil {
		return DeliveryZone{}, err
	}
	for _, zone := range all {
		if zone.ID == id {
			return zone, nil
		}
	}
	return DeliveryZone{}, pkgerrors.New(pkgerrors.CodeNotFound, "delivery zone not found")
}

func (r *Resolver) zones(ctx context.Context) ([]DeliveryZone, error) {
	all, err := r.catalog.Zones(ctx)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery zones")
	}
	if len(all) == 0 {
		r.logg.Error(ctx, "delivery zone catalog is empty", nil)
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "no delivery zones configured")
	}
	return all, nil
}

func anyMatches(patterns []pattern, code string) bool {
	for _, p := range patterns {
		if p.matches(code) {
			return true
		}
	}
	return false
}

func anyTouchesRegion(patterns []pattern, region string) bool {
	for _, p := range patterns {
		if p.touchesRegion(region) {
			return true
		}
	}
	return false
}

// checkTierUniqueness enforces at most one zone per tier for a postal code.
func checkTierUniqueness(code string, matched []DeliveryZone) error {
	seen := make(map[string]string, len(matched))
	for _, zone := range matched {
		tier := zone.Tier.String()
		if prev, ok := seen[tier]; ok {
			return pkgerrors.New(pkgerrors.CodeConfiguration, "overlapping delivery zones in the same tier").
				WithDetails(map[string]any{"postal_code": code, "tier": tier, "zones": []string{prev, zone.Name}})
		}
		seen[tier] = zone.Name
	}
	return nil
}

func sortZones(zs []DeliveryZone) {
	sort.SliceStable(zs, func(i, j int) bool {
		ri, rj := tierRank(zs[i]), tierRank(zs[j])
		if ri != rj {
			return ri < rj
		}
		return zs[i].Name < zs[j].Name
	})
}

// tierRank places unknown tiers after the known ones.
func tierRank(z DeliveryZone) int {
	if rank := z.Tier.Rank(); rank >= 0 {
		return rank
	}
	return 100
}
