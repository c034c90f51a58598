package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/api/responses"
	"github.com/angelmondragon/storefront-checkout/api/validators"
	"github.com/angelmondragon/storefront-checkout/internal/surge"
	"github.com/angelmondragon/storefront-checkout/internal/zones"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

// ZoneService resolves postal codes and looks up configured zones.
type ZoneService interface {
	Resolve(ctx context.Context, postalCode string, orderCents int64) (zones.Resolution, error)
	Zone(ctx context.Context, id uuid.UUID) (zones.DeliveryZone, error)
}

// PricingService is the surge engine surface exposed over HTTP.
type PricingService interface {
	GetPrice(ctx context.Context, zoneID uuid.UUID, baseCents int64) surge.PricingResult
	Refresh(ctx context.Context, zoneID uuid.UUID) (surge.PricingResult, error)
}

// ResolveZones reports the zones covering a postal code for an order amount.
// Non-ok statuses are part of the resolution, not errors.
func ResolveZones(svc ZoneService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zone resolver unavailable"))
			return
		}

		orderCents, err := validators.ParseQueryCents(r, "order_cents", false)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		res, err := svc.Resolve(ctx, r.URL.Query().Get("postal_code"), orderCents)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

// ZonePrice prices a zone. Without base_cents the zone's configured base fee
// is used.
func ZonePrice(svc ZoneService, pricing PricingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || pricing == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing unavailable"))
			return
		}

		zoneID, err := validators.ParseURLParamUUID(r, "zoneId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		zone, err := svc.Zone(ctx, zoneID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		baseCents := zone.BaseFeeCents
		if r.URL.Query().Has("base_cents") {
			if baseCents, err = validators.ParseQueryCents(r, "base_cents", true); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		responses.WriteSuccess(w, pricing.GetPrice(ctx, zone.ID, baseCents))
	}
}

// RefreshZonePrice recomputes the multiplier of an already priced zone.
func RefreshZonePrice(pricing PricingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if pricing == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing unavailable"))
			return
		}

		zoneID, err := validators.ParseURLParamUUID(r, "zoneId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		res, err := pricing.Refresh(ctx, zoneID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}
