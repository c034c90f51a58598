package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/api/responses"
	"github.com/angelmondragon/storefront-checkout/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

// DemandRecorder counts dispatches per zone.
type DemandRecorder interface {
	Record(ctx context.Context, zoneID uuid.UUID) (int64, error)
}

// RecordDispatch is the dispatch intake. The zone must be configured.
func RecordDispatch(svc ZoneService, demand DemandRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || demand == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "demand intake unavailable"))
			return
		}

		zoneID, err := validators.ParseURLParamUUID(r, "zoneId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if _, err := svc.Zone(ctx, zoneID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		count, err := demand.Record(ctx, zoneID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"zone_id": zoneID,
			"demand":  count,
		})
	}
}
