package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/api/responses"
	"github.com/angelmondragon/storefront-checkout/api/validators"
	"github.com/angelmondragon/storefront-checkout/internal/addressbook"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// AddressService is the address book surface used by the HTTP layer.
type AddressService interface {
	List(ctx context.Context, customerID uuid.UUID) ([]addressbook.SavedAddress, error)
	Add(ctx context.Context, customerID uuid.UUID, input addressbook.AddInput) (addressbook.SavedAddress, error)
	Suggest(ctx context.Context, req addressbook.SuggestRequest) ([]addressbook.Suggestion, error)
	Resolve(ctx context.Context, placeID string) (types.Address, error)
}

type resolveAddressPayload struct {
	PlaceID string `json:"place_id" validate:"required"`
}

type addAddressPayload struct {
	Label   string         `json:"label" validate:"max=64"`
	Address *types.Address `json:"address,omitempty" validate:"required_without=PlaceID"`
	PlaceID string         `json:"place_id,omitempty" validate:"required_without=Address"`
}

// AddressSuggest returns autocomplete suggestions for the frontend.
func AddressSuggest(svc AddressService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		query := r.URL.Query()
		resp, err := svc.Suggest(ctx, addressbook.SuggestRequest{
			Query:    strings.TrimSpace(query.Get("q")),
			Country:  strings.TrimSpace(query.Get("country")),
			Language: strings.TrimSpace(query.Get("language")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"suggestions": resp})
	}
}

// AddressResolve resolves a place ID into a canonical address.
func AddressResolve(svc AddressService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		var payload resolveAddressPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		addr, err := svc.Resolve(ctx, payload.PlaceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, addr)
	}
}

// CustomerAddresses lists the customer's saved addresses.
func CustomerAddresses(svc AddressService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		customerID, err := validators.ParseURLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.List(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"addresses": list})
	}
}

// AddCustomerAddress saves a typed address or a resolved place id.
func AddCustomerAddress(svc AddressService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		customerID, err := validators.ParseURLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload addAddressPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		saved, err := svc.Add(ctx, customerID, payload.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, saved)
	}
}

func (p addAddressPayload) toInput() addressbook.AddInput {
	return addressbook.AddInput{
		Label:   validators.SanitizeString(p.Label, 64),
		Address: p.Address,
		PlaceID: strings.TrimSpace(p.PlaceID),
	}
}
