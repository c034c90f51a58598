package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/api/responses"
	"github.com/angelmondragon/storefront-checkout/api/validators"
	"github.com/angelmondragon/storefront-checkout/internal/addressbook"
	"github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// SessionStore holds the live checkout sessions.
type SessionStore interface {
	Create(ctx context.Context, input checkout.CreateInput) (*checkout.Orchestrator, error)
	Get(id uuid.UUID) (*checkout.Orchestrator, error)
	Discard(id uuid.UUID) bool
}

type createSessionRequest struct {
	CustomerID uuid.UUID `json:"customer_id" validate:"required"`
	CartID     uuid.UUID `json:"cart_id" validate:"required"`
}

type fulfillmentRequest struct {
	Method string `json:"method" validate:"required"`
}

type pickupLocationRequest struct {
	PickupLocationID uuid.UUID `json:"pickup_location_id" validate:"required"`
}

type sessionAddressRequest struct {
	SavedAddressID *uuid.UUID     `json:"saved_address_id,omitempty"`
	Label          string         `json:"label" validate:"max=64"`
	Address        *types.Address `json:"address,omitempty"`
	PlaceID        string         `json:"place_id,omitempty"`
}

type zoneRequest struct {
	ZoneID uuid.UUID `json:"zone_id" validate:"required"`
}

type acknowledgeFeeRequest struct {
	FeeCents *int64 `json:"fee_cents" validate:"required,min=0"`
}

type paymentMethodRequest struct {
	PaymentMethodID uuid.UUID `json:"payment_method_id" validate:"required"`
}

type instructionsRequest struct {
	Instructions string `json:"instructions"`
}

// CreateCheckoutSession starts a session for a customer's cart.
func CreateCheckoutSession(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		var payload createSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		o, err := store.Create(ctx, checkout.CreateInput{CustomerID: payload.CustomerID, CartID: payload.CartID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(logg.WithSessionID(logg.WithCustomerID(ctx, payload.CustomerID.String()), o.ID().String()), "checkout session created")
		responses.WriteSuccessStatus(w, http.StatusCreated, o.Snapshot())
	}
}

// GetCheckoutSession returns the raw session state.
func GetCheckoutSession(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return withSession(store, logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) {
		responses.WriteSuccess(w, o.Snapshot())
	})
}

// ViewCheckoutSession returns the session positioned on the step to render.
func ViewCheckoutSession(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return withSession(store, logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) {
		responses.WriteSuccess(w, o.View(r.Context()))
	})
}

// DiscardCheckoutSession abandons a session.
func DiscardCheckoutSession(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		id, err := validators.ParseURLParamUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !store.Discard(id) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found").
				WithDetails(map[string]any{"session_id": id.String()}))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func SelectFulfillment(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		var payload fulfillmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return checkout.Snapshot{}, err
		}
		method, err := enums.ParseFulfillmentMethod(payload.Method)
		if err != nil {
			return checkout.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "choose delivery or pickup")
		}
		return o.SelectFulfillment(r.Context(), method)
	})
}

func SelectPickupLocation(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		var payload pickupLocationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return checkout.Snapshot{}, err
		}
		return o.SelectPickupLocation(r.Context(), payload.PickupLocationID)
	})
}

// SetSessionAddress selects a saved address or adds a new one, then resolves
// delivery coverage for it.
func SetSessionAddress(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		var payload sessionAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return checkout.Snapshot{}, err
		}
		input, err := payload.toInput()
		if err != nil {
			return checkout.Snapshot{}, err
		}
		return o.SetAddress(r.Context(), input)
	})
}

func SelectZone(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		var payload zoneRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return checkout.Snapshot{}, err
		}
		return o.SelectZone(r.Context(), payload.ZoneID)
	})
}

func RefreshSessionPricing(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		return o.RefreshPricing(r.Context())
	})
}

func AcknowledgeFee(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		var payload acknowledgeFeeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return checkout.Snapshot{}, err
		}
		return o.AcknowledgeFee(r.Context(), *payload.FeeCents)
	})
}

func SelectPaymentMethod(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		var payload paymentMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return checkout.Snapshot{}, err
		}
		return o.SelectPaymentMethod(r.Context(), payload.PaymentMethodID)
	})
}

func SetInstructions(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		var payload instructionsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return checkout.Snapshot{}, err
		}
		return o.SetInstructions(r.Context(), payload.Instructions)
	})
}

func ReloadCart(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		return o.ReloadCart(r.Context())
	})
}

func NextStep(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		return o.Next(r.Context())
	})
}

func PreviousStep(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(store, logg, func(r *http.Request, o *checkout.Orchestrator) (checkout.Snapshot, error) {
		return o.Back(r.Context())
	})
}

// SubmitCheckout places the order. A submission already in flight yields
// 202 with the processing flag instead of a second order.
func SubmitCheckout(store SessionStore, logg *logger.Logger) http.HandlerFunc {
	return withSession(store, logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) {
		receipt, err := o.Submit(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if receipt == nil {
			responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
				"session_id": o.ID(),
				"status":     "processing",
			})
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	})
}

func withSession(store SessionStore, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, *checkout.Orchestrator)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		id, err := validators.ParseURLParamUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		o, err := store.Get(id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		fn(w, r.WithContext(logg.WithSessionID(ctx, id.String())), o)
	}
}

func sessionAction(store SessionStore, logg *logger.Logger, fn func(*http.Request, *checkout.Orchestrator) (checkout.Snapshot, error)) http.HandlerFunc {
	return withSession(store, logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) {
		snap, err := fn(r, o)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	})
}

func (p sessionAddressRequest) toInput() (checkout.AddressInput, error) {
	placeID := strings.TrimSpace(p.PlaceID)
	switch {
	case p.SavedAddressID != nil && (p.Address != nil || placeID != ""):
		return checkout.AddressInput{}, pkgerrors.New(pkgerrors.CodeValidation, "provide either saved_address_id or a new address")
	case p.SavedAddressID != nil:
		return checkout.AddressInput{SavedAddressID: p.SavedAddressID}, nil
	case p.Address != nil || placeID != "":
		return checkout.AddressInput{New: &addressbook.AddInput{
			Label:   validators.SanitizeString(p.Label, 64),
			Address: p.Address,
			PlaceID: placeID,
		}}, nil
	default:
		return checkout.AddressInput{}, pkgerrors.New(pkgerrors.CodeValidation, "add a delivery address")
	}
}
